// Package readindex maps read identifiers to dense node indices and keeps
// the label assigned to each index.
package readindex

import "fmt"

// Unlabeled is the label carried by reads without a classification
const Unlabeled = 0

// Index is the bidirectional mapping between read identifiers and the
// dense indices 0..N-1, together with the label vector for those indices.
type Index struct {
	ids    []string       // index -> read id
	lookup map[string]int // read id -> index
	labels []int          // index -> label
}

// New creates an empty index
func New() *Index {
	return &Index{
		ids:    make([]string, 0),
		lookup: make(map[string]int),
		labels: make([]int, 0),
	}
}

// Ensure returns the index of readID, assigning the next free index with an
// unlabeled entry when the id has not been seen before. Callers canonicalize
// readID first.
func (idx *Index) Ensure(readID string) int {
	if i, exists := idx.lookup[readID]; exists {
		return i
	}
	return idx.insert(readID, Unlabeled)
}

// AddLabeled inserts a new read with the given label. It fails if the read
// is already indexed, so a label is never silently replaced.
func (idx *Index) AddLabeled(readID string, label int) (int, error) {
	if i, exists := idx.lookup[readID]; exists {
		return i, fmt.Errorf("read %q already has index %d", readID, i)
	}
	return idx.insert(readID, label), nil
}

func (idx *Index) insert(readID string, label int) int {
	i := len(idx.ids)
	idx.ids = append(idx.ids, readID)
	idx.labels = append(idx.labels, label)
	idx.lookup[readID] = i
	return i
}

// Lookup returns the index of a read id
func (idx *Index) Lookup(readID string) (int, bool) {
	i, exists := idx.lookup[readID]
	return i, exists
}

// ReadID returns the identifier stored for index i
func (idx *Index) ReadID(i int) (string, bool) {
	if i < 0 || i >= len(idx.ids) {
		return "", false
	}
	return idx.ids[i], true
}

// Len returns the number of indexed reads
func (idx *Index) Len() int {
	return len(idx.ids)
}

// Label returns the current label of index i
func (idx *Index) Label(i int) int {
	if i < 0 || i >= len(idx.labels) {
		return Unlabeled
	}
	return idx.labels[i]
}

// Labels returns a copy of the label vector in index order
func (idx *Index) Labels() []int {
	out := make([]int, len(idx.labels))
	copy(out, idx.labels)
	return out
}

// CountLabeled returns how many indices carry a non-zero label
func (idx *Index) CountLabeled() int {
	count := 0
	for _, label := range idx.labels {
		if label != Unlabeled {
			count++
		}
	}
	return count
}

// Validate checks that both directions of the mapping agree and that the
// indices are dense
func (idx *Index) Validate() error {
	if len(idx.ids) != len(idx.labels) {
		return fmt.Errorf("index has %d ids but %d labels", len(idx.ids), len(idx.labels))
	}
	if len(idx.ids) != len(idx.lookup) {
		return fmt.Errorf("index has %d ids but %d lookup entries", len(idx.ids), len(idx.lookup))
	}
	for i, id := range idx.ids {
		if j, exists := idx.lookup[id]; !exists || j != i {
			return fmt.Errorf("read %q at index %d maps back to %d", id, i, j)
		}
	}
	return nil
}

// SetLabels replaces the whole label vector. The length must match the
// number of indexed reads.
func (idx *Index) SetLabels(labels []int) error {
	if len(labels) != len(idx.labels) {
		return fmt.Errorf("got %d labels for %d reads", len(labels), len(idx.labels))
	}
	copy(idx.labels, labels)
	return nil
}
