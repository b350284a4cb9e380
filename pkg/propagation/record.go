// Package propagation prepares per-read label propagation input from the
// overlap graph and runs the label propagation drivers over it.
package propagation

import (
	"fmt"

	"github.com/gilchrisn/classgraph/pkg/readgraph"
	"github.com/gilchrisn/classgraph/pkg/readindex"
)

// Neighbor is an unlabeled neighbor of a record and the overlap weight
// of the edge to it
type Neighbor struct {
	Index  int     `json:"index"`
	Weight float64 `json:"weight"`
}

// Record is the propagation view of one read. Neighbors only lists reads
// that were unlabeled when the record was assembled. Scratch starts at 0
// and belongs to the sweep driver.
type Record struct {
	Index     int        `json:"index"`
	Label     int        `json:"label"`
	Neighbors []Neighbor `json:"neighbors"`
	Scratch   int        `json:"scratch,omitempty"`
}

// Anchor is a read that already carried a label before propagation
type Anchor struct {
	Index int `json:"index"`
	Label int `json:"label"`
}

// Input is everything a driver consumes
type Input struct {
	Variant Variant
	Records []Record
	Anchors []Anchor
}

// Unlabeled counts records whose label is still 0
func (in *Input) Unlabeled() int {
	count := 0
	for i := range in.Records {
		if in.Records[i].Label == readindex.Unlabeled {
			count++
		}
	}
	return count
}

// Labels returns the record labels in index order
func (in *Input) Labels() []int {
	labels := make([]int, len(in.Records))
	for i := range in.Records {
		labels[i] = in.Records[i].Label
	}
	return labels
}

// Assemble builds one record per node of g, in index order. labels must
// hold one entry per node; the graph is only read.
func Assemble(g *readgraph.Graph, labels []int, variant Variant) (*Input, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, int(variant))
	}
	if len(labels) != g.NumNodes {
		return nil, fmt.Errorf("got %d labels for a graph of %d nodes", len(labels), g.NumNodes)
	}

	in := &Input{
		Variant: variant,
		Records: make([]Record, g.NumNodes),
		Anchors: make([]Anchor, 0),
	}

	for node := 0; node < g.NumNodes; node++ {
		label := labels[node]
		if label != readindex.Unlabeled {
			in.Anchors = append(in.Anchors, Anchor{Index: node, Label: label})
		}

		neighbors, weights := g.GetNeighbors(node)
		filtered := make([]Neighbor, 0)
		for i, neighbor := range neighbors {
			if labels[neighbor] == readindex.Unlabeled {
				filtered = append(filtered, Neighbor{Index: neighbor, Weight: weights[i]})
			}
		}

		in.Records[node] = Record{
			Index:     node,
			Label:     label,
			Neighbors: filtered,
		}
	}

	return in, nil
}
