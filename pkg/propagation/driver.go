package propagation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gilchrisn/classgraph/pkg/readindex"
)

var (
	// ErrInvalidIterations is returned for a non-positive iteration cap
	ErrInvalidIterations = errors.New("max iterations must be positive")
	// ErrUnknownVariant is returned for a variant selector other than 1 or 2
	ErrUnknownVariant = errors.New("unknown label propagation variant")
)

// Variant selects the propagation driver
type Variant int

const (
	// VariantVote applies all votes of a round at once
	VariantVote Variant = 1
	// VariantSweep labels reads one at a time in index order
	VariantSweep Variant = 2
)

// Valid reports whether v is a known variant
func (v Variant) Valid() bool {
	return v == VariantVote || v == VariantSweep
}

func (v Variant) String() string {
	switch v {
	case VariantVote:
		return "lp-v1"
	case VariantSweep:
		return "lp-v2"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Driver updates record labels in place
type Driver interface {
	Propagate(maxIterations int, records []Record) (Report, error)
}

// AssignmentLogger receives every label a driver assigns
type AssignmentLogger interface {
	LogAssignment(round, node, label int, weight float64)
}

// Report summarizes a propagation run
type Report struct {
	Rounds    int  `json:"rounds"`
	Assigned  int  `json:"assigned"`
	Converged bool `json:"converged"`
}

// NewDriver returns the driver for a variant. tracker may be nil.
func NewDriver(variant Variant, tracker AssignmentLogger) (Driver, error) {
	switch variant {
	case VariantVote:
		return &VoteDriver{Tracker: tracker}, nil
	case VariantSweep:
		return &SweepDriver{Tracker: tracker}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, int(variant))
	}
}

// VoteDriver runs synchronous rounds: votes are tallied against the labels
// at the start of a round and applied together at its end
type VoteDriver struct {
	Tracker AssignmentLogger
}

// Propagate implements Driver
func (d *VoteDriver) Propagate(maxIterations int, records []Record) (Report, error) {
	if err := checkInput(maxIterations, records); err != nil {
		return Report{}, err
	}

	return iterate(maxIterations, func(round int) int {
		assignments := voteRound(records)
		for _, a := range assignments {
			records[a.node].Label = a.label
			if d.Tracker != nil {
				d.Tracker.LogAssignment(round, a.node, a.label, a.weight)
			}
		}
		return len(assignments)
	}), nil
}

// SweepDriver visits unlabeled records in index order and labels each one
// immediately, so a read labeled early in a round already votes for later
// reads of the same round. Scratch holds the round a record was labeled in.
type SweepDriver struct {
	Tracker AssignmentLogger
}

// Propagate implements Driver
func (d *SweepDriver) Propagate(maxIterations int, records []Record) (Report, error) {
	if err := checkInput(maxIterations, records); err != nil {
		return Report{}, err
	}

	incoming := incomingVotes(records)

	return iterate(maxIterations, func(round int) int {
		assigned := 0
		for node := range records {
			if records[node].Label != readindex.Unlabeled {
				continue
			}
			byLabel := make(map[int]float64)
			for _, in := range incoming[node] {
				if label := records[in.Index].Label; label != readindex.Unlabeled {
					byLabel[label] += in.Weight
				}
			}
			if len(byLabel) == 0 {
				continue
			}
			label, weight := pickLabel(byLabel)
			records[node].Label = label
			records[node].Scratch = round
			assigned++
			if d.Tracker != nil {
				d.Tracker.LogAssignment(round, node, label, weight)
			}
		}
		return assigned
	}), nil
}

type assignment struct {
	node   int
	label  int
	weight float64
}

func checkInput(maxIterations int, records []Record) error {
	if maxIterations < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidIterations, maxIterations)
	}
	for i := range records {
		if records[i].Index != i {
			return fmt.Errorf("record at position %d has index %d", i, records[i].Index)
		}
		for _, n := range records[i].Neighbors {
			if n.Index < 0 || n.Index >= len(records) {
				return fmt.Errorf("record %d lists neighbor %d outside 0..%d", i, n.Index, len(records)-1)
			}
		}
	}
	return nil
}

// iterate runs rounds until one assigns nothing or the cap is reached
func iterate(maxIterations int, round func(round int) int) Report {
	var report Report
	for r := 1; r <= maxIterations; r++ {
		report.Rounds = r
		assigned := round(r)
		if assigned == 0 {
			report.Converged = true
			break
		}
		report.Assigned += assigned
	}
	return report
}

// voteRound tallies, for every unlabeled record, the weighted votes of the
// labeled records listing it as a neighbor
func voteRound(records []Record) []assignment {
	tally := make(map[int]map[int]float64)

	for i := range records {
		voter := &records[i]
		if voter.Label == readindex.Unlabeled {
			continue
		}
		for _, n := range voter.Neighbors {
			if records[n.Index].Label != readindex.Unlabeled {
				continue
			}
			byLabel, exists := tally[n.Index]
			if !exists {
				byLabel = make(map[int]float64)
				tally[n.Index] = byLabel
			}
			byLabel[voter.Label] += n.Weight
		}
	}

	targets := make([]int, 0, len(tally))
	for node := range tally {
		targets = append(targets, node)
	}
	sort.Ints(targets)

	assignments := make([]assignment, 0, len(targets))
	for _, node := range targets {
		label, weight := pickLabel(tally[node])
		assignments = append(assignments, assignment{node: node, label: label, weight: weight})
	}

	return assignments
}

// incomingVotes inverts the neighbor lists: incoming[n] holds every record
// that lists n, with the edge weight
func incomingVotes(records []Record) [][]Neighbor {
	incoming := make([][]Neighbor, len(records))
	for i := range records {
		for _, n := range records[i].Neighbors {
			incoming[n.Index] = append(incoming[n.Index], Neighbor{Index: i, Weight: n.Weight})
		}
	}
	return incoming
}

// pickLabel returns the label with the largest total weight, the smaller
// label winning ties
func pickLabel(byLabel map[int]float64) (int, float64) {
	bestLabel, bestWeight := 0, 0.0
	first := true
	for label, weight := range byLabel {
		if first || weight > bestWeight || (weight == bestWeight && label < bestLabel) {
			bestLabel, bestWeight = label, weight
			first = false
		}
	}
	return bestLabel, bestWeight
}
