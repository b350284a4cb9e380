package overlap

import (
	"fmt"
	"strconv"
)

// Dialect selects how an edge record encodes its overlap length
type Dialect int

const (
	// SGA records carry inclusive overlap start/end coordinates
	SGA Dialect = 1
	// Minimap2 records carry the alignment block length directly
	Minimap2 Dialect = 2
)

// Record tags and fixed field positions shared by both dialects
const (
	VertexTag = "VT"
	EdgeTag   = "ED"

	vertexIDField  = 1
	edgeFirstField = 1
	edgeOtherField = 2
	seq1LenField   = 5
	seq2LenField   = 8

	sgaStartField     = 3
	sgaEndField       = 4
	blockLengthField  = 11
	minVertexFields   = vertexIDField + 1
	minLengthFields   = seq2LenField + 1
	minSGAFields      = seq2LenField + 1
	minMinimap2Fields = blockLengthField + 1
)

func (d Dialect) String() string {
	switch d {
	case SGA:
		return "sga"
	case Minimap2:
		return "minimap2"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// Valid reports whether d is a supported dialect
func (d Dialect) Valid() bool {
	return d == SGA || d == Minimap2
}

// minEdgeFields is the field count an edge record needs in the record scan
func (d Dialect) minEdgeFields() int {
	if d == Minimap2 {
		return minMinimap2Fields
	}
	return minSGAFields
}

// overlapLength extracts the raw overlap length from an edge record
func (d Dialect) overlapLength(parts []string) (int, error) {
	switch d {
	case SGA:
		start, err := parseLength(parts, sgaStartField, "overlap start")
		if err != nil {
			return 0, err
		}
		end, err := parseLength(parts, sgaEndField, "overlap end")
		if err != nil {
			return 0, err
		}
		if end < start {
			return 0, fmt.Errorf("%w: overlap end %d before start %d", ErrMalformedRecord, end, start)
		}
		return end - start + 1, nil
	case Minimap2:
		return parseLength(parts, blockLengthField, "block length")
	default:
		return 0, fmt.Errorf("unsupported dialect %d", int(d))
	}
}

// merge applies the per-dialect duplicate policy. SGA keeps the strongest
// overlap; minimap2 keeps the last record seen.
func (d Dialect) merge(existing, incoming float64) float64 {
	if d == SGA {
		if existing > incoming {
			return existing
		}
		return incoming
	}
	return incoming
}

func parseLength(parts []string, field int, what string) (int, error) {
	if field >= len(parts) {
		return 0, fmt.Errorf("%w: missing %s (field %d)", ErrMalformedRecord, what, field+1)
	}
	v, err := strconv.Atoi(parts[field])
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrMalformedRecord, what, parts[field])
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative %s %d", ErrMalformedRecord, what, v)
	}
	return v, nil
}
