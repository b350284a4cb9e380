// Package overlap reads assembly overlap graphs (SGA asqg and minimap2
// derived) into a deduplicated, length-normalized edge set.
package overlap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/classgraph/pkg/readindex"
)

// Scan stages reported in ParseError
const (
	StageLengthScan = "length-scan"
	StageRecordScan = "record-scan"
)

var (
	// ErrMalformedRecord marks a record with missing or non-numeric fields
	ErrMalformedRecord = errors.New("malformed graph record")
	// ErrZeroMaxLength is returned when edge records exist but no sequence
	// has a positive length to normalize against
	ErrZeroMaxLength = errors.New("maximum sequence length is zero")
)

// ParseError locates a failure within the graph file
type ParseError struct {
	File  string
	Stage string
	Line  int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d (%s): %v", e.File, e.Line, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.File, e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Result is the outcome of both passes over a graph file
type Result struct {
	Edges            *EdgeSet
	MaxSeqLen        int
	VertexRecords    int
	EdgeRecords      int
	DuplicateRecords int
}

// Parser extracts overlaps for one dialect and read type
type Parser struct {
	dialect      Dialect
	canonicalize readindex.Canonicalizer
	logger       zerolog.Logger
}

// NewParser creates a parser. canonicalize is applied to every graph
// identifier before it reaches the index.
func NewParser(dialect Dialect, canonicalize readindex.Canonicalizer, logger zerolog.Logger) (*Parser, error) {
	if !dialect.Valid() {
		return nil, fmt.Errorf("unsupported dialect %d", int(dialect))
	}
	if canonicalize == nil {
		canonicalize = readindex.Verbatim
	}
	return &Parser{
		dialect:      dialect,
		canonicalize: canonicalize,
		logger:       logger,
	}, nil
}

// ParseFile buffers the graph file once and runs both passes over it
func (p *Parser) ParseFile(filename string, idx *readindex.Index) (*Result, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read graph file %s: %w", filename, err)
	}
	return p.Parse(data, filename, idx)
}

// Parse runs the length scan followed by the record scan. Reads are
// added to idx in the order they are first seen.
func (p *Parser) Parse(data []byte, name string, idx *readindex.Index) (*Result, error) {
	maxSeqLen, edgeRecords, err := ScanMaxLength(data, name)
	if err != nil {
		return nil, err
	}
	if edgeRecords > 0 && maxSeqLen == 0 {
		return nil, &ParseError{File: name, Stage: StageLengthScan, Err: ErrZeroMaxLength}
	}

	p.logger.Debug().
		Str("file", name).
		Int("max_seq_len", maxSeqLen).
		Int("edge_records", edgeRecords).
		Msg("Length scan completed")

	result := &Result{
		Edges:     NewEdgeSet(),
		MaxSeqLen: maxSeqLen,
	}

	err = eachRecord(data, func(lineNo int, parts []string) error {
		switch parts[0] {
		case VertexTag:
			if err := p.addVertex(parts, idx); err != nil {
				return &ParseError{File: name, Stage: StageRecordScan, Line: lineNo, Err: err}
			}
			result.VertexRecords++
		case EdgeTag:
			isNew, err := p.addEdge(parts, maxSeqLen, idx, result.Edges)
			if err != nil {
				return &ParseError{File: name, Stage: StageRecordScan, Line: lineNo, Err: err}
			}
			result.EdgeRecords++
			if !isNew {
				result.DuplicateRecords++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Str("file", name).
		Str("dialect", p.dialect.String()).
		Int("vertex_records", result.VertexRecords).
		Int("edge_records", result.EdgeRecords).
		Int("distinct_pairs", result.Edges.Len()).
		Msg("Record scan completed")

	return result, nil
}

func (p *Parser) addVertex(parts []string, idx *readindex.Index) error {
	if len(parts) < minVertexFields {
		return fmt.Errorf("%w: vertex record without read id", ErrMalformedRecord)
	}
	id, err := p.canonicalize(parts[vertexIDField])
	if err != nil {
		return err
	}
	idx.Ensure(id)
	return nil
}

func (p *Parser) addEdge(parts []string, maxSeqLen int, idx *readindex.Index, edges *EdgeSet) (bool, error) {
	if len(parts) < p.dialect.minEdgeFields() {
		return false, fmt.Errorf("%w: %s edge record has %d fields, need %d",
			ErrMalformedRecord, p.dialect, len(parts), p.dialect.minEdgeFields())
	}

	first, err := p.canonicalize(parts[edgeFirstField])
	if err != nil {
		return false, err
	}
	other, err := p.canonicalize(parts[edgeOtherField])
	if err != nil {
		return false, err
	}
	u := idx.Ensure(first)
	v := idx.Ensure(other)

	length, err := p.dialect.overlapLength(parts)
	if err != nil {
		return false, err
	}
	weight := float64(length) / float64(maxSeqLen)

	return edges.Add(u, v, weight, p.dialect.merge), nil
}

// ScanMaxLength is the first pass: it returns the largest sequence length
// over all edge records and the number of edge records seen
func ScanMaxLength(data []byte, name string) (int, int, error) {
	maxSeqLen := 0
	edgeRecords := 0

	err := eachRecord(data, func(lineNo int, parts []string) error {
		if parts[0] != EdgeTag {
			return nil
		}
		if len(parts) < minLengthFields {
			return &ParseError{File: name, Stage: StageLengthScan, Line: lineNo,
				Err: fmt.Errorf("%w: edge record has %d fields, need %d", ErrMalformedRecord, len(parts), minLengthFields)}
		}
		for _, field := range []int{seq1LenField, seq2LenField} {
			seqLen, err := parseLength(parts, field, "sequence length")
			if err != nil {
				return &ParseError{File: name, Stage: StageLengthScan, Line: lineNo, Err: err}
			}
			if seqLen > maxSeqLen {
				maxSeqLen = seqLen
			}
		}
		edgeRecords++
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return maxSeqLen, edgeRecords, nil
}

// eachRecord calls fn with the whitespace separated fields of every
// non-blank line
func eachRecord(data []byte, fn func(lineNo int, parts []string) error) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		if err := fn(lineNo, parts); err != nil {
			return err
		}
	}
	return scanner.Err()
}
