// Package classification loads the initial binning of reads into a
// readindex.Index.
package classification

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gilchrisn/classgraph/pkg/readindex"
)

var (
	// ErrMalformedRecord marks a line without an id and an integer label
	ErrMalformedRecord = errors.New("malformed classification record")
	// ErrDuplicateRead marks a read listed twice
	ErrDuplicateRead = errors.New("duplicate read in classification")
)

// ParseError reports the line of the classification file that failed
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Stats summarizes a loaded classification file
type Stats struct {
	Records   int
	Labeled   int
	Unlabeled int
}

// ReadFile loads a classification file into idx
func ReadFile(filename string, idx *readindex.Index) (Stats, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Stats{}, fmt.Errorf("could not open classification file %s: %w", filename, err)
	}
	defer file.Close()

	return Read(file, filename, idx)
}

// Read loads "read_id label" records into idx in file order. Identifiers
// are used verbatim. Blank lines are skipped; extra columns are ignored.
func Read(r io.Reader, name string, idx *readindex.Index) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		if len(parts) < 2 {
			return stats, &ParseError{File: name, Line: lineNo,
				Err: fmt.Errorf("%w: expected read id and label, got %d field(s)", ErrMalformedRecord, len(parts))}
		}

		label, err := strconv.Atoi(parts[1])
		if err != nil {
			return stats, &ParseError{File: name, Line: lineNo,
				Err: fmt.Errorf("%w: label %q is not an integer", ErrMalformedRecord, parts[1])}
		}

		if _, err := idx.AddLabeled(parts[0], label); err != nil {
			return stats, &ParseError{File: name, Line: lineNo,
				Err: fmt.Errorf("%w: %v", ErrDuplicateRead, err)}
		}

		stats.Records++
		if label != readindex.Unlabeled {
			stats.Labeled++
		} else {
			stats.Unlabeled++
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("error reading %s: %w", name, err)
	}

	return stats, nil
}
