// Package output writes the final read labels.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// ResultSuffix is appended to the prefix to name the result file
const ResultSuffix = "CG.res"

// ReadIDs resolves an index to the stored read identifier
type ReadIDs interface {
	ReadID(i int) (string, bool)
	Len() int
}

// FileWriter writes "read_id<TAB>label" lines in index order
type FileWriter struct{}

// NewFileWriter creates a new file-based output writer
func NewFileWriter() *FileWriter {
	return &FileWriter{}
}

// ResultPath returns the result file path for an output directory and prefix
func ResultPath(outputDir, prefix string) string {
	return filepath.Join(outputDir, prefix+ResultSuffix)
}

// WriteLabels writes one line per index. labels must cover every read.
func (fw *FileWriter) WriteLabels(w io.Writer, reads ReadIDs, labels []int) error {
	if len(labels) != reads.Len() {
		return fmt.Errorf("got %d labels for %d reads", len(labels), reads.Len())
	}

	bw := bufio.NewWriter(w)
	for i, label := range labels {
		id, ok := reads.ReadID(i)
		if !ok {
			return fmt.Errorf("no read id for index %d", i)
		}
		bw.WriteString(id)
		bw.WriteByte('\t')
		bw.WriteString(strconv.Itoa(label))
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the labels to path. The file only appears once it is
// complete; on error nothing is left behind.
func (fw *FileWriter) WriteFile(path string, reads ReadIDs, labels []int) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()

	if err := fw.WriteLabels(tmp, reads, labels); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write labels: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	return nil
}
