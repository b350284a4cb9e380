package overlap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/classgraph/pkg/readindex"
)

// sgaEdge formats an asqg edge record
func sgaEdge(a, b string, start, end, len1, len2 int) string {
	return fmt.Sprintf("ED\t%s %s %d %d %d 0 %d %d 0 0", a, b, start, end, len1, end-start, len2)
}

// minimapEdge formats a minimap2 edge record with the block length in field 12
func minimapEdge(a, b string, len1, len2, block int) string {
	return fmt.Sprintf("ED\t%s\t%s\t0\t%d\t%d\t+\t0\t%d\t%d\t%d\t%d", a, b, block, len1, len2, block, block, block)
}

func vertex(id string) string {
	return "VT\t" + id + "\tACGT\tSS:i:0"
}

func graphData(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func newTestParser(t *testing.T, dialect Dialect, rt readindex.ReadType) *Parser {
	t.Helper()
	canon, err := readindex.NewCanonicalizer(rt)
	require.NoError(t, err)
	p, err := NewParser(dialect, canon, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func TestScanMaxLengthUsesWholeFile(t *testing.T) {
	data := graphData(
		"HT\tVN:Z:1.0",
		vertex("r1"),
		sgaEdge("r1", "r2", 0, 9, 20, 35),
		sgaEdge("r2", "r3", 0, 4, 12, 100),
	)

	maxLen, edges, err := ScanMaxLength(data, "g.asqg")
	require.NoError(t, err)
	assert.Equal(t, 100, maxLen)
	assert.Equal(t, 2, edges)
}

func TestParseSGANormalizesAgainstGlobalMaximum(t *testing.T) {
	data := graphData(
		sgaEdge("r1", "r2", 0, 9, 20, 20),
		sgaEdge("r3", "r4", 10, 19, 40, 20),
	)

	idx := readindex.New()
	res, err := newTestParser(t, SGA, readindex.SingleEnd).Parse(data, "g.asqg", idx)
	require.NoError(t, err)

	assert.Equal(t, 40, res.MaxSeqLen)
	w, ok := res.Edges.Weight(0, 1)
	require.True(t, ok)
	assert.InDelta(t, 10.0/40.0, w, 1e-12)
}

func TestChangingNonMaximumLengthKeepsWeights(t *testing.T) {
	build := func(len2 int) float64 {
		data := graphData(
			sgaEdge("r1", "r2", 0, 9, 50, len2),
			sgaEdge("r2", "r3", 0, 19, 30, 30),
		)
		res, err := newTestParser(t, SGA, readindex.SingleEnd).Parse(data, "g", readindex.New())
		require.NoError(t, err)
		w, ok := res.Edges.Weight(1, 2)
		require.True(t, ok)
		return w
	}

	assert.Equal(t, build(20), build(45))
}

func TestSGADuplicatesKeepMaximum(t *testing.T) {
	for name, order := range map[string][2][2]int{
		"WeakFirst":   {{0, 2}, {0, 6}},
		"StrongFirst": {{0, 6}, {0, 2}},
	} {
		t.Run(name, func(t *testing.T) {
			data := graphData(
				sgaEdge("a", "b", order[0][0], order[0][1], 10, 10),
				sgaEdge("b", "a", order[1][0], order[1][1], 10, 10),
			)
			res, err := newTestParser(t, SGA, readindex.SingleEnd).Parse(data, "g", readindex.New())
			require.NoError(t, err)

			assert.Equal(t, 1, res.Edges.Len())
			assert.Equal(t, 1, res.DuplicateRecords)
			w, _ := res.Edges.Weight(0, 1)
			assert.InDelta(t, 0.7, w, 1e-12)
		})
	}
}

func TestMinimap2DuplicatesKeepLastSeen(t *testing.T) {
	tests := []struct {
		name     string
		blocks   [2]int
		expected float64
	}{
		{"AscendingOrder", [2]int{3, 7}, 0.7},
		{"DescendingOrder", [2]int{7, 3}, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := graphData(
				minimapEdge("a", "b", 10, 10, tt.blocks[0]),
				minimapEdge("a", "b", 10, 10, tt.blocks[1]),
			)
			res, err := newTestParser(t, Minimap2, readindex.SingleEnd).Parse(data, "g.paf", readindex.New())
			require.NoError(t, err)

			w, ok := res.Edges.Weight(0, 1)
			require.True(t, ok)
			assert.InDelta(t, tt.expected, w, 1e-12)
		})
	}
}

func TestParseIndexesVerticesAndNewEdgeEndpoints(t *testing.T) {
	idx := readindex.New()
	_, err := idx.AddLabeled("r1", 5)
	require.NoError(t, err)

	data := graphData(
		vertex("r9/1"),
		sgaEdge("r1/1", "r3/2", 0, 9, 20, 20),
		vertex("r1/2"),
	)

	res, err := newTestParser(t, SGA, readindex.PairedEnd).Parse(data, "g", idx)
	require.NoError(t, err)

	assert.Equal(t, 2, res.VertexRecords)
	assert.Equal(t, 1, res.EdgeRecords)
	require.Equal(t, 3, idx.Len())
	for i, id := range []string{"r1", "r9", "r3"} {
		got, ok := idx.ReadID(i)
		require.True(t, ok)
		assert.Equal(t, id, got)
	}
	assert.Equal(t, []int{5, 0, 0}, idx.Labels())
}

func TestMatesOfOneReadProduceSelfPair(t *testing.T) {
	data := graphData(sgaEdge("r1/1", "r1/2", 0, 9, 20, 20))

	res, err := newTestParser(t, SGA, readindex.PairedEnd).Parse(data, "g", readindex.New())
	require.NoError(t, err)

	edges := res.Edges.Edges()
	require.Len(t, edges, 1)
	assert.True(t, edges[0].SelfPair())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		data    []byte
		stage   string
		line    int
		target  error
	}{
		{"ShortEdgeInLengthScan", SGA, graphData(vertex("a"), "ED a b 0 9"), StageLengthScan, 2, ErrMalformedRecord},
		{"NonNumericLength", SGA, graphData("ED a b 0 9 twenty 0 9 20 0 0"), StageLengthScan, 1, ErrMalformedRecord},
		{"NonNumericStart", SGA, graphData("ED a b x 9 20 0 9 20 0 0"), StageRecordScan, 1, ErrMalformedRecord},
		{"EndBeforeStart", SGA, graphData(sgaEdge("a", "b", 9, 2, 20, 20)), StageRecordScan, 1, ErrMalformedRecord},
		{"MissingBlockLength", Minimap2, graphData(sgaEdge("a", "b", 0, 9, 20, 20)), StageRecordScan, 1, ErrMalformedRecord},
		{"VertexWithoutID", SGA, graphData("VT"), StageRecordScan, 1, ErrMalformedRecord},
		{"ZeroLengths", SGA, graphData(sgaEdge("a", "b", 0, 0, 0, 0)), StageLengthScan, 0, ErrZeroMaxLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser(t, tt.dialect, readindex.SingleEnd).Parse(tt.data, "bad.asqg", readindex.New())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "bad.asqg", perr.File)
			assert.Equal(t, tt.stage, perr.Stage)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestShortPairedIdentifierIsRejected(t *testing.T) {
	data := graphData(vertex("/1"))
	_, err := newTestParser(t, SGA, readindex.PairedEnd).Parse(data, "g", readindex.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, readindex.ErrShortIdentifier))
}

func TestGraphWithoutEdges(t *testing.T) {
	idx := readindex.New()
	res, err := newTestParser(t, Minimap2, readindex.SingleEnd).Parse(graphData(vertex("a"), vertex("b")), "g", idx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.MaxSeqLen)
	assert.Equal(t, 0, res.Edges.Len())
	assert.Equal(t, 2, idx.Len())
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reads.asqg")
	require.NoError(t, os.WriteFile(path, graphData(sgaEdge("a", "b", 0, 9, 20, 20)), 0644))

	res, err := newTestParser(t, SGA, readindex.SingleEnd).ParseFile(path, readindex.New())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Edges.Len())

	_, err = newTestParser(t, SGA, readindex.SingleEnd).ParseFile(path+".missing", readindex.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewParserRejectsUnknownDialect(t *testing.T) {
	_, err := NewParser(Dialect(7), nil, zerolog.Nop())
	require.Error(t, err)
	assert.False(t, Dialect(7).Valid())
}
