// Package pipeline runs a complete classgraph job: read the initial
// binning, build the overlap graph, propagate labels and write them out.
package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/classgraph/pkg/classification"
	"github.com/gilchrisn/classgraph/pkg/config"
	"github.com/gilchrisn/classgraph/pkg/output"
	"github.com/gilchrisn/classgraph/pkg/overlap"
	"github.com/gilchrisn/classgraph/pkg/propagation"
	"github.com/gilchrisn/classgraph/pkg/readgraph"
	"github.com/gilchrisn/classgraph/pkg/readindex"
	"github.com/gilchrisn/classgraph/pkg/utils"
)

// Pipeline owns the settings and collaborators of one run
type Pipeline struct {
	settings *config.Settings
	logger   zerolog.Logger
	driver   propagation.Driver
	writer   *output.FileWriter
	runID    string
}

// Result contains the complete run output
type Result struct {
	RunID            string
	Index            *readindex.Index
	Graph            *readgraph.Graph
	Input            *propagation.Input
	Classification   classification.Stats
	MaxSeqLen        int
	EdgeRecords      int
	DuplicateRecords int
	SelfPairsDropped int
	Summary          readgraph.Summary
	UnlabeledBefore  int
	UnlabeledAfter   int
	Propagation      propagation.Report
	OutputFile       string
	TrackingFile     string
	TotalRuntimeMS   int64
}

// New creates a pipeline for validated settings
func New(settings *config.Settings, logger zerolog.Logger) *Pipeline {
	runID := uuid.NewString()
	return &Pipeline{
		settings: settings,
		logger:   logger.With().Str("run_id", runID).Logger(),
		writer:   output.NewFileWriter(),
		runID:    runID,
	}
}

// WithDriver replaces the built-in driver selected by lp_version
func (p *Pipeline) WithDriver(driver propagation.Driver) *Pipeline {
	p.driver = driver
	return p
}

// Run executes every stage in order. Any failure aborts the run before the
// result file is written.
func (p *Pipeline) Run() (*Result, error) {
	startTime := time.Now()
	s := p.settings

	if err := s.Validate(); err != nil {
		return nil, stageErr(StageConfig, "", err)
	}

	dialect := overlap.Dialect(s.Input.Assembler)
	readType := readindex.ReadType(s.Input.ReadType)
	variant := propagation.Variant(s.Algorithm.LPVersion)

	p.logger.Info().
		Str("graph", s.Input.Graph).
		Str("binned", s.Input.Binned).
		Str("output", s.Output.Dir).
		Int("max_iterations", s.Algorithm.MaxIterations).
		Str("variant", variant.String()).
		Str("read_type", readType.String()).
		Str("assembler", dialect.String()).
		Msg("Starting classgraph")

	// Step 1: Both inputs must be readable before anything is built
	for _, path := range []string{s.Input.Graph, s.Input.Binned} {
		if err := checkReadable(path); err != nil {
			return nil, stageErr(StageOpen, path, err)
		}
	}

	result := &Result{RunID: p.runID}

	// Step 2: Initial binning fixes the first indices
	idx := readindex.New()
	stats, err := classification.ReadFile(s.Input.Binned, idx)
	if err != nil {
		return nil, stageErr(StageClassification, s.Input.Binned, err)
	}
	result.Classification = stats

	p.logger.Info().
		Int("records", stats.Records).
		Int("labeled", stats.Labeled).
		Msg("Loaded initial binning")

	// Step 3: Overlap records, both passes
	canonicalize, err := readindex.NewCanonicalizer(readType)
	if err != nil {
		return nil, stageErr(StageConfig, "", err)
	}
	parser, err := overlap.NewParser(dialect, canonicalize, p.logger)
	if err != nil {
		return nil, stageErr(StageConfig, "", err)
	}
	parsed, err := parser.ParseFile(s.Input.Graph, idx)
	if err != nil {
		return nil, stageErr(StageGraph, s.Input.Graph, err)
	}
	result.MaxSeqLen = parsed.MaxSeqLen
	result.EdgeRecords = parsed.EdgeRecords
	result.DuplicateRecords = parsed.DuplicateRecords

	// Step 4: Materialize the graph over the final index space
	graph, buildStats, err := readgraph.Build(parsed.Edges.Edges(), idx.Len())
	if err != nil {
		return nil, stageErr(StageGraph, s.Input.Graph, err)
	}
	if err := graph.Validate(); err != nil {
		return nil, stageErr(StageGraph, s.Input.Graph, fmt.Errorf("graph validation failed: %w", err))
	}
	result.Graph = graph
	result.SelfPairsDropped = buildStats.SelfPairsDropped
	result.Summary = graph.Summarize()

	p.logger.Info().
		Int("reads", idx.Len()).
		Int("max_seq_len", parsed.MaxSeqLen).
		Int("edge_records", parsed.EdgeRecords).
		Int("duplicate_records", parsed.DuplicateRecords).
		Int("self_pairs_dropped", buildStats.SelfPairsDropped).
		Int("edges", graph.NumEdges).
		Int("components", result.Summary.Components).
		Int("isolated", result.Summary.Isolated).
		Msg("Built assembly graph")

	// Step 5: Propagation input
	input, err := propagation.Assemble(graph, idx.Labels(), variant)
	if err != nil {
		return nil, stageErr(StagePropagation, "", err)
	}
	result.Input = input
	result.UnlabeledBefore = input.Unlabeled()

	p.logger.Info().
		Int("anchors", len(input.Anchors)).
		Int("unlabeled", result.UnlabeledBefore).
		Msg("Prepared data for label propagation")

	// Step 6: Propagate
	report, trackingFile, err := p.propagate(input)
	if err != nil {
		p.logger.Error().
			Err(err).
			Int("max_iterations", s.Algorithm.MaxIterations).
			Str("variant", variant.String()).
			Msg("Label propagation failed, check max_iteration and lp_version")
		return nil, stageErr(StagePropagation, "", err)
	}
	result.Propagation = report
	result.TrackingFile = trackingFile
	result.UnlabeledAfter = input.Unlabeled()

	if err := idx.SetLabels(input.Labels()); err != nil {
		return nil, stageErr(StagePropagation, "", err)
	}
	result.Index = idx

	p.logger.Info().
		Int("rounds", report.Rounds).
		Int("assigned", report.Assigned).
		Bool("converged", report.Converged).
		Int("unlabeled", result.UnlabeledAfter).
		Msg("Label propagation completed")

	// Step 7: Results
	outputFile := output.ResultPath(s.Output.Dir, s.Output.Prefix)
	if err := p.writer.WriteFile(outputFile, idx, idx.Labels()); err != nil {
		return nil, stageErr(StageOutput, outputFile, err)
	}
	result.OutputFile = outputFile
	result.TotalRuntimeMS = time.Since(startTime).Milliseconds()

	p.logger.Info().
		Str("output_file", outputFile).
		Int64("runtime_ms", result.TotalRuntimeMS).
		Msg("Label propagation terminated")

	return result, nil
}

// propagate runs the configured driver, with assignment tracking when
// enabled
func (p *Pipeline) propagate(input *propagation.Input) (propagation.Report, string, error) {
	s := p.settings

	var tracker *utils.AssignmentTracker
	trackingFile := ""
	if s.Analysis.TrackAssignments {
		trackingFile = s.TrackingFile()
		if err := os.MkdirAll(s.Output.Dir, 0755); err != nil {
			return propagation.Report{}, "", fmt.Errorf("failed to create output directory: %w", err)
		}
		t, err := utils.NewAssignmentTracker(trackingFile, input.Variant.String())
		if err != nil {
			return propagation.Report{}, "", err
		}
		tracker = t
	}

	driver := p.driver
	if driver == nil {
		var logger propagation.AssignmentLogger
		if tracker != nil {
			logger = tracker
		}
		d, err := propagation.NewDriver(input.Variant, logger)
		if err != nil {
			tracker.Close()
			return propagation.Report{}, "", err
		}
		driver = d
	}

	p.logger.Info().Str("variant", input.Variant.String()).Msg("Starting label propagation")

	report, err := driver.Propagate(s.Algorithm.MaxIterations, input.Records)
	closeErr := tracker.Close()
	if err != nil {
		return report, "", err
	}
	if closeErr != nil {
		return report, "", fmt.Errorf("failed to write assignment tracking: %w", closeErr)
	}

	if tracker != nil {
		p.logger.Debug().Int("events", tracker.Events()).Str("file", trackingFile).Msg("Assignment tracking written")
	}

	return report, trackingFile, nil
}

func checkReadable(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
