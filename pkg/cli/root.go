// Package cli is the classgraph command line
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/classgraph/pkg/config"
	"github.com/gilchrisn/classgraph/pkg/pipeline"
)

// flag name to configuration key
var flagKeys = map[string]string{
	"graph":             config.KeyGraph,
	"binned":            config.KeyBinned,
	"output":            config.KeyOutputDir,
	"prefix":            config.KeyPrefix,
	"max_iteration":     config.KeyMaxIterations,
	"lp_version":        config.KeyLPVersion,
	"read_type":         config.KeyReadType,
	"assembler":         config.KeyAssembler,
	"log-level":         config.KeyLogLevel,
	"track-assignments": config.KeyTrackAssignments,
	"tracking-file":     config.KeyTrackingFile,
}

// NewRootCommand builds the classgraph command around a fresh configuration
func NewRootCommand() *cobra.Command {
	cfg := config.NewConfig()
	var configPath string

	cmd := &cobra.Command{
		Use:   "classgraph",
		Short: "Refine read-level taxonomic binning with the assembly overlap graph",
		Long: `Refine read-level taxonomic binning with the assembly overlap graph.

classgraph reads an initial binning of reads (read id and label per line, 0 meaning
unlabeled) and an overlap graph (SGA asqg or minimap2 records), builds a weighted
read overlap graph and propagates labels from labeled reads to their unlabeled
neighbors. The refined labels are written to <output>/<prefix>CG.res.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := cfg.LoadFromFile(configPath); err != nil {
					return &pipeline.StageError{Stage: pipeline.StageConfig, File: configPath, Err: err}
				}
			}
			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML/JSON/TOML run configuration")
	flags.StringP("graph", "g", "", "path to the assembly graph file")
	flags.StringP("binned", "b", "", "path to the initial binning result")
	flags.StringP("output", "o", "", "output folder")
	flags.String("prefix", "", "prefix for the output files")
	flags.Int("max_iteration", 20, "maximum number of label propagation rounds")
	flags.Int("lp_version", 1, "label propagation variant (1 = vote, 2 = sweep)")
	flags.Int("read_type", 1, "read type (1 = paired-end, 2 = single-end)")
	flags.Int("assembler", 1, "graph dialect (1 = SGA, 2 = minimap2)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("track-assignments", false, "write every label assignment as JSON lines")
	flags.String("tracking-file", "", "assignment tracking file (default <output>/<prefix>assignments.jsonl)")

	// Bind the parameters to viper
	for name, key := range flagKeys {
		if err := cfg.Viper().BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}

	return cmd
}

func run(cfg *config.Config) error {
	settings, err := cfg.Settings()
	if err != nil {
		return &pipeline.StageError{Stage: pipeline.StageConfig, Err: err}
	}

	if err := os.MkdirAll(settings.Output.Dir, 0755); err != nil {
		return &pipeline.StageError{Stage: pipeline.StageOutput, File: settings.Output.Dir, Err: err}
	}
	logFile, err := os.Create(settings.LogFile())
	if err != nil {
		return &pipeline.StageError{Stage: pipeline.StageOutput, File: settings.LogFile(), Err: err}
	}
	defer logFile.Close()

	logger := cfg.CreateLogger(logFile)

	result, err := pipeline.New(settings, logger).Run()
	if err != nil {
		event := logger.Error().Err(err)
		var se *pipeline.StageError
		if errors.As(err, &se) {
			event = event.Str("stage", se.Stage).Str("file", se.File)
		}
		event.Msg("classgraph failed")
		return err
	}

	logger.Info().
		Int("reads", result.Index.Len()).
		Int("edges", result.Graph.NumEdges).
		Int("labeled_before", len(result.Input.Anchors)).
		Int("unlabeled_after", result.UnlabeledAfter).
		Str("output_file", result.OutputFile).
		Msg("Complete")

	return nil
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return NewRootCommand().Execute()
}
