package pipeline

import "fmt"

// Stages a run can fail in
const (
	StageConfig         = "config"
	StageOpen           = "open"
	StageClassification = "classification"
	StageGraph          = "graph"
	StagePropagation    = "propagation"
	StageOutput         = "output"
)

// StageError tags a failure with the stage and file it happened in
type StageError struct {
	Stage string
	File  string
	Err   error
}

func (e *StageError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.File, e.Err)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage, file string, err error) error {
	return &StageError{Stage: stage, File: file, Err: err}
}
