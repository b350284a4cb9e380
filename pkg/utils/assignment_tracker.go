package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// AssignmentEvent is one label given to a read during propagation
type AssignmentEvent struct {
	Round     int     `json:"round"`
	Driver    string  `json:"driver"`
	Node      int     `json:"node"`
	Label     int     `json:"label"`
	Weight    float64 `json:"weight"`
	Timestamp int64   `json:"timestamp"`
}

// AssignmentTracker writes assignment events as JSON lines
type AssignmentTracker struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	driver  string
	events  int
	err     error
}

// NewAssignmentTracker creates the tracking file
func NewAssignmentTracker(filename, driver string) (*AssignmentTracker, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("could not create tracking file %s: %w", filename, err)
	}

	return &AssignmentTracker{
		file:    file,
		encoder: json.NewEncoder(file),
		driver:  driver,
	}, nil
}

// LogAssignment records one event. A nil tracker ignores the call.
func (at *AssignmentTracker) LogAssignment(round, node, label int, weight float64) {
	if at == nil {
		return
	}
	at.mu.Lock()
	defer at.mu.Unlock()

	if at.err != nil {
		return
	}

	event := AssignmentEvent{
		Round:     round,
		Driver:    at.driver,
		Node:      node,
		Label:     label,
		Weight:    weight,
		Timestamp: time.Now().Unix(),
	}
	if err := at.encoder.Encode(event); err != nil {
		at.err = err
		return
	}
	at.events++
}

// Events returns the number of events written
func (at *AssignmentTracker) Events() int {
	if at == nil {
		return 0
	}
	at.mu.Lock()
	defer at.mu.Unlock()
	return at.events
}

// Close closes the file and reports the first write error, if any
func (at *AssignmentTracker) Close() error {
	if at == nil || at.file == nil {
		return nil
	}
	at.mu.Lock()
	defer at.mu.Unlock()

	closeErr := at.file.Close()
	at.file = nil
	if at.err != nil {
		return at.err
	}
	return closeErr
}
