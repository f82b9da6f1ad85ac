package models

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// CommandOutcome is the captured result of one subprocess invocation
type CommandOutcome struct {
	Status    Status    `json:"status"`
	Output    string    `json:"output"`
	Error     string    `json:"error,omitempty"`
	Command   string    `json:"command"`
	Timestamp time.Time `json:"timestamp"`
}

func (o CommandOutcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// ResultSet is the accumulated state of one benchmark run
type ResultSet struct {
	RunID            string                    `json:"run_id"`
	StartedAt        time.Time                 `json:"started_at"`
	SystemInfo       map[string]interface{}    `json:"system_info"`
	BenchmarkResults map[string]CommandOutcome `json:"benchmark_results"`
}

func NewResultSet(runID string, startedAt time.Time) *ResultSet {
	return &ResultSet{
		RunID:            runID,
		StartedAt:        startedAt,
		SystemInfo:       make(map[string]interface{}),
		BenchmarkResults: make(map[string]CommandOutcome),
	}
}

// Add stores the outcome of a sub-test. Keys are never overwritten within a run.
func (r *ResultSet) Add(key string, outcome CommandOutcome) error {
	if _, ok := r.BenchmarkResults[key]; ok {
		return fmt.Errorf("result %s already recorded", key)
	}
	r.BenchmarkResults[key] = outcome
	return nil
}

// Succeeded returns the outcome stored under key if the sub-test ran and succeeded
func (r *ResultSet) Succeeded(key string) (CommandOutcome, bool) {
	outcome, ok := r.BenchmarkResults[key]
	if !ok || !outcome.Succeeded() {
		return CommandOutcome{}, false
	}
	return outcome, true
}
