package model

import "time"

// RunStatus represents the current state of a command run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one invocation of extract, validate, or heal.
type Run struct {
	ID        string     `json:"id"`
	Command   string     `json:"command"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Healed    int           `json:"healed"`
	Phases    []PhaseResult `json:"phases"`
	Error     string        `json:"error,omitempty"`
}

// RunPhase tracks one state of a run in the ledger.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseStatus represents the current state of a run phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a run phase.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TurnFailure records a document whose turn produced nothing. The document
// stays eligible for the next invocation.
type TurnFailure struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	SourceID  string    `json:"source_id"`
	Stage     string    `json:"stage"`
	Kind      string    `json:"kind"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}
