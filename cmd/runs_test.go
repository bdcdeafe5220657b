package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/study-extract/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Command:   "heal",
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{Processed: 12, Succeeded: 9, Healed: 2, Failed: 1},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Command:   "extract",
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "COMMAND")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "heal")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "11")
	assert.Contains(t, output, "extract")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "2m0s")
}

func TestFormatRunDetail(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	run := &model.Run{
		ID:      "run-1",
		Command: "validate",
		Status:  model.RunStatusFailed,
		Result: &model.RunResult{
			Processed: 3,
			Succeeded: 1,
			Failed:    2,
			Error:     "validate: cancelled",
		},
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
	}
	phases := []model.RunPhase{
		{Name: "validate", Status: model.PhaseStatusFailed, Result: &model.PhaseResult{Duration: 1500, Error: "context canceled"}},
	}
	failures := []model.TurnFailure{
		{SourceID: "a.pdf", Stage: "validate", Kind: "InteractionTimeout", Error: "no reply"},
	}

	var buf bytes.Buffer
	formatRunDetail(&buf, run, phases, failures)

	output := buf.String()
	assert.Contains(t, output, "run-1")
	assert.Contains(t, output, "validate: cancelled")
	assert.Contains(t, output, "Phases:")
	assert.Contains(t, output, "1.5s")
	assert.Contains(t, output, "context canceled")
	assert.Contains(t, output, "Turn failures:")
	assert.Contains(t, output, "a.pdf")
	assert.Contains(t, output, "InteractionTimeout")
	assert.NotContains(t, output, "Healed:")
}

func TestFormatRunDetail_NoResult(t *testing.T) {
	var buf bytes.Buffer
	formatRunDetail(&buf, &model.Run{ID: "run-2", Command: "extract", Status: model.RunStatusRunning}, nil, nil)

	output := buf.String()
	assert.Contains(t, output, "running")
	assert.NotContains(t, output, "Processed:")
	assert.NotContains(t, output, "Phases:")
	assert.NotContains(t, output, "Turn failures:")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
