package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusQueued, "queued"},
		{RunStatusRunning, "running"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestPhaseStatusValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "running", string(PhaseStatusRunning))
	assert.Equal(t, "complete", string(PhaseStatusComplete))
	assert.Equal(t, "failed", string(PhaseStatusFailed))
	assert.Equal(t, "skipped", string(PhaseStatusSkipped))
}
