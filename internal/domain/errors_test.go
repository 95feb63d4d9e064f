package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPreconditionCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
		ok   bool
	}{
		{ErrJobInProgress, "job_in_progress", true},
		{fmt.Errorf("node 3: %w", ErrTooFar), "too_far", true},
		{&InsufficientResourcesError{Missing: map[string]int{"wood": 1}}, "insufficient_resources", true},
		{ErrStationLevelTooLow, "station_level_too_low", true},
		{ErrNotFound, "", false},
		{ErrNoActiveJob, "", false},
		{errors.New("boom"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			code, ok := PreconditionCode(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "job is not ready: 12s remaining", (&NotReadyError{Remaining: 12 * time.Second}).Error())
	assert.Equal(t, "job is paused with 5s remaining", (&NotReadyError{Remaining: 5 * time.Second, Paused: true}).Error())

	assert.Equal(t, "tool_id: unknown tool", (&ValidationError{Field: "tool_id", Message: "unknown tool"}).Error())
}
