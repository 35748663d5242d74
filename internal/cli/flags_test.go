package cli

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

func TestIsValidOutputFormat(t *testing.T) {
	assert.True(t, IsValidOutputFormat(OutputText))
	assert.True(t, IsValidOutputFormat(OutputJSON))
	assert.False(t, IsValidOutputFormat("yaml"))
	assert.False(t, IsValidOutputFormat(""))
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{"nil", nil, 0},
		{"usage", wardenerrors.ErrUsage, 2},
		{"invalid output format", wardenerrors.ErrInvalidOutputFormat, 2},
		{"dependency unmet", wardenerrors.ErrDependencyUnmet, 4},
		{"identity conflict", wardenerrors.ErrIdentityConflict, 3},
		{"integrity failure", wardenerrors.ErrIntegrityFailure, 5},
		{"generic", stderrors.New("boom"), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedCode, ExitCodeForError(tc.err))
		})
	}
}

func TestParseVerdict(t *testing.T) {
	v, err := parseVerdict("approve")
	assert.NoError(t, err)
	assert.Equal(t, "APPROVE", string(v))

	v, err = parseVerdict("REJECT")
	assert.NoError(t, err)
	assert.Equal(t, "REJECT", string(v))

	_, err = parseVerdict("maybe")
	assert.ErrorIs(t, err, wardenerrors.ErrInvalidVerdict)
}

func TestDecodeJSONArg(t *testing.T) {
	var payload map[string]any
	assert.NoError(t, decodeJSONArg(`{"a":1}`, &payload))
	assert.Equal(t, float64(1), payload["a"])

	assert.ErrorIs(t, decodeJSONArg("", &payload), wardenerrors.ErrUsage)
	assert.ErrorIs(t, decodeJSONArg("{broken", &payload), wardenerrors.ErrUsage)
	assert.ErrorIs(t, decodeJSONArg("@/nonexistent/file.json", &payload), wardenerrors.ErrUsage)
}
