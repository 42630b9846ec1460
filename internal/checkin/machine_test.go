package checkin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kidgate/pkg/errors"
)

func TestNext_LegalTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   Status
		action Action
		want   Status
	}{
		{"raise alert on active", StatusActive, ActionRaiseAlert, StatusAlert},
		{"check out active", StatusActive, ActionCheckOut, StatusCompleted},
		{"resolve alert", StatusAlert, ActionResolveAlert, StatusActive},
		{"check out alerting", StatusAlert, ActionCheckOut, StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed, err := Next(tt.from, tt.action)
			require.NoError(t, err)
			assert.True(t, changed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_RaiseAlertIsIdempotent(t *testing.T) {
	got, changed, err := Next(StatusAlert, ActionRaiseAlert)

	require.NoError(t, err)
	assert.False(t, changed, "duplicate raise must be a no-op, not an error")
	assert.Equal(t, StatusAlert, got)
}

func TestNext_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   Status
		action Action
	}{
		{"resolve without alert", StatusActive, ActionResolveAlert},
		{"raise on completed", StatusCompleted, ActionRaiseAlert},
		{"resolve on completed", StatusCompleted, ActionResolveAlert},
		{"check out twice", StatusCompleted, ActionCheckOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, changed, err := Next(tt.from, tt.action)
			require.Error(t, err)
			assert.False(t, changed)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		})
	}
}
