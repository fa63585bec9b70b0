package turnos

import (
	"testing"
	"time"

	"rutacontrol-backend/internal/localtime"
	"rutacontrol-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateStartStateGuards(t *testing.T) {
	scheduled := time.Date(2024, 5, 10, 8, 0, 0, 0, localtime.Lima)
	now := scheduled.Add(10 * time.Minute)

	tests := []struct {
		estado  models.TurnoEstado
		wantErr error
	}{
		{models.TurnoEnRuta, ErrAlreadyStarted},
		{models.TurnoDeserto, ErrDeserto},
		{models.TurnoFinalizado, ErrFinalizado},
		{models.TurnoEstado("CANCELADO"), ErrInvalidTransition},
	}

	for _, tt := range tests {
		err := EvaluateStart(tt.estado, scheduled, now, 2*time.Hour)
		assert.ErrorIs(t, err, tt.wantErr, "estado %s", tt.estado)
	}
}

func TestEvaluateStartTooEarly(t *testing.T) {
	scheduled := time.Date(2024, 5, 10, 8, 0, 0, 0, localtime.Lima)

	err := EvaluateStart(models.TurnoPendiente, scheduled, scheduled.Add(-30*time.Minute), 2*time.Hour)
	var tooEarly *TooEarlyError
	require.ErrorAs(t, err, &tooEarly)
	assert.Equal(t, 30, tooEarly.MinutesLeft)
	assert.True(t, tooEarly.Scheduled.Equal(scheduled))

	// Remaining time rounds up: 30 seconds early still reports 1 minute
	err = EvaluateStart(models.TurnoPendiente, scheduled, scheduled.Add(-30*time.Second), 2*time.Hour)
	require.ErrorAs(t, err, &tooEarly)
	assert.Equal(t, 1, tooEarly.MinutesLeft)
}

func TestEvaluateStartWindow(t *testing.T) {
	scheduled := time.Date(2024, 5, 10, 8, 0, 0, 0, localtime.Lima)
	threshold := 2 * time.Hour

	// Exactly on time
	assert.NoError(t, EvaluateStart(models.TurnoPendiente, scheduled, scheduled, threshold))

	// Late but inside the window
	assert.NoError(t, EvaluateStart(models.TurnoPendiente, scheduled, scheduled.Add(90*time.Minute), threshold))

	// The boundary itself is still allowed
	assert.NoError(t, EvaluateStart(models.TurnoPendiente, scheduled, scheduled.Add(threshold), threshold))

	// One second past the window deserts
	err := EvaluateStart(models.TurnoPendiente, scheduled, scheduled.Add(threshold+time.Second), threshold)
	assert.ErrorIs(t, err, ErrPastThreshold)
}

func TestEvaluateStartCustomThreshold(t *testing.T) {
	scheduled := time.Date(2024, 5, 10, 8, 0, 0, 0, localtime.Lima)

	// A 1-hour deployment rejects what a 2-hour one accepts
	late := scheduled.Add(90 * time.Minute)
	assert.ErrorIs(t, EvaluateStart(models.TurnoPendiente, scheduled, late, time.Hour), ErrPastThreshold)
	assert.NoError(t, EvaluateStart(models.TurnoPendiente, scheduled, late, 2*time.Hour))
}

func TestTurnoEstadoTerminal(t *testing.T) {
	assert.False(t, models.TurnoPendiente.Terminal())
	assert.False(t, models.TurnoEnRuta.Terminal())
	assert.True(t, models.TurnoFinalizado.Terminal())
	assert.True(t, models.TurnoDeserto.Terminal())
}
