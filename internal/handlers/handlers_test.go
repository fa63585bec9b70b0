package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rutacontrol-backend/internal/localtime"
	"rutacontrol-backend/internal/turnos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondEngineErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{turnos.ErrTurnoNotFound, http.StatusNotFound},
		{turnos.ErrAlreadyStarted, http.StatusConflict},
		{turnos.ErrDeserto, http.StatusForbidden},
		{turnos.ErrFinalizado, http.StatusForbidden},
		{turnos.ErrPastThreshold, http.StatusForbidden},
		{turnos.ErrInvalidTransition, http.StatusConflict},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		respondEngineError(rec, tt.err)

		assert.Equal(t, tt.wantStatus, rec.Code, "error %v", tt.err)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		assert.NotEmpty(t, body["message"])
	}
}

func TestRespondEngineErrorTooEarly(t *testing.T) {
	scheduled, _ := localtime.ParseLocal("2024-05-10 08:00:00")
	rec := httptest.NewRecorder()
	respondEngineError(rec, &turnos.TooEarlyError{MinutesLeft: 30, Scheduled: scheduled})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(30), body["minutos_restantes"])
	assert.Equal(t, false, body["puede_iniciar"])
	assert.Equal(t, "2024-05-10 08:00:00", body["hora_programada"])
}

func TestMarcarPuntoRequestComplete(t *testing.T) {
	var req marcarPuntoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"fkidturnohora":7,"latitud":0,"longitud":0}`), &req))
	assert.True(t, req.complete(), "coordinate 0 is a position, not a missing field")

	req = marcarPuntoRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"fkidturnohora":7}`), &req))
	assert.False(t, req.complete())

	req = marcarPuntoRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"latitud":-12.0464,"longitud":-77.0428}`), &req))
	assert.False(t, req.complete())
}

func TestParseInstant(t *testing.T) {
	civil, err := parseInstant("2024-05-10 08:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 13, 0, 0, 0, time.UTC), civil.UTC())

	rfc, err := parseInstant("2024-05-10T08:00:00-05:00")
	require.NoError(t, err)
	assert.True(t, civil.Equal(rfc))

	_, err = parseInstant("10/05/2024 08:00")
	assert.Error(t, err)
}
