package schedule

import (
	"testing"
	"time"

	"rutacontrol-backend/internal/localtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"01:15", 75 * time.Minute, false},
		{"00:20", 20 * time.Minute, false},
		{"00:00", 0, false},
		{"02:05:30", 2*time.Hour + 5*time.Minute, false}, // seconds ignored
		{"10:59", 10*time.Hour + 59*time.Minute, false},
		{"0115", 0, true},
		{"aa:bb", 0, true},
		{"01:75", 0, true},
		{"-1:10", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseOffset(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidScheduleFormat, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestComputeSignConvention(t *testing.T) {
	departure := time.Date(2024, 1, 1, 8, 0, 0, 0, localtime.Lima)
	offset := 75 * time.Minute // expected 09:15

	tests := []struct {
		name       string
		marked     time.Time
		wantMin    int
		wantStatus string
	}{
		{
			name:       "late mark is positive",
			marked:     time.Date(2024, 1, 1, 9, 20, 0, 0, localtime.Lima),
			wantMin:    5,
			wantStatus: "Con retraso de 5 minutos",
		},
		{
			name:       "early mark is negative",
			marked:     time.Date(2024, 1, 1, 9, 10, 0, 0, localtime.Lima),
			wantMin:    -5,
			wantStatus: "Adelantado por 5 minutos",
		},
		{
			name:       "exact mark is zero",
			marked:     time.Date(2024, 1, 1, 9, 15, 0, 0, localtime.Lima),
			wantMin:    0,
			wantStatus: "A tiempo exacto",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Compute(departure, offset, tt.marked)
			assert.Equal(t, tt.wantMin, result.DeviationMinutes)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, departure.Add(offset), result.Expected)
			assert.Equal(t, tt.marked, result.Marked)
		})
	}
}

func TestComputeTruncatesTowardZero(t *testing.T) {
	departure := time.Date(2024, 1, 1, 8, 0, 0, 0, localtime.Lima)
	offset := 75 * time.Minute // expected 09:15

	// 59 seconds late still counts as on time
	result := Compute(departure, offset, time.Date(2024, 1, 1, 9, 15, 59, 0, localtime.Lima))
	assert.Equal(t, 0, result.DeviationMinutes)
	assert.Equal(t, "A tiempo exacto", result.Status)

	// 1m30s late truncates to 1
	result = Compute(departure, offset, time.Date(2024, 1, 1, 9, 16, 30, 0, localtime.Lima))
	assert.Equal(t, 1, result.DeviationMinutes)

	// 1m30s early truncates to -1
	result = Compute(departure, offset, time.Date(2024, 1, 1, 9, 13, 30, 0, localtime.Lima))
	assert.Equal(t, -1, result.DeviationMinutes)
}

func TestComputeZeroOffset(t *testing.T) {
	departure := time.Date(2024, 1, 1, 8, 0, 0, 0, localtime.Lima)

	result := Compute(departure, 0, departure.Add(3*time.Minute))
	assert.Equal(t, 3, result.DeviationMinutes)
	assert.Equal(t, departure, result.Expected)
}
