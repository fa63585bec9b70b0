// Package schedule computes how early or late a checkpoint mark is against
// the turno's departure time plus the stop's scheduled offset.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidScheduleFormat is returned when a scheduled offset is not a
	// parseable "HH:MM" or "HH:MM:SS" string.
	ErrInvalidScheduleFormat = errors.New("formato de tiempo inválido, debe ser HH:MM o HH:MM:SS")

	// ErrInvalidInstant is returned when a departure or mark timestamp cannot
	// be parsed.
	ErrInvalidInstant = errors.New("formato de fecha inválido")
)

// Result is the outcome of a deviation calculation.
type Result struct {
	DeviationMinutes int       // marked − expected, truncated toward zero; positive = late
	Expected         time.Time // departure + scheduled offset
	Marked           time.Time
	Status           string // human label derived from the sign
}

// ParseOffset converts a "HH:MM" or "HH:MM:SS" scheduled offset into a
// duration. Seconds, when present, are ignored: marks are judged in whole
// minutes.
func ParseOffset(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, ErrInvalidScheduleFormat
	}
	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, ErrInvalidScheduleFormat
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, ErrInvalidScheduleFormat
	}
	if hours < 0 || minutes < 0 || minutes > 59 {
		return 0, ErrInvalidScheduleFormat
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}

// Compute returns the signed deviation of marked against departure+offset.
// The sign convention is marked − expected: positive means the driver was
// late, negative early. Fractions of a minute are truncated toward zero so
// a mark 59 seconds late still counts as on time.
func Compute(departure time.Time, offset time.Duration, marked time.Time) Result {
	expected := departure.Add(offset)
	deviation := int(marked.Sub(expected).Minutes())

	return Result{
		DeviationMinutes: deviation,
		Expected:         expected,
		Marked:           marked,
		Status:           statusLabel(deviation),
	}
}

func statusLabel(deviation int) string {
	switch {
	case deviation > 0:
		return fmt.Sprintf("Con retraso de %d minutos", deviation)
	case deviation < 0:
		return fmt.Sprintf("Adelantado por %d minutos", -deviation)
	default:
		return "A tiempo exacto"
	}
}
