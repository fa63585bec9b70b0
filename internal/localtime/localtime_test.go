package localtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocalIsUTCMinus5(t *testing.T) {
	got, err := ParseLocal("2024-03-15 08:00:00")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC), got.UTC())
}

func TestParseLocalRejectsBadInput(t *testing.T) {
	_, err := ParseLocal("15/03/2024 08:00")
	assert.Error(t, err)
}

func TestFormatLocalRoundTrip(t *testing.T) {
	original := "2024-03-15 22:45:10"
	parsed, err := ParseLocal(original)
	require.NoError(t, err)

	assert.Equal(t, original, FormatLocal(parsed))
}

func TestFormatLocalFromUTC(t *testing.T) {
	// 03:00 UTC is 22:00 of the previous Lima day
	instant := time.Date(2024, 3, 16, 3, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-15 22:00:00", FormatLocal(instant))
	assert.Equal(t, "22:00", FormatLocalClock(instant))
}

func TestSameLocalDay(t *testing.T) {
	morning, _ := ParseLocal("2024-03-15 06:00:00")
	night, _ := ParseLocal("2024-03-15 23:59:59")
	nextDay, _ := ParseLocal("2024-03-16 00:00:01")

	assert.True(t, SameLocalDay(morning, night))
	assert.False(t, SameLocalDay(night, nextDay))

	// A UTC instant past midnight can still be the same Lima day
	utcAfterMidnight := time.Date(2024, 3, 16, 2, 0, 0, 0, time.UTC)
	assert.True(t, SameLocalDay(morning, utcAfterMidnight))
}

func TestStartOfLocalDay(t *testing.T) {
	instant, _ := ParseLocal("2024-03-15 17:23:45")
	midnight, _ := ParseLocal("2024-03-15 00:00:00")

	assert.True(t, StartOfLocalDay(instant).Equal(midnight))
	assert.True(t, StartOfLocalDay(midnight).Equal(midnight))
}
