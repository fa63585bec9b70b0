package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMetersZero(t *testing.T) {
	assert.Equal(t, 0.0, DistanceMeters(-12.0464, -77.0428, -12.0464, -77.0428))
}

func TestDistanceMetersSymmetry(t *testing.T) {
	d1 := DistanceMeters(-12.0464, -77.0428, -12.0566, -77.0362)
	d2 := DistanceMeters(-12.0566, -77.0362, -12.0464, -77.0428)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestDistanceMetersKnownValues(t *testing.T) {
	// One degree of longitude at the equator
	assert.InDelta(t, 111195, DistanceMeters(0, 0, 0, 1), 10)

	// ~50 meters along the equator
	d := DistanceMeters(0, 0, 0, 0.00044966)
	assert.InDelta(t, 50, d, 0.5)
}

func TestDistanceMetersAntipodes(t *testing.T) {
	// Half the Earth's circumference, must not NaN on rounding
	d := DistanceMeters(0, 0, 0, 180)
	assert.InDelta(t, 20015086, d, 1000)
	assert.False(t, d != d, "distance must not be NaN")
}

func TestWithinRadius(t *testing.T) {
	d := DistanceMeters(0, 0, 0, 0.00044966) // ~50m

	assert.False(t, WithinRadius(d, 45))
	assert.True(t, WithinRadius(d, 100))

	// Boundary counts as inside
	assert.True(t, WithinRadius(45, 45))
	assert.True(t, WithinRadius(0, 45))
}
