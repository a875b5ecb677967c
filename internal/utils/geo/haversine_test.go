package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	// New York to Los Angeles is about 2445 miles.
	d := Distance(40.7128, -74.0060, 34.0522, -118.2437)
	assert.InDelta(t, 2445, d, 10)

	assert.InDelta(t, 0, Distance(51.5, -0.12, 51.5, -0.12), 1e-9)
}

func TestDistance_OneDegreeLatitude(t *testing.T) {
	// One degree of latitude = R * pi / 180.
	assert.InDelta(t, 69.09, Distance(0, 0, 1, 0), 0.01)
}

func TestMidpoint(t *testing.T) {
	lat, lon := Midpoint(0, 0, 0, 10)
	assert.InDelta(t, 0, lat, 1e-9)
	assert.InDelta(t, 5, lon, 1e-9)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 12.3, Round1(12.34))
	assert.Equal(t, 12.4, Round1(12.35001))
}
