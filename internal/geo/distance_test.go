package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_IdenticalPointsIsZero(t *testing.T) {
	points := []Coordinate{
		{0, 0},
		{34.05, -118.25},
		{-33.8688, 151.2093},
		{89.9, 179.9},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, Distance(p.Lat, p.Lon, p.Lat, p.Lon), "point %+v", p)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]Coordinate{
		{{34.05, -118.25}, {34.15, -118.10}},
		{{40.7128, -74.0060}, {51.5074, -0.1278}},
		{{-10, 170}, {10, -170}},
	}
	for _, p := range pairs {
		ab := p[0].DistanceTo(p[1])
		ba := p[1].DistanceTo(p[0])
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestDistance_KnownValues(t *testing.T) {
	// one degree of latitude on a 3958.8 mile sphere
	oneDegree := EarthRadiusMiles * math.Pi / 180
	assert.InDelta(t, oneDegree, Distance(0, 0, 1, 0), 1e-9)

	// LAX to JFK is about 2470 miles on this sphere
	d := Distance(33.9416, -118.4085, 40.6413, -73.7781)
	assert.InDelta(t, 2470, d, 2)
}

func TestDistance_TriangleInequality(t *testing.T) {
	a := Coordinate{34.05, -118.25}
	b := Coordinate{34.20, -118.00}
	c := Coordinate{33.90, -117.80}
	assert.LessOrEqual(t, a.DistanceTo(c), a.DistanceTo(b)+b.DistanceTo(c)+1e-9)
}

func TestCoordinate_Valid(t *testing.T) {
	tests := []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"origin", Coordinate{0, 0}, true},
		{"los angeles", Coordinate{34.05, -118.25}, true},
		{"lat out of range", Coordinate{91, 0}, false},
		{"lon out of range", Coordinate{0, -181}, false},
		{"nan", Coordinate{math.NaN(), 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Valid())
		})
	}
}
