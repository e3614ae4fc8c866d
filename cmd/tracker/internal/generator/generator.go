package generator

import (
	"math"
	"time"

	"github.com/johnnewto/seamap/pkg/models"
)

type WaypointGenerator struct {
	rand   Rand
	clock  Clock
	params Params
}

func NewWaypointGenerator(rnd Rand, clock Clock, params Params) *WaypointGenerator {
	return &WaypointGenerator{
		rand:   rnd,
		clock:  clock,
		params: params,
	}
}

// Next derives the waypoint that follows prev: both coordinates move by a uniform
// draw in [-step, step], speed is a fresh uniform draw rounded to one decimal.
func (g *WaypointGenerator) Next(prev models.Waypoint) models.Waypoint {
	dLat := g.uniform(-g.params.StepDegrees, g.params.StepDegrees)
	dLon := g.uniform(-g.params.StepDegrees, g.params.StepDegrees)
	speed := roundTenth(g.uniform(g.params.MinSpeed, g.params.MaxSpeed))

	return models.Waypoint{
		Lat:       prev.Lat + dLat,
		Lon:       prev.Lon + dLon,
		ShipName:  prev.ShipName,
		Speed:     speed,
		Timestamp: models.FormatTimestamp(g.clock.Now()),
	}
}

func (g *WaypointGenerator) uniform(lo, hi float64) float64 {
	return lo + g.rand.Float64()*(hi-lo)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// seed path around Ōrākei Bay, oldest first
var (
	seedLat   = []float64{-36.8469, -36.8475, -36.8480, -36.8470, -36.8465}
	seedLon   = []float64{174.8125, 174.8130, 174.8140, 174.8135, 174.8128}
	seedSpeed = []float64{5.2, 5.5, 5.0, 5.3, 5.1}
)

const seedSpacing = 5 * time.Minute

// SeedTrack returns the fixed initial path: five waypoints spaced five minutes
// apart, the last one stamped at clock.Now().
func SeedTrack(clock Clock, vessel string) []models.Waypoint {
	now := clock.Now()
	out := make([]models.Waypoint, len(seedLat))
	for i := range seedLat {
		age := time.Duration(len(seedLat)-1-i) * seedSpacing
		out[i] = models.Waypoint{
			Lat:       seedLat[i],
			Lon:       seedLon[i],
			ShipName:  vessel,
			Speed:     seedSpeed[i],
			Timestamp: models.FormatTimestamp(now.Add(-age)),
		}
	}
	return out
}
