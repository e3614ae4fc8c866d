package generator

import (
	"math/rand"
	"time"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

// for deterministic values; Float64 is in [0.0, 1.0)
type Rand interface {
	Float64() float64
}

type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealRand wraps math/rand. Not safe for concurrent use; the feed serializes calls.
type RealRand struct{ *rand.Rand }

func NewRealRand(seed int64) RealRand {
	return RealRand{rand.New(rand.NewSource(seed))}
}

func (r RealRand) Float64() float64 { return r.Rand.Float64() }

// Params bound the random walk.
type Params struct {
	StepDegrees float64 // max |dLat|, |dLon| per step
	MinSpeed    float64 // knots
	MaxSpeed    float64 // knots
}

var DefaultParams = Params{StepDegrees: 0.001, MinSpeed: 4.8, MaxSpeed: 5.6}
