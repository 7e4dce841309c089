// Package ray generates probe segments across a detected region.
package ray

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// ErrInvalidCorners is returned when a corner is not a finite point.
var ErrInvalidCorners = errors.New("ray: corners must be finite 2-D points")

// Ray is a segment to sample, from P1 to P2.
type Ray struct {
	P1 utils.Point `json:"p1"`
	P2 utils.Point `json:"p2"`
}

// Length returns |P2-P1|.
func (r Ray) Length() float64 { return r.P1.Dist(r.P2) }

// Reverse swaps the endpoints.
func (r Ray) Reverse() Ray { return Ray{P1: r.P2, P2: r.P1} }

func (r Ray) String() string {
	return fmt.Sprintf("(%.2f,%.2f)-(%.2f,%.2f)", r.P1.X, r.P1.Y, r.P2.X, r.P2.Y)
}

func checkCorners(corners [4]utils.Point) error {
	for i, c := range corners {
		if !c.IsFinite() {
			return fmt.Errorf("%w: corner %d is (%v, %v)", ErrInvalidCorners, i+1, c.X, c.Y)
		}
	}
	return nil
}

// Random returns a diameter through the centroid of the corners at an angle
// drawn uniformly from [0, 360) degrees. The radius is the smaller distance
// from the centroid to the first and third corners.
func Random(corners [4]utils.Point, rng *rand.Rand) (Ray, error) {
	if err := checkCorners(corners); err != nil {
		return Ray{}, err
	}
	c, r := centroidRadius(corners)
	theta := rng.Float64() * 360 * math.Pi / 180
	d := utils.Point{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
	return Ray{P1: c.Add(d), P2: c.Sub(d)}, nil
}

func centroidRadius(corners [4]utils.Point) (utils.Point, float64) {
	c := utils.Mean(corners[:]...)
	return c, math.Min(c.Dist(corners[0]), c.Dist(corners[2]))
}

// Scanline returns a segment joining the edge C1-C4 to the edge C2-C3 at a
// uniformly drawn fraction t along both.
func Scanline(corners [4]utils.Point, rng *rand.Rand) (Ray, error) {
	if err := checkCorners(corners); err != nil {
		return Ray{}, err
	}
	t := rng.Float64()
	return Ray{
		P1: utils.Lerp(corners[0], corners[3], t),
		P2: utils.Lerp(corners[1], corners[2], t),
	}, nil
}

// Strategy names a ray generation method.
type Strategy string

const (
	StrategyDiameter Strategy = "diameter"
	StrategyScanline Strategy = "scanline"
)

// ParseStrategy validates a strategy name. Empty selects the diameter.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyDiameter:
		return StrategyDiameter, nil
	case StrategyScanline:
		return StrategyScanline, nil
	}
	return "", fmt.Errorf("unknown ray strategy %q (must be %q or %q)", s, StrategyDiameter, StrategyScanline)
}

// Generator draws rays for one region after another. It owns its random
// source and is safe for concurrent use.
type Generator struct {
	strategy Strategy

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil rng gets a randomly seeded source.
func NewGenerator(strategy Strategy, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{strategy: strategy, rng: rng}
}

// Next draws one ray across the region.
func (g *Generator) Next(corners [4]utils.Point) (Ray, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.strategy == StrategyScanline {
		return Scanline(corners, g.rng)
	}
	return Random(corners, g.rng)
}

// Strategy reports the configured strategy.
func (g *Generator) Strategy() Strategy { return g.strategy }
