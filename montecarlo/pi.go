// Package montecarlo estimates π by sampling points in the unit square
// across a group of ranks and reducing the hit counts on the
// coordinator.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/parlab/spmd/collective"
)

// DefaultSamples is the sample count used when the caller does not pick
// one.
const DefaultSamples = 10000000

// ErrTooFewSamples reports a sample count smaller than the group, which
// would leave some rank with nothing to do.
var ErrTooFewSamples = errors.New("montecarlo: sample count is smaller than the number of ranks")

// An Estimate is the coordinator's view of one finished estimation.
type Estimate struct {
	// Samples is the number of points actually drawn, which may be
	// slightly below the requested count when it does not divide
	// evenly.
	Samples int64

	// Inside is the number of points that landed in the quarter
	// circle.
	Inside int64

	// Pi is 4 * Inside / Samples.
	Pi float64

	// AbsError and RelError compare Pi against math.Pi; RelError is a
	// percentage.
	AbsError float64
	RelError float64

	// Elapsed is the barrier-to-barrier span in virtual seconds.
	Elapsed float64
}

// Run draws the group's share of samples on every rank and reduces the
// counts. The returned Estimate is populated only on the coordinator;
// other ranks get nil. Each rank seeds its generator with seed plus its
// ordinal so the ranks draw distinct streams.
func Run(c *collective.Comms, samples, seed int64) (*Estimate, error) {
	if samples < int64(c.Size()) {
		return nil, fmt.Errorf("%w: samples=%d ranks=%d", ErrTooFewSamples, samples, c.Size())
	}
	perRank := samples / int64(c.Size())

	if err := c.Barrier(); err != nil {
		return nil, err
	}
	start := c.Wtime()

	rng := rand.New(rand.NewSource(seed + int64(c.Rank())))
	var inside int64
	for i := int64(0); i < perRank; i++ {
		x, y := rng.Float64(), rng.Float64()
		if x*x+y*y <= 1 {
			inside++
		}
	}
	// Two multiplies, an add, and a compare per point.
	c.Proc.Sleep(collective.FlopTime * 4 * float64(perRank))

	total, err := c.Reduce(0, []float64{float64(inside)}, collective.Sum)
	if err != nil {
		return nil, err
	}
	if err := c.Barrier(); err != nil {
		return nil, err
	}
	elapsed := c.Wtime() - start

	if c.Rank() != 0 {
		return nil, nil
	}

	drawn := perRank * int64(c.Size())
	pi := 4 * total[0] / float64(drawn)
	return &Estimate{
		Samples:  drawn,
		Inside:   int64(total[0]),
		Pi:       pi,
		AbsError: math.Abs(pi - math.Pi),
		RelError: 100 * math.Abs(pi-math.Pi) / math.Pi,
		Elapsed:  elapsed,
	}, nil
}
