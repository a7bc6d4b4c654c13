package matmul

import (
	"fmt"

	"github.com/google/uuid"
)

// Metrics summarizes the coordinator's view of one run: the virtual
// wall-clock span between the barrier before distribution and the
// barrier after gathering, and the throughput derived from it. It is
// advisory only and has no effect on the computed product.
type Metrics struct {
	// RunID tags the run for log correlation.
	RunID string

	// Elapsed is the timed span in virtual seconds.
	Elapsed float64

	// Flops is the conventional operation count, 2*n^3.
	Flops float64

	// GFlops is Flops / Elapsed / 1e9.
	GFlops float64
}

func newMetrics(prob Problem, elapsed float64) *Metrics {
	n := float64(prob.N)
	m := &Metrics{
		RunID:   uuid.NewString(),
		Elapsed: elapsed,
		Flops:   2 * n * n * n,
	}
	if elapsed > 0 {
		m.GFlops = m.Flops / elapsed / 1e9
	}
	return m
}

func (m *Metrics) String() string {
	return fmt.Sprintf("run %s: %.6f s, %.2e flops, %.2f GFLOPS",
		m.RunID, m.Elapsed, m.Flops, m.GFlops)
}
