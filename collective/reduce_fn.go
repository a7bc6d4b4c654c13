package collective

import "github.com/parlab/spmd/simulator"

// FlopTime is the virtual time one floating-point operation takes on a
// simulated machine.
const FlopTime = 1e-9

// A ReduceFn combines many vectors into one. Implementations should
// charge their compute cost to the virtual clock with p.Sleep.
type ReduceFn func(p *simulator.Proc, vecs ...[]float64) []float64

// Sum is a ReduceFn that computes an element-wise vector sum.
func Sum(p *simulator.Proc, vecs ...[]float64) []float64 {
	for _, v := range vecs[1:] {
		if len(v) != len(vecs[0]) {
			panic("collective: reduced vectors must share a length")
		}
	}
	out := make([]float64, len(vecs[0]))
	for _, v := range vecs {
		for i, x := range v {
			out[i] += x
		}
	}

	// Simulate computation time.
	p.Sleep(FlopTime * float64(len(vecs)*len(out)))

	return out
}
