package matmul

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlab/spmd/collective"
)

// runEngine executes f on every rank of a fresh group and returns the
// per-rank results and errors.
func runEngine(t *testing.T, ranks int,
	f func(c *collective.Comms) (*Result, error)) ([]*Result, []error) {
	t.Helper()
	results := make([]*Result, ranks)
	errs := make([]error, ranks)
	collective.RunGroup(t, ranks, func(c *collective.Comms) {
		results[c.Rank()], errs[c.Rank()] = f(c)
	})
	return results, errs
}

func TestKnownProduct(t *testing.T) {
	for _, ranks := range []int{1, 2} {
		t.Run(fmt.Sprintf("Ranks=%d", ranks), func(t *testing.T) {
			a := &Matrix{Rows: 2, Cols: 2, Data: []float64{1, 2, 3, 4}}
			b := &Matrix{Rows: 2, Cols: 2, Data: []float64{5, 6, 7, 8}}
			results, errs := runEngine(t, ranks, func(c *collective.Comms) (*Result, error) {
				if c.Rank() == CoordinatorRank {
					return RunWithInput(c, 2, a, b)
				}
				return RunWithInput(c, 2, nil, nil)
			})
			for _, err := range errs {
				require.NoError(t, err)
			}
			assert.Equal(t, []float64{19, 22, 43, 50}, results[0].C.Data)
		})
	}
}

func TestIdentityProduct(t *testing.T) {
	const n = 8
	for _, ranks := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("Ranks=%d", ranks), func(t *testing.T) {
			a := Random(n, n, rand.New(rand.NewSource(42)))
			results, errs := runEngine(t, ranks, func(c *collective.Comms) (*Result, error) {
				if c.Rank() == CoordinatorRank {
					return RunWithInput(c, n, a, Identity(n))
				}
				return RunWithInput(c, n, nil, nil)
			})
			for _, err := range errs {
				require.NoError(t, err)
			}
			assert.Equal(t, a.Data, results[0].C.Data)
		})
	}
}

func TestRankCountIndependence(t *testing.T) {
	// The result may not depend on how the rows are partitioned.
	const n = 12
	rng := rand.New(rand.NewSource(7))
	a := Random(n, n, rng)
	b := Random(n, n, rng)
	want := a.Mul(b)

	for _, ranks := range []int{1, 2, 3, 4, 6, 12} {
		t.Run(fmt.Sprintf("Ranks=%d", ranks), func(t *testing.T) {
			results, errs := runEngine(t, ranks, func(c *collective.Comms) (*Result, error) {
				if c.Rank() == CoordinatorRank {
					return RunWithInput(c, n, a, b)
				}
				return RunWithInput(c, n, nil, nil)
			})
			for _, err := range errs {
				require.NoError(t, err)
			}
			// Each row is summed in the same order on every rank
			// layout, so the result is reproduced exactly.
			assert.Equal(t, want.Data, results[0].C.Data)
		})
	}
}

func TestOneRowPerRank(t *testing.T) {
	const n = 4
	a := Random(n, n, rand.New(rand.NewSource(3)))
	b := Random(n, n, rand.New(rand.NewSource(4)))
	want := a.Mul(b)
	results, errs := runEngine(t, n, func(c *collective.Comms) (*Result, error) {
		if c.Rank() == CoordinatorRank {
			return RunWithInput(c, n, a, b)
		}
		return RunWithInput(c, n, nil, nil)
	})
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, want.Data, results[0].C.Data)
}

func TestInvalidConfigRejectedByEveryRank(t *testing.T) {
	const n, ranks = 5, 3
	loop := collective.RunGroup(t, ranks, func(c *collective.Comms) {
		_, err := Run(c, n)
		assert.ErrorIs(t, err, ErrUnevenRows)
	})
	// A rejected configuration must never issue a collective; with no
	// traffic the virtual clock stays at zero.
	assert.Equal(t, 0.0, loop.Now())
}

func TestTooFewRowsRejected(t *testing.T) {
	_, errs := runEngine(t, 3, func(c *collective.Comms) (*Result, error) {
		return Run(c, 2)
	})
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrTooFewRows)
	}
}

func TestRandomRun(t *testing.T) {
	const n, ranks = 16, 4
	results, errs := runEngine(t, ranks, func(c *collective.Comms) (*Result, error) {
		return Run(c, n)
	})
	for _, err := range errs {
		require.NoError(t, err)
	}

	coord := results[0]
	require.NotNil(t, coord.C)
	require.NotNil(t, coord.Metrics)
	assert.True(t, coord.A.Mul(coord.B).EqualWithin(coord.C, 1e-9))
	assert.Equal(t, 2.0*n*n*n, coord.Metrics.Flops)
	assert.Greater(t, coord.Metrics.Elapsed, 0.0)
	assert.Greater(t, coord.Metrics.GFlops, 0.0)
	assert.NotEmpty(t, coord.Metrics.RunID)

	for rank, res := range results[1:] {
		assert.Nil(t, res.C, "rank %d", rank+1)
		assert.Nil(t, res.Metrics, "rank %d", rank+1)
		assert.Equal(t, n/ranks, res.Problem.LocalRows)
	}
}

func TestScatterGatherRoundTrip(t *testing.T) {
	// Scattering a matrix and gathering the untouched slices must
	// reproduce it bit for bit, independent of the multiply kernel.
	const n, ranks = 6, 3
	a := Random(n, n, rand.New(rand.NewSource(9)))
	prob, err := NewProblem(n, ranks)
	require.NoError(t, err)

	var back *Matrix
	collective.RunGroup(t, ranks, func(c *collective.Comms) {
		var full []float64
		if c.Rank() == CoordinatorRank {
			full = a.Data
		}
		local, err := scatterRows(c, prob, full)
		require.NoError(t, err)
		out, err := gatherRows(c, prob, local)
		require.NoError(t, err)
		if c.Rank() == CoordinatorRank {
			back = out
		}
	})
	require.NotNil(t, back)
	assert.Equal(t, a.Data, back.Data)
}

func TestBadOperandsAbortGroup(t *testing.T) {
	const n, ranks = 4, 2
	results, errs := runEngine(t, ranks, func(c *collective.Comms) (*Result, error) {
		if c.Rank() == CoordinatorRank {
			// Wrong shape: 3x3 operands for a 4x4 problem.
			return RunWithInput(c, n, NewMatrix(3, 3), NewMatrix(3, 3))
		}
		return RunWithInput(c, n, nil, nil)
	})
	assert.ErrorIs(t, errs[0], ErrBadOperands)
	var abort *collective.AbortError
	require.ErrorAs(t, errs[1], &abort)
	assert.Equal(t, CoordinatorRank, abort.Rank)
	assert.ErrorIs(t, errs[1], ErrBadOperands)
	assert.Nil(t, results[1])
}

func TestKernelMatchesReference(t *testing.T) {
	const rows, n = 3, 5
	rng := rand.New(rand.NewSource(11))
	a := Random(rows, n, rng)
	b := Random(n, n, rng)
	want := a.Mul(b)

	dst := make([]float64, rows*n)
	mulRows(a.Data, b.Data, dst, rows, n)
	assert.Equal(t, want.Data, dst)
}
