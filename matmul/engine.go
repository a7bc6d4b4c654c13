// Package matmul computes dense matrix products across a fixed group
// of ranks. The left operand is split into contiguous row blocks, the
// right operand is replicated, every rank multiplies its block locally,
// and the coordinator reassembles the result.
package matmul

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/parlab/spmd/collective"
)

// CoordinatorRank is the distinguished rank that owns the full-size
// operands and the assembled result.
const CoordinatorRank = 0

// coordinator holds the full matrices that exist only on rank 0. Every
// other rank works purely on row slices; the asymmetry lives here
// rather than in scattered rank checks.
type coordinator struct {
	A *Matrix
	B *Matrix
	C *Matrix
}

// A Result describes one finished run. The full matrices and the
// metrics are populated only on the coordinator; other ranks see only
// the Problem.
type Result struct {
	Problem Problem

	// A and B are the operands and C the assembled product;
	// coordinator only.
	A *Matrix
	B *Matrix
	C *Matrix

	// Metrics reports the coordinator's timing of the
	// distribute-compute-gather span; coordinator only.
	Metrics *Metrics
}

// Run multiplies two randomly initialized n-by-n matrices across the
// group. The operands are created on the coordinator; every rank gets
// the same validation verdict before any buffer exists or any
// collective is issued.
func Run(c *collective.Comms, n int) (*Result, error) {
	prob, err := NewProblem(n, c.Size())
	if err != nil {
		return nil, err
	}
	var coord *coordinator
	if c.Rank() == CoordinatorRank {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		coord = &coordinator{
			A: Random(n, n, rng),
			B: Random(n, n, rng),
			C: NewMatrix(n, n),
		}
	}
	return run(c, prob, coord)
}

// RunWithInput multiplies the coordinator-supplied operands a and b
// across the group. Ranks other than the coordinator pass nil for both.
//
// If the coordinator's operands do not match the validated dimension it
// aborts the group, so the other ranks fail out of their pending
// collectives instead of blocking forever.
func RunWithInput(c *collective.Comms, n int, a, b *Matrix) (*Result, error) {
	prob, err := NewProblem(n, c.Size())
	if err != nil {
		return nil, err
	}
	var coord *coordinator
	if c.Rank() == CoordinatorRank {
		if a == nil || b == nil ||
			a.Rows != n || a.Cols != n || b.Rows != n || b.Cols != n {
			err := fmt.Errorf("%w: want %dx%d operands", ErrBadOperands, n, n)
			c.Abort(err)
			return nil, err
		}
		coord = &coordinator{A: a, B: b, C: NewMatrix(n, n)}
	}
	return run(c, prob, coord)
}

// run executes the distribute-compute-gather pipeline. Every rank calls
// the same collectives in the same order; coord is nil off-coordinator.
func run(c *collective.Comms, prob Problem, coord *coordinator) (*Result, error) {
	n := prob.N

	// Setup (allocation, initialization) stays outside the timed span.
	if err := c.Barrier(); err != nil {
		return nil, err
	}
	start := c.Wtime()

	localA, err := scatterRows(c, prob, coord.fullA())
	if err != nil {
		return nil, err
	}
	localB, err := c.Bcast(CoordinatorRank, coord.fullB())
	if err != nil {
		return nil, err
	}

	localC := make([]float64, prob.BlockLen())
	mulRows(localA, localB, localC, prob.LocalRows, n)
	// Charge the kernel's work to the virtual clock: two flops per
	// inner-loop step.
	c.Proc.Sleep(collective.FlopTime * 2 * float64(prob.LocalRows) * float64(n) * float64(n))

	full, err := gatherRows(c, prob, localC)
	if err != nil {
		return nil, err
	}
	if err := c.Barrier(); err != nil {
		return nil, err
	}
	elapsed := c.Wtime() - start

	res := &Result{Problem: prob}
	if coord != nil {
		copy(coord.C.Data, full.Data)
		res.A = coord.A
		res.B = coord.B
		res.C = coord.C
		res.Metrics = newMetrics(prob, elapsed)
	}
	return res, nil
}

// scatterRows hands each rank its contiguous block of the left
// operand's rows; full is nil off-coordinator.
func scatterRows(c *collective.Comms, prob Problem, full []float64) ([]float64, error) {
	return c.Scatter(CoordinatorRank, full, prob.BlockLen())
}

// gatherRows reassembles the ranks' result slices, block i at row
// offset i*LocalRows, into a full matrix on the coordinator. Other
// ranks get nil.
func gatherRows(c *collective.Comms, prob Problem, local []float64) (*Matrix, error) {
	data, err := c.Gather(CoordinatorRank, local)
	if err != nil || data == nil {
		return nil, err
	}
	return &Matrix{Rows: prob.N, Cols: prob.N, Data: data}, nil
}

func (co *coordinator) fullA() []float64 {
	if co == nil {
		return nil
	}
	return co.A.Data
}

func (co *coordinator) fullB() []float64 {
	if co == nil {
		return nil
	}
	return co.B.Data
}
