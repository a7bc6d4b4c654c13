package matmul

import "fmt"

// A Problem fixes every size derived for one run: the matrix dimension,
// the rank count, and the rows each rank owns. A Problem only exists in
// validated form.
type Problem struct {
	// N is the dimension of the square operands.
	N int

	// Ranks is the number of participating ranks.
	Ranks int

	// LocalRows is N / Ranks, the contiguous rows each rank owns.
	LocalRows int
}

// NewProblem validates (n, ranks) and derives the per-rank row count.
//
// The check is deterministic in its inputs, so every rank reaches the
// same verdict locally and a rejected configuration never issues a
// collective.
func NewProblem(n, ranks int) (Problem, error) {
	if ranks < 1 {
		panic("matmul: rank count must be positive")
	}
	if n < ranks {
		return Problem{}, fmt.Errorf("%w: n=%d ranks=%d", ErrTooFewRows, n, ranks)
	}
	if n%ranks != 0 {
		return Problem{}, fmt.Errorf("%w: n=%d ranks=%d", ErrUnevenRows, n, ranks)
	}
	return Problem{N: n, Ranks: ranks, LocalRows: n / ranks}, nil
}

// BlockLen returns the element count of one rank's row slice.
func (p Problem) BlockLen() int {
	return p.LocalRows * p.N
}
