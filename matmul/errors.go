package matmul

import "errors"

var (
	// ErrTooFewRows reports a matrix with fewer rows than there are
	// ranks, which would leave some rank with no work.
	ErrTooFewRows = errors.New("matmul: matrix dimension is smaller than the number of ranks")

	// ErrUnevenRows reports a dimension that does not split into equal
	// contiguous row blocks across the ranks.
	ErrUnevenRows = errors.New("matmul: matrix dimension is not divisible by the number of ranks")

	// ErrBadOperands reports coordinator operands whose shape does not
	// match the validated problem.
	ErrBadOperands = errors.New("matmul: operand shape does not match the problem dimension")
)
