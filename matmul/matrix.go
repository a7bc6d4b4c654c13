package matmul

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// A Matrix is a dense matrix of float64 values stored row-major in a
// flat slice, len(Data) == Rows*Cols.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

// NewMatrix creates a zero matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}
}

// Identity creates the n-by-n identity matrix.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Data[i*n+i] = 1
	}
	return m
}

// Random creates a matrix of pseudo-random values in [0.0, 9.9] with a
// tenth's granularity.
func Random(rows, cols int, rng *rand.Rand) *Matrix {
	m := NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = float64(rng.Intn(100)) / 10.0
	}
	return m
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || j < 0 || i >= m.Rows || j >= m.Cols {
		panic("matmul: index out of bounds")
	}
	return m.Data[i*m.Cols+j]
}

// Set assigns the element at row i, column j.
func (m *Matrix) Set(i, j int, v float64) {
	if i < 0 || j < 0 || i >= m.Rows || j >= m.Cols {
		panic("matmul: index out of bounds")
	}
	m.Data[i*m.Cols+j] = v
}

// Mul computes the dense product m*other sequentially, for a square
// right operand. It is the single-machine reference for the
// distributed pipeline.
func (m *Matrix) Mul(other *Matrix) *Matrix {
	if m.Cols != other.Rows || other.Rows != other.Cols {
		panic("matmul: operand dimensions do not match")
	}
	out := NewMatrix(m.Rows, other.Cols)
	mulRows(m.Data, other.Data, out.Data, m.Rows, m.Cols)
	return out
}

// EqualWithin reports whether every element of m is within tol of the
// corresponding element of other.
func (m *Matrix) EqualWithin(other *Matrix, tol float64) bool {
	if m.Rows != other.Rows || m.Cols != other.Cols {
		return false
	}
	for i, x := range m.Data {
		if math.Abs(x-other.Data[i]) > tol {
			return false
		}
	}
	return true
}

// String renders the matrix for console output. Matrices larger than
// 10x10 are truncated to their leading 5x5 corner.
func (m *Matrix) String() string {
	rows, cols := m.Rows, m.Cols
	var b strings.Builder
	if rows > 10 || cols > 10 {
		fmt.Fprintf(&b, "(%dx%d matrix, showing first 5x5)\n", rows, cols)
		if rows > 5 {
			rows = 5
		}
		if cols > 5 {
			cols = 5
		}
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			fmt.Fprintf(&b, "%6.2f ", m.At(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// mulRows multiplies a rows-by-n block of the left operand against the
// full n-by-n right operand: dst[i*n+j] = sum_k a[i*n+k] * b[k*n+j].
//
// The k loop is hoisted above j so the inner loop walks both b and dst
// contiguously. The summation order differs from the textbook i-j-k
// nest but stays within ordinary double rounding of it.
func mulRows(a, b, dst []float64, rows, n int) {
	for i := range dst[:rows*n] {
		dst[i] = 0
	}
	for i := 0; i < rows; i++ {
		for k := 0; k < n; k++ {
			aik := a[i*n+k]
			for j := 0; j < n; j++ {
				dst[i*n+j] += aik * b[k*n+j]
			}
		}
	}
}
