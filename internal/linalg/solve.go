package linalg

import (
	"fmt"
	"math"

	"github.com/san-kum/hydrostat/internal/dynamo"
)

// PivotTolerance is the smallest pivot magnitude Solve accepts.
const PivotTolerance = 1e-12

// Solve returns x with a·x = b using Gaussian elimination with partial
// pivoting. Neither input is modified. A near-singular matrix yields a
// *dynamo.NumericalError.
func Solve(a *Dense, b []float64) ([]float64, error) {
	n := a.Rows
	if a.Cols != n {
		return nil, &dynamo.ConfigurationError{Field: "matrix", Reason: fmt.Sprintf("not square: %dx%d", a.Rows, a.Cols)}
	}
	if len(b) != n {
		return nil, &dynamo.ConfigurationError{Field: "rhs", Reason: fmt.Sprintf("length %d, want %d", len(b), n)}
	}

	m := a.Clone()
	x := make([]float64, n)
	copy(x, b)

	for col := 0; col < n; col++ {
		pivot := col
		best := math.Abs(m.At(col, col))
		for r := col + 1; r < n; r++ {
			if v := math.Abs(m.At(r, col)); v > best {
				best, pivot = v, r
			}
		}
		if !(best >= PivotTolerance) {
			return nil, &dynamo.NumericalError{
				Op:     "solve",
				Reason: fmt.Sprintf("pivot %.3g below %.0e at column %d", best, PivotTolerance, col),
			}
		}

		if pivot != col {
			rp, rc := m.Row(pivot), m.Row(col)
			for j := range rp {
				rp[j], rc[j] = rc[j], rp[j]
			}
			x[pivot], x[col] = x[col], x[pivot]
		}

		rc := m.Row(col)
		for r := col + 1; r < n; r++ {
			rr := m.Row(r)
			f := rr[col] / rc[col]
			if f == 0 {
				continue
			}
			for j := col; j < n; j++ {
				rr[j] -= f * rc[j]
			}
			x[r] -= f * x[col]
		}
	}

	for i := n - 1; i >= 0; i-- {
		row := m.Row(i)
		sum := x[i]
		for j := i + 1; j < n; j++ {
			sum -= row[j] * x[j]
		}
		x[i] = sum / row[i]
	}

	return x, nil
}
