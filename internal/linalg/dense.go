package linalg

import (
	"fmt"

	"github.com/san-kum/hydrostat/internal/compute"
)

// Dense is a row-major matrix.
type Dense struct {
	Rows, Cols int
	Data       []float64
}

func NewDense(rows, cols int) *Dense {
	return &Dense{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

func Identity(n int) *Dense {
	m := NewDense(n, n)
	for i := 0; i < n; i++ {
		m.Data[i*n+i] = 1
	}
	return m
}

// Diag builds a square matrix with d on the diagonal.
func Diag(d []float64) *Dense {
	m := NewDense(len(d), len(d))
	for i, v := range d {
		m.Data[i*len(d)+i] = v
	}
	return m
}

func (m *Dense) At(i, j int) float64     { return m.Data[i*m.Cols+j] }
func (m *Dense) Set(i, j int, v float64) { m.Data[i*m.Cols+j] = v }
func (m *Dense) Add(i, j int, v float64) { m.Data[i*m.Cols+j] += v }

// Row returns a view of row i.
func (m *Dense) Row(i int) []float64 { return m.Data[i*m.Cols : (i+1)*m.Cols] }

func (m *Dense) Clone() *Dense {
	c := &Dense{Rows: m.Rows, Cols: m.Cols, Data: make([]float64, len(m.Data))}
	copy(c.Data, m.Data)
	return c
}

func (m *Dense) T() *Dense {
	t := NewDense(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			t.Data[j*m.Rows+i] = m.Data[i*m.Cols+j]
		}
	}
	return t
}

// Mul returns m·b. Output rows are computed on the active compute backend.
func (m *Dense) Mul(b *Dense) (*Dense, error) {
	if m.Cols != b.Rows {
		return nil, fmt.Errorf("linalg: mul %dx%d by %dx%d", m.Rows, m.Cols, b.Rows, b.Cols)
	}
	out := NewDense(m.Rows, b.Cols)
	compute.GetBackend().ForRows(m.Rows, func(start, end int) {
		for i := start; i < end; i++ {
			row := out.Data[i*b.Cols : (i+1)*b.Cols]
			for k := 0; k < m.Cols; k++ {
				a := m.Data[i*m.Cols+k]
				if a == 0 {
					continue
				}
				bk := b.Data[k*b.Cols : (k+1)*b.Cols]
				for j, v := range bk {
					row[j] += a * v
				}
			}
		}
	})
	return out, nil
}

func (m *Dense) MulVec(v []float64) ([]float64, error) {
	if m.Cols != len(v) {
		return nil, fmt.Errorf("linalg: mulvec %dx%d by %d", m.Rows, m.Cols, len(v))
	}
	out := make([]float64, m.Rows)
	for i := 0; i < m.Rows; i++ {
		sum := 0.0
		row := m.Data[i*m.Cols : (i+1)*m.Cols]
		for j, a := range row {
			sum += a * v[j]
		}
		out[i] = sum
	}
	return out, nil
}

// ScaleCols returns m·diag(d).
func (m *Dense) ScaleCols(d []float64) (*Dense, error) {
	if m.Cols != len(d) {
		return nil, fmt.Errorf("linalg: scale %d cols by %d", m.Cols, len(d))
	}
	out := m.Clone()
	for i := 0; i < m.Rows; i++ {
		row := out.Data[i*m.Cols : (i+1)*m.Cols]
		for j := range row {
			row[j] *= d[j]
		}
	}
	return out, nil
}

// AddIdentity adds eps to every diagonal entry in place.
func (m *Dense) AddIdentity(eps float64) {
	n := m.Rows
	if m.Cols < n {
		n = m.Cols
	}
	for i := 0; i < n; i++ {
		m.Data[i*m.Cols+i] += eps
	}
}

// VStack concatenates matrices row-wise. All inputs must share a column
// count; a nil or zero-row input is skipped.
func VStack(cols int, parts ...*Dense) (*Dense, error) {
	rows := 0
	for i, p := range parts {
		if p == nil || p.Rows == 0 {
			continue
		}
		if p.Cols != cols {
			return nil, fmt.Errorf("linalg: vstack part %d has %d cols, want %d", i, p.Cols, cols)
		}
		rows += p.Rows
	}
	out := NewDense(rows, cols)
	off := 0
	for _, p := range parts {
		if p == nil || p.Rows == 0 {
			continue
		}
		copy(out.Data[off:], p.Data)
		off += len(p.Data)
	}
	return out, nil
}
