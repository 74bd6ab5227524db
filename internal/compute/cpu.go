package compute

import (
	"runtime"
	"sync"
)

// DefaultMinRows is the row count below which CPUBackend stays serial.
const DefaultMinRows = 16

type CPUBackend struct {
	workers int
	minRows int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
		minRows: DefaultMinRows,
	}
}

// NewCPUBackendWith fixes the worker count and serial threshold. Values
// below one fall back to the defaults.
func NewCPUBackendWith(workers, minRows int) *CPUBackend {
	c := NewCPUBackend()
	if workers > 0 {
		c.workers = workers
	}
	if minRows > 0 {
		c.minRows = minRows
	}
	return c
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}
func (c *CPUBackend) Workers() int    { return c.workers }

func (c *CPUBackend) ForRows(rows int, fn func(start, end int)) {
	if rows <= 0 {
		return
	}
	if rows < c.minRows || c.workers <= 1 {
		fn(0, rows)
		return
	}

	workers := c.workers
	if rows/c.minRows < workers {
		workers = rows / c.minRows
	}
	if workers < 1 {
		workers = 1
	}
	chunkSize := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		if start >= rows {
			break
		}
		end := start + chunkSize
		if end > rows {
			end = rows
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// MatVecMul multiplies a row-major matrix by a vector, splitting rows
// across workers.
func (c *CPUBackend) MatVecMul(mat [][]float64, vec []float64) []float64 {
	result := make([]float64, len(mat))
	c.ForRows(len(mat), func(start, end int) {
		for i := start; i < end; i++ {
			sum := 0.0
			for j := 0; j < len(vec) && j < len(mat[i]); j++ {
				sum += mat[i][j] * vec[j]
			}
			result[i] = sum
		}
	})
	return result
}
