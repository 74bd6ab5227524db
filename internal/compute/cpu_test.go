package compute

import (
	"sync"
	"testing"
)

func TestForRowsCoversEveryRowOnce(t *testing.T) {
	tests := []struct {
		name    string
		rows    int
		workers int
		minRows int
	}{
		{"below threshold", 10, 4, 16},
		{"even split", 64, 4, 16},
		{"uneven split", 67, 4, 8},
		{"more workers than chunks", 20, 32, 4},
		{"single worker", 100, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewCPUBackendWith(tt.workers, tt.minRows)
			hits := make([]int, tt.rows)
			var mu sync.Mutex
			b.ForRows(tt.rows, func(start, end int) {
				mu.Lock()
				defer mu.Unlock()
				for i := start; i < end; i++ {
					hits[i]++
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("row %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestForRowsZero(t *testing.T) {
	called := false
	NewCPUBackend().ForRows(0, func(start, end int) { called = true })
	Serial{}.ForRows(0, func(start, end int) { called = true })
	if called {
		t.Error("kernel called for empty range")
	}
}

func TestMatVecMul(t *testing.T) {
	b := NewCPUBackendWith(4, 2)
	mat := make([][]float64, 40)
	vec := []float64{1, 2, 3}
	for i := range mat {
		mat[i] = []float64{float64(i), 1, -1}
	}
	got := b.MatVecMul(mat, vec)
	for i, v := range got {
		want := float64(i) + 2 - 3
		if v != want {
			t.Fatalf("row %d = %v, want %v", i, v, want)
		}
	}
}

func TestSetBackend(t *testing.T) {
	prev := GetBackend()
	defer SetBackend(prev)

	SetBackend(Serial{})
	if GetBackend().Name() != "serial" {
		t.Errorf("backend = %s, want serial", GetBackend().Name())
	}
}
