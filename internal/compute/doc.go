// Package compute provides the execution backends for dense kernels.
//
// A [Backend] splits an output of n rows into disjoint chunks and joins every
// worker before returning, so callers observe the same result as a serial
// loop:
//
//	compute.GetBackend().ForRows(rows, func(start, end int) {
//	    for i := start; i < end; i++ {
//	        out[i] = ...
//	    }
//	})
//
// [CPUBackend] is the default. It stays serial below [DefaultMinRows] rows.
// [Serial] forces single-goroutine execution, which tests use to compare
// against the parallel path.
package compute
