package compute

// Backend runs row-partitioned kernels. Implementations must call fn on
// disjoint [start, end) ranges covering [0, rows) and return only after every
// call has finished.
type Backend interface {
	Name() string
	Available() bool
	ForRows(rows int, fn func(start, end int))
	Cleanup()
}

var activeBackend Backend = NewCPUBackend()

func SetBackend(b Backend) {
	if activeBackend != nil {
		activeBackend.Cleanup()
	}
	activeBackend = b
}

func GetBackend() Backend {
	return activeBackend
}

// Serial runs every kernel on the calling goroutine.
type Serial struct{}

func (Serial) Name() string    { return "serial" }
func (Serial) Available() bool { return true }
func (Serial) Cleanup()        {}

func (Serial) ForRows(rows int, fn func(start, end int)) {
	if rows > 0 {
		fn(0, rows)
	}
}
