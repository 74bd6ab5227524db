package control

import (
	"fmt"
	"sync"

	"github.com/san-kum/hydrostat/internal/dynamo"
)

// Manual returns whatever control vector was last set. The live view uses
// it to drive edges from the keyboard while the simulation runs.
type Manual struct {
	mu sync.Mutex
	u  dynamo.Control
}

func NewManual(dim int) *Manual {
	return &Manual{u: make(dynamo.Control, dim)}
}

func (c *Manual) SetControl(u dynamo.Control) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(u) != len(c.u) {
		return &dynamo.ConfigurationError{Field: "control", Reason: fmt.Sprintf("length %d, want %d", len(u), len(c.u))}
	}
	copy(c.u, u)
	return nil
}

// SetEdges sets the listed edges to value and leaves the rest untouched.
func (c *Manual) SetEdges(edges []int, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range edges {
		if e >= 0 && e < len(c.u) {
			c.u[e] = value
		}
	}
}

func (c *Manual) Compute(x dynamo.State, t float64) dynamo.Control {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.u.Clone()
}
