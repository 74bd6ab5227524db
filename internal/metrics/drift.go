package metrics

import (
	"math"

	"github.com/san-kum/hydrostat/internal/dynamo"
)

// ConstraintDrift tracks the worst constraint violation seen during a run.
// States the monitor cannot evaluate are counted in Failures and skipped.
type ConstraintDrift struct {
	name     string
	monitor  dynamo.ConstraintMonitor
	worst    float64
	last     float64
	failures int
}

func NewConstraintDrift(monitor dynamo.ConstraintMonitor) *ConstraintDrift {
	return &ConstraintDrift{
		name:    "constraint_drift",
		monitor: monitor,
	}
}

func (c *ConstraintDrift) Name() string { return c.name }

func (c *ConstraintDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	v, err := c.monitor.Violation(x)
	if err != nil {
		c.failures++
		return
	}
	c.last = v
	c.worst = math.Max(c.worst, v)
}

func (c *ConstraintDrift) Value() float64 { return c.worst }
func (c *ConstraintDrift) Last() float64  { return c.last }
func (c *ConstraintDrift) Failures() int  { return c.failures }

func (c *ConstraintDrift) Reset() {
	c.worst = 0
	c.last = 0
	c.failures = 0
}
