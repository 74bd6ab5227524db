package control

import "github.com/san-kum/hydrostat/internal/dynamo"

type None struct {
	dim int
}

func NewNone(dim int) *None {
	return &None{
		dim: dim,
	}
}

func (n *None) Compute(x dynamo.State, t float64) dynamo.Control {
	return make(dynamo.Control, n.dim)
}

type Constant struct {
	dim   int
	Value float64
}

func NewConstant(dim int, value float64) *Constant {
	return &Constant{dim: dim, Value: value}
}

func (c *Constant) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, c.dim)
	for i := range u {
		u[i] = c.Value
	}
	return u
}

func (c *Constant) GetParams() map[string]float64 {
	return map[string]float64{"value": c.Value}
}

func (c *Constant) SetParam(name string, value float64) error {
	if name != "value" {
		return unknownParam(name)
	}
	c.Value = value
	return nil
}

// Func adapts a callback to dynamo.Controller.
func Func(f func(x dynamo.State, t float64) dynamo.Control) dynamo.Controller {
	return dynamo.ControllerFunc(f)
}

func unknownParam(name string) error {
	return &dynamo.ConfigurationError{Field: name, Reason: "unknown parameter"}
}
