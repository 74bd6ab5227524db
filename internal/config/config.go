package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCells          = 4
	DefaultDt             = 0.005
	DefaultSteps          = 2000
	DefaultVertexMass     = 0.125
	DefaultVertexDamping  = 0.125
	DefaultEdgeDamping    = 1.0
	DefaultDampingRate    = 50.0
	DefaultSpringRate     = 50.0
	DefaultRegularization = 1e-6
	DefaultKp             = 10.0
	DefaultKi             = 0.1
	DefaultKd             = 5.0
)

type Config struct {
	Cells            int              `yaml:"cells" validate:"min=1,max=64"`
	CellSize         CellSize         `yaml:"cell_size"`
	VertexMass       float64          `yaml:"vertex_mass" validate:"gt=0"`
	Integrator       string           `yaml:"integrator" validate:"required,oneof=euler rk4 verlet"`
	Controller       string           `yaml:"controller" validate:"required,oneof=none constant wave curl pid manual"`
	Dt               float64          `yaml:"dt" validate:"gt=0"`
	Steps            int              `yaml:"steps" validate:"min=1"`
	Seed             int64            `yaml:"seed"`
	Perturbation     float64          `yaml:"perturbation" validate:"gte=0"`
	DampingRate      float64          `yaml:"damping_rate" validate:"gte=0"`
	SpringRate       float64          `yaml:"spring_rate" validate:"gte=0"`
	Regularization   float64          `yaml:"regularization" validate:"gte=0"`
	VertexDamping    float64          `yaml:"vertex_damping" validate:"gte=0"`
	EdgeDamping      float64          `yaml:"edge_damping" validate:"gte=0"`
	EdgeBounds       EdgeBounds       `yaml:"edge_bounds"`
	Constraints      []string         `yaml:"constraints" validate:"dive,oneof=constant_volume edge_length fixed_vertex planar_faces"`
	FixedVertices    []int            `yaml:"fixed_vertices" validate:"dive,min=0"`
	Gravity          [3]float64       `yaml:"gravity,flow"`
	ControllerParams ControllerConfig `yaml:"controller_params"`
	Log              LogConfig        `yaml:"log"`
}

type CellSize struct {
	Width  float64 `yaml:"width" validate:"gt=0"`
	Length float64 `yaml:"length" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`
}

// EdgeBounds is the allowed edge length interval. A zero Max means no
// upper bound.
type EdgeBounds struct {
	Min float64 `yaml:"min" validate:"gte=0"`
	Max float64 `yaml:"max" validate:"gte=0"`
}

type ControllerConfig struct {
	Amplitude  float64 `yaml:"amplitude"`
	Frequency  float64 `yaml:"frequency" validate:"gte=0"`
	Wavelength float64 `yaml:"wavelength" validate:"gte=0"`
	Side       string  `yaml:"side" validate:"omitempty,oneof=+x -x +y -y"`
	Kp         float64 `yaml:"kp"`
	Ki         float64 `yaml:"ki"`
	Kd         float64 `yaml:"kd"`
	Target     float64 `yaml:"target" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

func DefaultConfig() *Config {
	return &Config{
		Cells:          DefaultCells,
		CellSize:       CellSize{Width: 1, Length: 1, Height: 1},
		VertexMass:     DefaultVertexMass,
		Integrator:     "rk4",
		Controller:     "none",
		Dt:             DefaultDt,
		Steps:          DefaultSteps,
		DampingRate:    DefaultDampingRate,
		SpringRate:     DefaultSpringRate,
		Regularization: DefaultRegularization,
		VertexDamping:  DefaultVertexDamping,
		EdgeDamping:    DefaultEdgeDamping,
		EdgeBounds:     EdgeBounds{Min: 0.5, Max: 2},
		Constraints:    []string{"constant_volume", "planar_faces", "fixed_vertex"},
		FixedVertices:  []int{0, 1, 2, 3},
		ControllerParams: ControllerConfig{
			Amplitude:  1,
			Frequency:  0.5,
			Wavelength: 4,
			Side:       "+x",
			Kp:         DefaultKp,
			Ki:         DefaultKi,
			Kd:         DefaultKd,
			Target:     1,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Constraints = append([]string(nil), c.Constraints...)
	out.FixedVertices = append([]int(nil), c.FixedVertices...)
	return &out
}

// NumVertices is the vertex count of the arm the config describes.
func (c *Config) NumVertices() int { return 4 * (c.Cells + 1) }

// UpperBound returns EdgeBounds.Max, or +Inf when it is unset.
func (c *Config) UpperBound() float64 {
	if c.EdgeBounds.Max == 0 {
		return math.Inf(1)
	}
	return c.EdgeBounds.Max
}

func (c *Config) HasConstraint(name string) bool {
	for _, n := range c.Constraints {
		if n == name {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges with struct tags and then the rules that
// span several fields. The first problem is returned as a
// *dynamo.ConfigurationError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			reason := fmt.Sprintf("failed %q", fe.Tag())
			if fe.Param() != "" {
				reason = fmt.Sprintf("failed %q (%s), got %v", fe.Tag(), fe.Param(), fe.Value())
			}
			return &dynamo.ConfigurationError{Field: field, Reason: reason}
		}
		return &dynamo.ConfigurationError{Field: "config", Reason: err.Error()}
	}

	if c.HasConstraint("edge_length") && c.EdgeBounds.Min > c.UpperBound() {
		return &dynamo.ConfigurationError{
			Field:  "edge_bounds",
			Reason: fmt.Sprintf("min %g exceeds max %g", c.EdgeBounds.Min, c.EdgeBounds.Max),
		}
	}
	n := c.NumVertices()
	for i, v := range c.FixedVertices {
		if v >= n {
			return &dynamo.ConfigurationError{
				Field:  fmt.Sprintf("fixed_vertices[%d]", i),
				Reason: fmt.Sprintf("vertex %d out of range for %d vertices", v, n),
			}
		}
	}
	if c.HasConstraint("fixed_vertex") && len(c.FixedVertices) == 0 {
		return &dynamo.ConfigurationError{Field: "fixed_vertices", Reason: "fixed_vertex constraint needs at least one vertex"}
	}
	return nil
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
