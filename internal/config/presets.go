package config

import "sort"

var Presets = map[string]map[string]*Config{
	"arm": {
		"rest": preset(func(c *Config) {
			c.Steps = 500
		}),
		"sway": preset(func(c *Config) {
			c.Controller = "wave"
			c.ControllerParams.Amplitude = 2
			c.ControllerParams.Frequency = 0.5
			c.ControllerParams.Wavelength = 4
			c.Constraints = append(c.Constraints, "edge_length")
		}),
		"curl": preset(func(c *Config) {
			c.Controller = "curl"
			c.ControllerParams.Amplitude = 3
			c.ControllerParams.Side = "+x"
			c.Constraints = append(c.Constraints, "edge_length")
		}),
		"hanging": preset(func(c *Config) {
			c.Gravity = [3]float64{0, 0, -9.81}
			c.Constraints = append(c.Constraints, "edge_length")
			c.EdgeBounds = EdgeBounds{Min: 0.5, Max: 2}
			c.Steps = 4000
		}),
	},
}

func preset(edit func(*Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, name string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models lists the model names that have presets.
func Models() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
