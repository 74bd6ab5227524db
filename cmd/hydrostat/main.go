package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/san-kum/hydrostat/internal/config"
	"github.com/san-kum/hydrostat/internal/integrators"
	"github.com/san-kum/hydrostat/internal/logging"
	"github.com/spf13/cobra"
)

var (
	dataDir   string
	logLevel  string
	logFormat string

	configFile   string
	preset       string
	cells        int
	dt           float64
	steps        int
	seed         int64
	perturbation float64
	integrator   string
	controller   string
	amplitude    float64
	gravity      float64
	framesPerDt  int
	plotVar      int
	exportOut    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hydrostat",
		Short:        "constrained soft-arm simulator",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".hydrostat", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store the trajectory",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().IntVar(&framesPerDt, "steps-per-frame", 2, "simulation steps per frame")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time every integrator on the configured arm",
		Args:  cobra.NoArgs,
		RunE:  benchArm,
	}
	addSimFlags(benchCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot tip motion and speed of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotVar, "var", -1, "plot a single state index instead")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, liveCmd, benchCmd, listCmd, plotCmd, exportCmd, presetsCmd)
	return rootCmd
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.IntVar(&cells, "cells", config.DefaultCells, "number of cells in the arm")
	f.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	f.IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	f.Int64Var(&seed, "seed", 0, "random seed for the initial perturbation")
	f.Float64Var(&perturbation, "perturb", 0, "std dev of random initial vertex velocities")
	f.StringVar(&integrator, "integrator", "rk4", "integrator ("+strings.Join(integrators.Methods(), ", ")+")")
	f.StringVar(&controller, "controller", "none", "controller (none, constant, wave, curl, pid, manual)")
	f.Float64Var(&amplitude, "amplitude", 1, "controller amplitude")
	f.Float64Var(&gravity, "gravity", 0, "gravity along z")
}

// resolveConfig layers the config sources: defaults, then a preset, then a
// config file, then any flag set on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset("arm", preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets("arm"))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("cells") {
		cfg.Cells = cells
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("perturb") {
		cfg.Perturbation = perturbation
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("amplitude") {
		cfg.ControllerParams.Amplitude = amplitude
	}
	if flags.Changed("gravity") {
		cfg.Gravity[2] = gravity
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger prefers the command-line flags over the config's log section.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, format := cfg.Log.Level, cfg.Log.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return logging.New(logging.Options{Level: level, Format: format, Output: os.Stderr})
}

func presetName() string {
	if preset != "" {
		return preset
	}
	return "custom"
}
