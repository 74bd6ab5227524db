package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/san-kum/hydrostat/internal/control"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/experiment"
	"github.com/san-kum/hydrostat/internal/integrators"
	"github.com/san-kum/hydrostat/internal/storage"
	"github.com/san-kum/hydrostat/internal/viz"
	"github.com/spf13/cobra"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	exp, err := experiment.New(cfg, log)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	exp.Simulator().AddObserver(&progressLogger{log: log, every: max(cfg.Steps/10, 1)})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s arm (%d cells, %d vertices)...\n", presetName(), cfg.Cells, exp.Model().NumVertices())
	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}

	meta := exp.Metadata(presetName())
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	runID, err := st.Save(meta, result)
	if err != nil {
		return err
	}
	log.Info().Str("run_id", runID).Dur("elapsed", elapsed).Int("steps", result.StepsTaken).Msg("run stored")

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// The live view owns the terminal, so only errors are logged.
	log := newLogger(cfg)
	if log.GetLevel() < zerolog.ErrorLevel {
		log = log.Level(zerolog.ErrorLevel)
	}

	exp, err := experiment.New(cfg, log)
	if err != nil {
		return err
	}
	m := viz.NewModel(exp.Simulator(), exp.Dynamics(), exp.InitialState(), cfg.Dt, "arm "+presetName())
	m.StepsPerFrame = max(framesPerDt, 1)
	if manual, ok := exp.Controller().(*control.Manual); ok {
		m = m.WithManual(manual, cfg.ControllerParams.Amplitude)
	}
	return viz.Run(m)
}

func benchArm(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("steps") && cfg.Steps > 500 {
		cfg.Steps = 500
	}
	log := newLogger(cfg)

	fmt.Printf("benchmarking %d-cell arm, %d steps of %gs\n\n", cfg.Cells, cfg.Steps, cfg.Dt)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tTIME\tSTEPS/SEC\tDRIFT\tERROR")

	for _, method := range integrators.Methods() {
		c := cfg.Clone()
		c.Integrator = method
		exp, err := experiment.New(c, log)
		if err != nil {
			return err
		}

		start := time.Now()
		result, runErr := exp.Run(context.Background())
		elapsed := time.Since(start)
		if result == nil {
			return runErr
		}

		status := "-"
		if runErr != nil {
			status = shortError(runErr)
		}
		rate := float64(result.StepsTaken) / elapsed.Seconds()
		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\t%.3g\t%s\n",
			method, result.StepsTaken, elapsed.Round(time.Microsecond), rate, result.Metrics["constraint_drift"], status)
	}
	return w.Flush()
}

// progressLogger reports the state norm at debug level every few ticks.
type progressLogger struct {
	log   zerolog.Logger
	every int
	n     int
}

func (p *progressLogger) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	if p.n%p.every == 0 {
		p.log.Debug().Int("step", p.n).Float64("t", t).Float64("state_norm", x.Norm()).Msg("progress")
	}
	p.n++
}

func shortError(err error) string {
	var simErr *dynamo.SimulationError
	if errors.As(err, &simErr) {
		return fmt.Sprintf("failed at step %d", simErr.Step)
	}
	return err.Error()
}
