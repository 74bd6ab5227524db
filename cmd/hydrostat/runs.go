package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/hydrostat/internal/config"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/experiment"
	"github.com/san-kum/hydrostat/internal/storage"
	"github.com/san-kum/hydrostat/internal/topology"
	"github.com/spf13/cobra"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ffff"))

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tCELLS\tSTEPS\tDT\tINTEG\tCTRL\tDRIFT\tSTATUS")
	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4fs\t%s\t%s\t%.3g\t%s\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Cells,
			run.Steps,
			run.Dt,
			run.Integrator,
			run.Controller,
			run.Metrics["constraint_drift"],
			status,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(titleStyle.Render("run: " + meta.ID))
	fmt.Printf("preset: %s  cells: %d  integrator: %s  controller: %s\n", meta.Preset, meta.Cells, meta.Integrator, meta.Controller)
	fmt.Printf("samples: %d\n\n", len(states))

	series, err := plotSeries(meta, states, plotVar)
	if err != nil {
		return err
	}
	for _, s := range series {
		graph := asciigraph.Plot(s.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

type series struct {
	caption string
	data    []float64
}

// plotSeries extracts the tip-ring centroid and the peak vertex speed per
// sample, or a single raw state column when index is non-negative.
func plotSeries(meta *storage.RunMetadata, states []dynamo.State, index int) ([]series, error) {
	if index >= 0 {
		data := make([]float64, len(states))
		for i, x := range states {
			if index >= len(x) {
				return nil, fmt.Errorf("state index %d out of range (%d)", index, len(x))
			}
			data[i] = x[index]
		}
		return []series{{caption: fmt.Sprintf("x%d vs time", index), data: data}}, nil
	}

	n := meta.Vertices
	tip := topology.TipRing(meta.Cells)
	tipX := make([]float64, len(states))
	tipZ := make([]float64, len(states))
	speed := make([]float64, len(states))
	for i, x := range states {
		pos, vel, err := topology.Unpack(x, n)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		var c mgl64.Vec3
		for _, v := range tip {
			c = c.Add(pos[v])
		}
		c = c.Mul(1 / float64(len(tip)))
		tipX[i], tipZ[i] = c[0], c[2]
		for _, v := range vel {
			speed[i] = math.Max(speed[i], v.Len())
		}
	}
	return []series{
		{caption: "tip x", data: tipX},
		{caption: "tip z", data: tipZ},
		{caption: "peak vertex speed", data: speed},
	}, nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return storage.New(dataDir).Export(w, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	for _, model := range config.Models() {
		fmt.Printf("presets for %s:\n", model)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, name := range config.ListPresets(model) {
			cfg := config.GetPreset(model, name)
			fmt.Fprintf(w, "  %s\t%s\t%s\tg=%g\t%d steps\n",
				name, cfg.Controller, strings.Join(cfg.Constraints, ","), cfg.Gravity[2], cfg.Steps)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	reg := experiment.NewRegistry()
	fmt.Println()
	fmt.Printf("models:       %s\n", strings.Join(reg.ListModels(), ", "))
	fmt.Printf("integrators:  %s\n", strings.Join(reg.ListIntegrators(), ", "))
	fmt.Printf("controllers:  %s\n", strings.Join(reg.ListControllers(), ", "))
	fmt.Printf("constraints:  %s\n", strings.Join(reg.ListConstraints(), ", "))
	return nil
}
