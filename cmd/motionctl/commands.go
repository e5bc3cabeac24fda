package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/motionctl/internal/automation"
	"github.com/san-kum/motionctl/internal/clock"
	"github.com/san-kum/motionctl/internal/config"
	"github.com/san-kum/motionctl/internal/export"
	"github.com/san-kum/motionctl/internal/metrics"
	"github.com/san-kum/motionctl/internal/optim"
	"github.com/san-kum/motionctl/internal/robot"
	"github.com/san-kum/motionctl/internal/sensors"
	"github.com/san-kum/motionctl/internal/trace"
	"github.com/san-kum/motionctl/internal/tui"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func runTraversal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger()

	opts := []robot.Option{robot.WithLogger(logger)}
	if resumeAfter > 0 {
		opts = append(opts, robot.WithResumeAfter(seconds(resumeAfter)))
	}
	s, err := robot.NewSimulation(cfg, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running path %v from heading %.0f...\n", cfg.Path, cfg.InitialHeading)
	start := time.Now()
	res, err := s.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n", time.Since(start).Round(time.Microsecond))
	printResult(os.Stdout, res)

	meta := trace.Meta{
		Path:           cfg.Path,
		InitialHeading: cfg.InitialHeading,
		Variant:        cfg.Controller.Variant,
		Outcome:        res.Outcome.String(),
		StopCause:      res.StopCause.String(),
		Duration:       res.Elapsed.Seconds(),
	}
	if jsonOut != "" {
		if err := writeFile(jsonOut, func(w io.Writer) error {
			return res.Trace.WriteJSON(w, meta, res.Metrics)
		}); err != nil {
			return err
		}
	}
	if csvOut != "" {
		if err := writeFile(csvOut, res.Trace.WriteSamplesCSV); err != nil {
			return err
		}
	}
	if timelineOut != "" {
		if err := writeFile(timelineOut, res.Trace.WriteTimelineCSV); err != nil {
			return err
		}
	}
	if plotOut != "" {
		p, err := export.SpeedChart(res.Trace.Samples(), s.WheelChannel().String())
		if err != nil {
			return err
		}
		if err := export.Save(p, plotOut); err != nil {
			return err
		}
		fmt.Printf("speed chart: %s\n", plotOut)
	}
	if trackOut != "" {
		p, err := export.TrackChart(res.Trace.Events(), cfg.InitialHeading)
		if err != nil {
			return err
		}
		if err := export.Save(p, trackOut); err != nil {
			return err
		}
		fmt.Printf("track chart: %s\n", trackOut)
	}
	return nil
}

func writeFile(name string, fn func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", name)
	return nil
}

func printResult(out io.Writer, res *robot.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "outcome\t%s\n", res.Outcome)
	if res.StopCause != 0 {
		fmt.Fprintf(w, "stop cause\t%s\n", res.StopCause)
	}
	fmt.Fprintf(w, "step\t%d/%d\n", res.Final.CurrentStep, res.Final.PathLength)
	fmt.Fprintf(w, "heading\t%.1f\n", res.Heading)
	fmt.Fprintf(w, "odometer\t%.0f mm\n", res.Odometer)
	fmt.Fprintf(w, "simulated\t%.2f s\n", res.Elapsed.Seconds())
	fmt.Fprintf(w, "steps\t%d\n", res.Steps)
	if res.Resumes > 0 {
		fmt.Fprintf(w, "resumes\t%d\n", res.Resumes)
	}
	if res.TimedOut {
		fmt.Fprintf(w, "timed out\tyes\n")
	}
	w.Flush()

	fmt.Fprintln(out, "\nmetrics:")
	printMetrics(out, res.Metrics)
}

func printMetrics(out io.Writer, values map[string]float64) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %.6f\n", name, values[name])
	}
}

func tuneSpeedLoop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lc, err := cfg.LoopConfig()
	if err != nil {
		return err
	}
	ch := lc.Channels()[0]
	dur := seconds(cfg.Simulation.Duration)
	if !cmd.Flags().Changed("time") {
		dur = 10 * time.Second
	}

	ctx, cancel := signalContext()
	defer cancel()

	if search {
		gs := optim.NewGridSearch(
			[]string{"kp", "ki", "kd"},
			[][]float64{kpValues, kiValues, kdValues},
		)
		gs.SetWorkers(workers)
		candidates, err := gs.Search(ctx, cfg, dur, metric)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "RANK\tKP\tKI\tKD\t%s\n", strings.ToUpper(metric))
		for i, c := range candidates {
			if i >= 10 {
				break
			}
			fmt.Fprintf(w, "%d\t%.3f\t%.3f\t%.3f\t%.4f\n", i+1, c.Params["kp"], c.Params["ki"], c.Params["kd"], c.Score)
		}
		w.Flush()
		best := candidates[0].Params
		cfg.Controller.Kp, cfg.Controller.Ki, cfg.Controller.Kd = best["kp"], best["ki"], best["kd"]
		fmt.Println()
	}

	tr := trace.New(clock.NewManual())
	set := metrics.Standard(ch)
	samples, err := robot.SpeedRun(ctx, cfg, dur, tr, set)
	if err != nil {
		return err
	}

	var rpm []float64
	for _, s := range samples {
		if s.Channel == ch {
			rpm = append(rpm, s.RPM)
		}
	}
	if len(rpm) == 0 {
		return fmt.Errorf("no samples for channel %s", ch)
	}
	caption := fmt.Sprintf("channel %s rpm (%s kp=%.2f ki=%.2f kd=%.2f, target %.0f)",
		ch, cfg.Controller.Variant, cfg.Controller.Kp, cfg.Controller.Ki, cfg.Controller.Kd, lc.Targets[ch])
	graph := asciigraph.Plot(rpm,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)
	fmt.Println()
	printMetrics(os.Stdout, set.Values())

	if plotOut != "" {
		p, err := export.SpeedChart(tr.Samples(), ch.String())
		if err != nil {
			return err
		}
		if err := export.Save(p, plotOut); err != nil {
			return err
		}
		fmt.Printf("\nspeed chart: %s\n", plotOut)
	}
	return nil
}

func liveView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := robot.NewSimulation(cfg, robot.WithLogger(newLogger()))
	if err != nil {
		return err
	}
	return tui.Run(s, cfg.InitialHeading)
}

func monitorSensors(cmd *cobra.Command, args []string) error {
	if listPorts {
		ports, err := sensors.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("no serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	var in io.ReadCloser
	switch {
	case inputFile == "-":
		in = os.Stdin
	case inputFile != "":
		f, err := os.Open(inputFile)
		if err != nil {
			return err
		}
		in = f
	case portName != "":
		port, err := sensors.OpenSerial(portName, baudRate)
		if err != nil {
			return err
		}
		in = port
	default:
		return fmt.Errorf("one of --port, --file or --list is required")
	}
	defer in.Close()

	ctx, cancel := signalContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		in.Close()
	}()

	board := sensors.NewBoard()
	reader := sensors.NewLineReader(board)
	start := time.Now()
	reader.OnEvent = func(k sensors.Kind, v int) {
		fmt.Printf("%8.3f  %-16s %d\n", time.Since(start).Seconds(), k, v)
	}
	logger := newLogger()
	reader.OnError = func(line string, err error) {
		logger.Printf("rejected %q: %v", line, err)
	}

	err := reader.Consume(ctx, in)
	accepted, rejected := board.Stats()
	fmt.Printf("\naccepted: %d %s, %d %s, %d %s; rejected: %d\n",
		accepted[sensors.DistanceDriven], sensors.DistanceDriven,
		accepted[sensors.DistanceIR], sensors.DistanceIR,
		accepted[sensors.Direction], sensors.Direction,
		rejected)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func sweepPresets(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = config.ListPresets()
	}
	scenarios := make(map[string]*config.Config, len(names))
	for _, name := range names {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
		scenarios[name] = cfg
	}

	var opts []robot.Option
	if resumeAfter > 0 {
		opts = append(opts, robot.WithResumeAfter(seconds(resumeAfter)))
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	results, err := robot.Sweep(ctx, scenarios, workers, opts...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tOUTCOME\tCAUSE\tSTEP\tHEADING\tODOMETER\tSIM TIME\tTRACKING RMS")
	for _, r := range results {
		res := r.Result
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%.1f\t%.0f\t%.2fs\t%.3f\n",
			r.Name, res.Outcome, res.StopCause, res.Final.CurrentStep, res.Final.PathLength,
			res.Heading, res.Odometer, res.Elapsed.Seconds(), res.Metrics["tracking_rms"])
	}
	w.Flush()
	fmt.Printf("\n%d presets in %v\n", len(results), time.Since(start).Round(time.Millisecond))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Printf("  %s\n", scenario.Description)
	}
	fmt.Println()

	ctx, cancel := signalContext()
	defer cancel()

	outcomes, err := automation.RunScenario(ctx, scenario, newLogger())
	if err != nil {
		return err
	}

	failed := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tRESULT\tOUTCOME\tODOMETER\tNOTE")
	for _, o := range outcomes {
		status := "pass"
		if !o.Passed {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\n", o.Name, status, o.Result.Outcome, o.Result.Odometer, o.Reason)
	}
	w.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(outcomes))
	}
	return nil
}
