package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/motionctl/internal/config"
)

var (
	verbose    bool
	configFile string
	preset     string
	pathFlag   []float64
	heading    float64
	variant    string
	kp         float64
	ki         float64
	kd         float64
	duration   float64
	obstacleAt float64
	// Resume after an obstacle stop, in seconds. Zero stays stopped.
	resumeAfter float64
	// Output files
	jsonOut     string
	csvOut      string
	timelineOut string
	plotOut     string
	trackOut    string
	// tune
	search   bool
	kpValues []float64
	kiValues []float64
	kdValues []float64
	metric   string
	workers  int
	// monitor
	portName  string
	baudRate  int
	inputFile string
	listPorts bool
)

// main registers the motionctl commands and flags and executes the root
// command, exiting with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "motionctl",
		Short:        "motion control for a two-wheel rover",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate a path traversal",
		RunE:  runTraversal,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().Float64Var(&resumeAfter, "resume-after", 0, "resume this many seconds after an obstacle stop (0 = stay stopped)")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "write the full trace as JSON")
	runCmd.Flags().StringVar(&csvOut, "csv", "", "write speed-loop samples as CSV")
	runCmd.Flags().StringVar(&timelineOut, "timeline", "", "write the event timeline as CSV")
	runCmd.Flags().StringVar(&plotOut, "plot", "", "write a speed chart (png, svg, pdf)")
	runCmd.Flags().StringVar(&trackOut, "track", "", "write a dead-reckoned track chart (png, svg, pdf)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "run the speed loop alone and plot the response",
		RunE:  tuneSpeedLoop,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&plotOut, "plot", "", "write a speed chart (png, svg, pdf)")
	tuneCmd.Flags().BoolVar(&search, "search", false, "grid-search the gains")
	tuneCmd.Flags().Float64SliceVar(&kpValues, "kp-values", []float64{0.2, 0.4, 0.6, 0.8, 1.0}, "kp values to search")
	tuneCmd.Flags().Float64SliceVar(&kiValues, "ki-values", []float64{0, 0.05, 0.1, 0.2}, "ki values to search")
	tuneCmd.Flags().Float64SliceVar(&kdValues, "kd-values", []float64{0}, "kd values to search")
	tuneCmd.Flags().StringVar(&metric, "metric", "tracking_rms", "metric to minimise")
	tuneCmd.Flags().IntVar(&workers, "workers", 4, "parallel evaluations")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch a traversal in the terminal",
		RunE:  liveView,
	}
	addConfigFlags(liveCmd)

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "read sensor events from a serial port or file",
		RunE:  monitorSensors,
	}
	monitorCmd.Flags().StringVar(&portName, "port", "", "serial port")
	monitorCmd.Flags().IntVar(&baudRate, "baud", 115200, "baud rate")
	monitorCmd.Flags().StringVar(&inputFile, "file", "", "read events from a file instead (- for stdin)")
	monitorCmd.Flags().BoolVar(&listPorts, "list", false, "list serial ports and exit")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset...]",
		Short: "simulate several presets in parallel",
		RunE:  sweepPresets,
	}
	sweepCmd.Flags().IntVar(&workers, "workers", 4, "parallel simulations")
	sweepCmd.Flags().Float64Var(&resumeAfter, "resume-after", 0, "resume this many seconds after an obstacle stop")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted batch of traversals",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-10s path %v\n", name, p.Path)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "write a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	configInitCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd, tuneCmd, liveCmd, monitorCmd, sweepCmd, scenarioCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "configuration file")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "preset name")
	cmd.Flags().Float64SliceVar(&pathFlag, "path", nil, "path headings in degrees")
	cmd.Flags().Float64Var(&heading, "heading", 0, "initial heading")
	cmd.Flags().StringVar(&variant, "variant", "", "controller variant (p, pi, pd, pid)")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "proportional gain")
	cmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "integral gain")
	cmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "derivative gain")
	cmd.Flags().Float64Var(&duration, "time", 0, "simulated duration in seconds")
	cmd.Flags().Float64Var(&obstacleAt, "obstacle-at", 0, "odometer reading of an obstacle in mm")
}

// loadConfig resolves the preset, then the config file, then any flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
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
	if flags.Changed("path") {
		cfg.Path = append([]float64(nil), pathFlag...)
	}
	if flags.Changed("heading") {
		cfg.InitialHeading = heading
	}
	if flags.Changed("variant") {
		cfg.Controller.Variant = variant
	}
	if flags.Changed("kp") {
		cfg.Controller.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.Controller.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.Controller.Kd = kd
	}
	if flags.Changed("time") {
		cfg.Simulation.Duration = duration
	}
	if flags.Changed("obstacle-at") {
		cfg.Rover.ObstacleAt = obstacleAt
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "motionctl: ", log.Lmicroseconds)
}
