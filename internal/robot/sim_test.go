package robot_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/motionctl/internal/config"
	"github.com/san-kum/motionctl/internal/nav"
	"github.com/san-kum/motionctl/internal/robot"
)

var _ = Describe("Simulation", func() {
	run := func(cfg *config.Config, opts ...robot.Option) *robot.Result {
		s, err := robot.NewSimulation(cfg, opts...)
		Expect(err).NotTo(HaveOccurred())
		res, err := s.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	It("walks the default path", func() {
		res := run(config.DefaultConfig())
		Expect(res.Outcome).To(Equal(nav.Done))
		Expect(res.StopCause).To(Equal(nav.StopCause(0)))
		Expect(res.TimedOut).To(BeFalse())
		Expect(res.Final.CurrentStep).To(Equal(6))
		// every drive may end up to the distance tolerance short
		Expect(res.Odometer).To(BeNumerically("~", 1790, 20))
		Expect(res.Heading).To(BeNumerically("~", 270, 1))

		var kinds []string
		for _, c := range res.Trace.Commands() {
			kinds = append(kinds, c.Kind)
		}
		Expect(kinds).To(Equal([]string{
			"start_drive", "stop_drive",
			"start_turn", "stop_turn", "start_drive", "stop_drive",
			"start_turn", "stop_turn", "start_drive", "stop_drive",
			"start_turn", "stop_turn", "start_drive", "stop_drive",
		}))
		Expect(res.Trace.Commands()[0].Distance).To(Equal(600))
	})

	It("regulates the wheel motor while it drives", func() {
		res := run(config.DefaultConfig())
		Expect(res.Metrics).To(HaveKey("tracking_rms"))
		Expect(res.Metrics["control_effort"]).To(BeNumerically(">", 0))
		Expect(res.Trace.Samples()).NotTo(BeEmpty())
	})

	It("stops in front of an obstacle", func() {
		res := run(config.GetPreset("corridor"))
		Expect(res.Outcome).To(Equal(nav.Stopped))
		Expect(res.StopCause.Has(nav.StopObstacle)).To(BeTrue())
		Expect(res.Odometer).To(BeNumerically(">=", 495))
		Expect(res.Odometer).To(BeNumerically("<", 520))
	})

	It("resumes once the obstacle is gone", func() {
		res := run(config.GetPreset("corridor"), robot.WithResumeAfter(time.Second))
		Expect(res.Outcome).To(Equal(nav.Done))
		Expect(res.Resumes).To(Equal(1))
		Expect(res.Odometer).To(BeNumerically("~", 1795, 10))
	})

	It("turns the short way across north", func() {
		res := run(config.GetPreset("wrap"))
		Expect(res.Outcome).To(Equal(nav.Done))
		first := res.Trace.Commands()[0]
		Expect(first.Kind).To(Equal("start_turn"))
		Expect(first.Rotation).To(Equal("left"))
	})

	It("finishes an empty path without stepping", func() {
		cfg := config.DefaultConfig()
		cfg.Path = nil
		s, err := robot.NewSimulation(cfg)
		Expect(err).NotTo(HaveOccurred())
		more, err := s.Step()
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeFalse())
		Expect(s.Result().Outcome).To(Equal(nav.Done))
		Expect(s.Result().Steps).To(BeZero())
	})

	It("gives up when time runs out", func() {
		cfg := config.DefaultConfig()
		cfg.Simulation.Duration = 1
		res := run(cfg)
		Expect(res.TimedOut).To(BeTrue())
		Expect(res.Elapsed).To(Equal(time.Second))
	})

	It("stops when the context is cancelled", func() {
		s, err := robot.NewSimulation(config.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = s.Run(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("rejects an invalid configuration", func() {
		cfg := config.DefaultConfig()
		cfg.Navigation.SquareMM = 0
		_, err := robot.NewSimulation(cfg)
		Expect(err).To(MatchError(nav.ErrInvalidConfig))
	})
})

var _ = Describe("SpeedRun", func() {
	It("brings the motor to its target speed", func() {
		samples, err := robot.SpeedRun(context.Background(), config.DefaultConfig(), 30*time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(samples)).To(BeNumerically(">", 90))

		tail := samples[len(samples)-10:]
		sum := 0.0
		for _, s := range tail {
			sum += s.RPM
		}
		Expect(sum / float64(len(tail))).To(BeNumerically("~", 35, 2.5))
	})
})

var _ = Describe("Sweep", func() {
	It("runs every preset and reports them by name", func() {
		scenarios := map[string]*config.Config{}
		for _, name := range config.ListPresets() {
			scenarios[name] = config.GetPreset(name)
		}
		results, err := robot.Sweep(context.Background(), scenarios, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(len(scenarios)))
		for i, name := range config.ListPresets() {
			Expect(results[i].Name).To(Equal(name))
			Expect(results[i].Result).NotTo(BeNil())
		}
	})
})
