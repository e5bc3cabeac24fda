package nav_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/motionctl/internal/motor"
	"github.com/san-kum/motionctl/internal/nav"
)

func drive(mm int) motor.Command {
	return motor.Command{Kind: motor.CmdStartDrive, Distance: mm}
}

func stopDrive(mm int) motor.Command {
	return motor.Command{Kind: motor.CmdStopDrive, Distance: mm}
}

func turn(deg float64, r motor.Rotation) motor.Command {
	return motor.Command{Kind: motor.CmdStartTurn, Direction: deg, Rotation: r}
}

func stopTurn(deg float64) motor.Command {
	return motor.Command{Kind: motor.CmdStopTurn, Direction: deg}
}

var _ = Describe("Navigator", func() {
	var (
		rec *motor.Recorder
		cfg nav.Config
	)

	BeforeEach(func() {
		rec = motor.NewRecorder(nil)
		cfg = nav.DefaultConfig()
		cfg.SquareMM = 300
		cfg.DistanceTolerance = 5
		cfg.ObstacleThreshold = 600
	})

	newNav := func(path nav.Path, opts ...nav.Option) *nav.Navigator {
		n, err := nav.New(path, rec, cfg, opts...)
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	Describe("construction", func() {
		It("rejects invalid paths", func() {
			_, err := nav.New(nav.Path{0, 400}, rec, cfg)
			Expect(err).To(MatchError(nav.ErrInvalidPath))
		})

		It("rejects invalid configuration", func() {
			cfg.SquareMM = 0
			_, err := nav.New(nav.Path{0}, rec, cfg)
			Expect(err).To(MatchError(nav.ErrInvalidConfig))
		})

		It("copies the path", func() {
			path := nav.Path{0, 90}
			n := newNav(path)
			path[0] = 90
			Expect(n.Start(0)).To(Succeed())
			Expect(rec.Commands()).To(Equal([]motor.Command{drive(300)}))
		})

		It("starts only once", func() {
			n := newNav(nav.Path{0})
			Expect(n.Start(0)).To(Succeed())
			Expect(n.Start(0)).To(MatchError(nav.ErrAlreadyStarted))
		})
	})

	DescribeTable("IsFacing uses a 0.5 degree window",
		func(d float64) {
			n := newNav(nav.Path{})
			Expect(n.Start(d)).To(Succeed())

			Expect(n.IsFacing(d)).To(BeTrue())
			Expect(n.IsFacing(d + 0.49)).To(BeTrue())
			Expect(n.IsFacing(d - 0.49)).To(BeTrue())
			Expect(n.IsFacing(d + 0.51)).To(BeFalse())
			Expect(n.IsFacing(d - 0.51)).To(BeFalse())
		},
		Entry("north", 0.0),
		Entry("east", 90.0),
		Entry("south west", 225.0),
		Entry("just short of north", 359.8),
	)

	It("finishes an empty path immediately", func() {
		n := newNav(nav.Path{})
		Expect(n.Start(0)).To(Succeed())

		Expect(n.State()).To(Equal(nav.Done))
		Expect(n.Done()).To(BeClosed())
		Expect(rec.Commands()).To(BeEmpty())
	})

	Describe("walking [0, 0, 90] from heading 0", func() {
		var n *nav.Navigator

		BeforeEach(func() {
			n = newNav(nav.Path{0, 0, 90})
			Expect(n.Start(0)).To(Succeed())
		})

		It("merges the first two steps into one drive", func() {
			Expect(rec.Commands()).To(Equal([]motor.Command{drive(600)}))
			s := n.Snapshot()
			Expect(s.State).To(Equal(nav.Driving))
			Expect(s.CurrentStep).To(Equal(2))
			Expect(s.TargetDistance).To(Equal(600))
		})

		It("keeps driving while short of the target", func() {
			n.OnDistanceDrivenChanged(300)
			Expect(n.State()).To(Equal(nav.Driving))
			Expect(n.Snapshot().ActualDistance).To(Equal(300))
			Expect(rec.Commands()).To(HaveLen(1))
		})

		It("turns toward 90 after the drive completes", func() {
			n.OnDistanceDrivenChanged(600)

			Expect(rec.Commands()).To(Equal([]motor.Command{
				drive(600), stopDrive(600), turn(90, motor.Right),
			}))
			s := n.Snapshot()
			Expect(s.State).To(Equal(nav.Turning))
			Expect(s.IsTurning).To(BeTrue())
			Expect(s.CurrentStep).To(Equal(2))
			Expect(s.TargetDirection).To(Equal(90.0))
		})

		It("completes the drive within the distance tolerance", func() {
			n.OnDistanceDrivenChanged(595)
			Expect(n.State()).To(Equal(nav.Turning))
		})

		Context("when the turn reaches 90", func() {
			BeforeEach(func() {
				n.OnDistanceDrivenChanged(600)
				n.OnDirectionChanged(45)
				n.OnDirectionChanged(90)
			})

			It("clears the turn and consumes the last step", func() {
				s := n.Snapshot()
				Expect(s.IsTurning).To(BeFalse())
				Expect(s.CurrentStep).To(Equal(3))
				Expect(s.CurrentStep).To(Equal(s.PathLength))
				Expect(rec.Commands()[3:]).To(Equal([]motor.Command{stopTurn(90), drive(300)}))
			})

			It("terminates with no command outstanding once the last square is driven", func() {
				Expect(n.Done()).NotTo(BeClosed())
				n.OnDistanceDrivenChanged(900)

				Expect(n.State()).To(Equal(nav.Done))
				Expect(n.Done()).To(BeClosed())
				last, _ := rec.Last()
				Expect(last).To(Equal(stopDrive(300)))
				Expect(n.Snapshot().IsTurning).To(BeFalse())
			})

			It("ignores events after termination", func() {
				n.OnDistanceDrivenChanged(900)
				count := len(rec.Commands())

				n.OnDirectionChanged(180)
				n.OnDistanceDrivenChanged(1500)
				n.OnDistanceIrChanged(500)

				Expect(rec.Commands()).To(HaveLen(count))
				Expect(n.State()).To(Equal(nav.Done))
			})
		})
	})

	Describe("obstacles", func() {
		var n *nav.Navigator

		BeforeEach(func() {
			n = newNav(nav.Path{0, 0})
			Expect(n.Start(0)).To(Succeed())
		})

		It("stops a drive immediately when an obstacle is close", func() {
			n.OnDistanceDrivenChanged(200)
			n.OnDistanceIrChanged(550)

			s := n.Snapshot()
			Expect(s.State).To(Equal(nav.Stopped))
			Expect(s.StopCause).To(Equal(nav.StopObstacle))
			Expect(rec.Commands()).To(Equal([]motor.Command{drive(600), stopDrive(600)}))
		})

		It("treats the threshold itself as an obstacle", func() {
			n.OnDistanceIrChanged(600)
			Expect(n.State()).To(Equal(nav.Stopped))
		})

		It("ignores distant obstacles", func() {
			n.OnDistanceIrChanged(601)
			Expect(n.State()).To(Equal(nav.Driving))
			Expect(n.Snapshot().StopCause).To(BeZero())
		})

		It("does not retry on its own", func() {
			n.OnDistanceIrChanged(500)
			n.OnDistanceDrivenChanged(600)
			n.OnDistanceIrChanged(3000)

			Expect(n.State()).To(Equal(nav.Stopped))
			Expect(rec.Commands()).To(HaveLen(2))
		})

		It("resumes the remaining distance on request", func() {
			n.OnDistanceDrivenChanged(200)
			n.OnDistanceIrChanged(500)
			Expect(n.Resume()).To(Succeed())

			s := n.Snapshot()
			Expect(s.State).To(Equal(nav.Driving))
			Expect(s.StopCause).To(BeZero())
			Expect(s.TargetDistance).To(Equal(600))
			last, _ := rec.Last()
			Expect(last).To(Equal(drive(400)))

			n.OnDistanceDrivenChanged(600)
			Expect(n.State()).To(Equal(nav.Done))
			last, _ = rec.Last()
			Expect(last).To(Equal(stopDrive(400)))
		})

		It("refuses to resume when not stopped", func() {
			Expect(n.Resume()).To(MatchError(nav.ErrNotStopped))
		})

		It("ignores IR readings while turning", func() {
			n = newNav(nav.Path{90})
			rec.Reset()
			Expect(n.Start(0)).To(Succeed())
			Expect(n.State()).To(Equal(nav.Turning))

			n.OnDistanceIrChanged(500)
			Expect(n.State()).To(Equal(nav.Turning))
			Expect(n.Snapshot().StopCause).To(BeZero())
		})
	})

	Describe("turning", func() {
		It("turns the short way across north", func() {
			n := newNav(nav.Path{10})
			Expect(n.Start(350)).To(Succeed())
			Expect(rec.Commands()).To(Equal([]motor.Command{turn(10, motor.Right)}))

			n.OnDirectionChanged(359)
			n.OnDirectionChanged(10)
			Expect(rec.Commands()).To(Equal([]motor.Command{turn(10, motor.Right), stopTurn(10), drive(300)}))
		})

		It("corrects an overshoot by reversing", func() {
			n := newNav(nav.Path{90})
			Expect(n.Start(0)).To(Succeed())

			n.OnDirectionChanged(60)
			n.OnDirectionChanged(95)
			n.OnDirectionChanged(88)
			Expect(rec.Commands()).To(Equal([]motor.Command{
				turn(90, motor.Right),
				turn(90, motor.Left),
				turn(90, motor.Right),
			}))
			Expect(n.Snapshot().Corrections).To(Equal(2))
			Expect(n.State()).To(Equal(nav.Turning))
		})

		It("gives up after too many corrections", func() {
			cfg.MaxCorrections = 2
			n := newNav(nav.Path{90})
			Expect(n.Start(0)).To(Succeed())

			for _, d := range []int{95, 85, 95} {
				n.OnDirectionChanged(d)
			}

			s := n.Snapshot()
			Expect(s.State).To(Equal(nav.Stopped))
			Expect(s.StopCause.Has(nav.StopTurnTimeout)).To(BeTrue())
			Expect(s.IsTurning).To(BeFalse())
			last, _ := rec.Last()
			Expect(last).To(Equal(stopTurn(90)))

			Expect(n.Resume()).To(Succeed())
			Expect(n.State()).To(Equal(nav.Turning))
			last, _ = rec.Last()
			Expect(last).To(Equal(turn(90, motor.Left)))
		})

		It("abandons a turn that stalls short of its target", func() {
			cfg.MaxCorrections = 2
			n := newNav(nav.Path{90})
			Expect(n.Start(0)).To(Succeed())

			for i := 0; i < 10000; i++ {
				n.OnDirectionChanged(60)
			}

			s := n.Snapshot()
			Expect(s.State).To(Equal(nav.Stopped))
			Expect(s.StopCause.Has(nav.StopTurnTimeout)).To(BeTrue())
			Expect(s.Corrections).To(Equal(2))
			Expect(rec.Commands()).To(Equal([]motor.Command{
				turn(90, motor.Right),
				turn(90, motor.Right),
				turn(90, motor.Right),
				stopTurn(90),
			}))
		})

		It("re-issues the turn when the heading moves away from the target", func() {
			n := newNav(nav.Path{90})
			Expect(n.Start(0)).To(Succeed())

			n.OnDirectionChanged(60)
			n.OnDirectionChanged(50)

			Expect(n.Snapshot().Corrections).To(Equal(1))
			Expect(rec.Commands()).To(Equal([]motor.Command{turn(90, motor.Right), turn(90, motor.Right)}))
		})

		It("leaves a steadily progressing turn alone", func() {
			cfg.MaxCorrections = 2
			n := newNav(nav.Path{90})
			Expect(n.Start(0)).To(Succeed())

			for d := 1; d < 90; d++ {
				n.OnDirectionChanged(d)
			}
			Expect(n.State()).To(Equal(nav.Turning))
			Expect(n.Snapshot().Corrections).To(BeZero())
			Expect(rec.Commands()).To(HaveLen(1))

			n.OnDirectionChanged(90)
			Expect(rec.Commands()).To(Equal([]motor.Command{turn(90, motor.Right), stopTurn(90), drive(300)}))
		})

		It("records heading changes while driving without issuing commands", func() {
			n := newNav(nav.Path{0})
			Expect(n.Start(0)).To(Succeed())
			n.OnDirectionChanged(3)

			Expect(n.Snapshot().ActualDirection).To(Equal(3.0))
			Expect(rec.Commands()).To(HaveLen(1))
		})
	})

	Describe("an obstacle before the start", func() {
		var n *nav.Navigator

		BeforeEach(func() {
			n = newNav(nav.Path{0, 0})
			n.OnDistanceIrChanged(550)
		})

		It("stops without issuing a command", func() {
			s := n.Snapshot()
			Expect(s.State).To(Equal(nav.Stopped))
			Expect(s.StopCause).To(Equal(nav.StopObstacle))
			Expect(rec.Commands()).To(BeEmpty())
		})

		It("stays stopped through Start until resumed", func() {
			Expect(n.Start(0)).To(Succeed())
			Expect(n.State()).To(Equal(nav.Stopped))
			Expect(rec.Commands()).To(BeEmpty())

			Expect(n.Resume()).To(Succeed())
			Expect(n.State()).To(Equal(nav.Driving))
			Expect(rec.Commands()).To(Equal([]motor.Command{drive(600)}))
		})

		It("can be cleared before Start", func() {
			Expect(n.Resume()).To(Succeed())
			Expect(n.State()).To(Equal(nav.Idle))
			Expect(n.Snapshot().StopCause).To(BeZero())

			Expect(n.Start(0)).To(Succeed())
			Expect(rec.Commands()).To(Equal([]motor.Command{drive(600)}))
		})

		It("ignores distant readings", func() {
			m := newNav(nav.Path{0})
			m.OnDistanceIrChanged(5000)
			Expect(m.State()).To(Equal(nav.Idle))
		})
	})

	It("reports transitions to observers", func() {
		var seen []nav.State
		obs := nav.ObserverFunc(func(from, to nav.State, s nav.Snapshot) {
			seen = append(seen, to)
		})
		n := newNav(nav.Path{0, 90}, nav.WithObserver(obs))
		Expect(n.Start(0)).To(Succeed())
		n.OnDistanceDrivenChanged(300)
		n.OnDirectionChanged(90)
		n.OnDistanceDrivenChanged(600)

		Expect(seen).To(Equal([]nav.State{
			nav.Driving, nav.Idle, nav.Turning, nav.Idle, nav.Driving, nav.Idle, nav.Done,
		}))
	})

	It("is safe to feed from several goroutines", func() {
		n := newNav(nav.Path{0, 90, 180, 270})
		Expect(n.Start(0)).To(Succeed())

		var wg sync.WaitGroup
		for g := 0; g < 3; g++ {
			wg.Add(1)
			go func(g int) {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < 200; i++ {
					switch g {
					case 0:
						n.OnDistanceDrivenChanged(i * 10)
					case 1:
						n.OnDistanceIrChanged(5000)
					case 2:
						n.OnDirectionChanged((i * 7) % 360)
					}
					_ = n.Snapshot()
				}
			}(g)
		}
		wg.Wait()
		Expect(n.Snapshot().CurrentStep).To(BeNumerically("<=", 4))
	})
})

var _ = Describe("StopCause", func() {
	It("renders its bits", func() {
		Expect(nav.StopCause(0).String()).To(Equal("none"))
		Expect(nav.StopObstacle.String()).To(Equal("obstacle"))
		Expect((nav.StopObstacle | nav.StopTurnTimeout).String()).To(Equal("obstacle|turn_timeout"))
	})
})
