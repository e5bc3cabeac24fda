package robot_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/motionctl/internal/control"
	"github.com/san-kum/motionctl/internal/motor"
	"github.com/san-kum/motionctl/internal/nav"
	"github.com/san-kum/motionctl/internal/robot"
	"github.com/san-kum/motionctl/internal/rover"
	"github.com/san-kum/motionctl/internal/sensors"
)

// instantBody completes every command at once by publishing the reading the
// command was waiting for. The first drive can be made to meet an obstacle.
type instantBody struct {
	board *sensors.Board

	mu        sync.Mutex
	odometer  int
	blockNext bool
}

func (b *instantBody) StartDrive(mm int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.blockNext {
		b.blockNext = false
		b.board.Publish(sensors.DistanceIR, 550)
		return
	}
	b.odometer += mm
	b.board.Publish(sensors.DistanceDriven, b.odometer)
}

func (b *instantBody) StopDrive(int) {}

func (b *instantBody) StartTurn(direction float64, _ motor.Rotation) {
	b.board.Publish(sensors.Direction, int(direction))
}

func (b *instantBody) StopTurn(float64) {}

type idleBody struct{}

func (idleBody) StartDrive(int)                    {}
func (idleBody) StopDrive(int)                     {}
func (idleBody) StartTurn(float64, motor.Rotation) {}
func (idleBody) StopTurn(float64)                  {}

var _ = Describe("Robot", func() {
	var (
		board *sensors.Board
		plant *rover.Plant
		loop  control.LoopConfig
	)

	BeforeEach(func() {
		board = sensors.NewBoard()
		var err error
		plant, err = rover.NewPlant(rover.DefaultPlantConfig(), nil)
		Expect(err).NotTo(HaveOccurred())
		loop = control.DefaultLoopConfig()
		loop.Period = 5 * time.Millisecond
	})

	build := func(path nav.Path, motion motor.Motion) *robot.Robot {
		r, err := robot.New(robot.Parts{
			Board:  board,
			Motion: motion,
			Motors: plant,
			Path:   path,
			Nav:    nav.DefaultConfig(),
			Gains:  control.Gains{Kp: 0.6, Ki: 0.1},
			Loop:   loop,
		}, robot.WithQuantum(time.Millisecond))
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	It("requires its collaborators", func() {
		_, err := robot.New(robot.Parts{Path: nav.Path{0}, Nav: nav.DefaultConfig(), Loop: loop})
		Expect(err).To(HaveOccurred())
	})

	It("runs a path to completion", func() {
		body := &instantBody{board: board}
		r := build(nav.Path{0, 0, 90, 180}, body)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(r.Run(ctx, 0)).To(Succeed())
		Expect(r.Navigator.State()).To(Equal(nav.Done))
		Expect(r.Navigator.Snapshot().ActualDistance).To(Equal(1200))
		Eventually(r.Navigator.Done()).Should(BeClosed())
	})

	It("cuts motor power when it returns", func() {
		r := build(nav.Path{0}, &instantBody{board: board})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(r.Run(ctx, 0)).To(Succeed())
		Expect(plant.Power(motor.ChannelA)).To(Equal(0))
	})

	It("reports an obstacle stop and resumes", func() {
		body := &instantBody{board: board, blockNext: true}
		r := build(nav.Path{0}, body)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := r.Run(ctx, 0)
		Expect(errors.Is(err, robot.ErrStopped)).To(BeTrue())
		var stop *robot.StopError
		Expect(errors.As(err, &stop)).To(BeTrue())
		Expect(stop.Snapshot.StopCause.Has(nav.StopObstacle)).To(BeTrue())
		Expect(stop.Error()).To(ContainSubstring("obstacle"))

		Expect(r.Resume(ctx)).To(Succeed())
		Expect(r.Navigator.State()).To(Equal(nav.Done))
	})

	It("refuses to resume when not stopped", func() {
		r := build(nav.Path{0}, &instantBody{board: board})
		Expect(r.Resume(context.Background())).To(MatchError(nav.ErrNotStopped))
	})

	It("returns the context error when cancelled", func() {
		r := build(nav.Path{0}, idleBody{})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		Expect(r.Run(ctx, 0)).To(MatchError(context.DeadlineExceeded))
		Expect(r.Navigator.State()).To(Equal(nav.Driving))
	})
})
