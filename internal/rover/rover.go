package rover

import (
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/motionctl/internal/motor"
	"github.com/san-kum/motionctl/internal/sensors"
)

// Publisher is where the rover reports its sensor readings.
type Publisher interface {
	Publish(k sensors.Kind, v int) error
}

type Config struct {
	// DriveSpeed in mm/s.
	DriveSpeed float64
	// TurnRate in degrees per second.
	TurnRate float64
	// TurnLag is how many degrees a turn keeps rotating after StopTurn.
	TurnLag float64
	// ObstacleAt is the odometer reading, in mm, of an obstacle straight
	// ahead. Zero means the way is clear.
	ObstacleAt float64
}

func DefaultConfig() Config {
	return Config{
		DriveSpeed: 200,
		TurnRate:   90,
	}
}

func (c Config) Validate() error {
	if c.DriveSpeed <= 0 {
		return fmt.Errorf("rover: drive speed must be positive, got %v", c.DriveSpeed)
	}
	if c.TurnRate <= 0 {
		return fmt.Errorf("rover: turn rate must be positive, got %v", c.TurnRate)
	}
	if c.TurnLag < 0 || c.ObstacleAt < 0 {
		return fmt.Errorf("rover: turn lag and obstacle distance must not be negative")
	}
	return nil
}

// Rover is a kinematic robot body that implements motor.Motion.
type Rover struct {
	cfg Config
	out Publisher

	mu        sync.Mutex
	heading   float64
	odometer  float64
	driving   bool
	turning   bool
	rotation  motor.Rotation
	coast     float64
	lastDir   int
	lastDist  int
	lastIR    int
	rejected  int
	published int
}

func New(cfg Config, out Publisher, initialHeading float64) (*Rover, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Rover{
		cfg:     cfg,
		out:     out,
		heading: normalize(initialHeading),
		lastDir: -1,
		lastIR:  -1,
	}, nil
}

func normalize(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func (r *Rover) StartDrive(distanceMM int) {
	r.mu.Lock()
	r.driving = true
	r.mu.Unlock()
}

func (r *Rover) StopDrive(distanceMM int) {
	r.mu.Lock()
	r.driving = false
	r.mu.Unlock()
}

func (r *Rover) StartTurn(direction float64, rot motor.Rotation) {
	r.mu.Lock()
	r.turning = true
	r.rotation = rot
	r.coast = 0
	r.mu.Unlock()
}

func (r *Rover) StopTurn(direction float64) {
	r.mu.Lock()
	if r.turning {
		r.coast = r.cfg.TurnLag
	}
	r.turning = false
	r.mu.Unlock()
}

// Pose returns the current heading and odometer reading.
func (r *Rover) Pose() (heading, odometer float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.heading, r.odometer
}

func (r *Rover) Moving() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.driving || r.turning || r.coast > 0
}

// Step advances the body by dt seconds and publishes every reading that
// changed. Publishing happens after the rover's lock is released.
func (r *Rover) Step(dt float64) {
	type reading struct {
		k sensors.Kind
		v int
	}
	var out []reading

	r.mu.Lock()
	if r.turning || r.coast > 0 {
		delta := r.cfg.TurnRate * dt
		if !r.turning {
			delta = math.Min(delta, r.coast)
			r.coast -= delta
		}
		if r.rotation == motor.Left {
			delta = -delta
		}
		r.heading = normalize(r.heading + delta)
	}
	if r.driving {
		r.odometer += r.cfg.DriveSpeed * dt
	}

	if dir := int(math.Round(r.heading)) % 360; dir != r.lastDir {
		r.lastDir = dir
		out = append(out, reading{sensors.Direction, dir})
	}
	if dist := int(r.odometer); dist != r.lastDist {
		r.lastDist = dist
		out = append(out, reading{sensors.DistanceDriven, dist})
	}
	if ir := r.irReading(); ir != r.lastIR {
		r.lastIR = ir
		out = append(out, reading{sensors.DistanceIR, ir})
	}
	r.mu.Unlock()

	for _, rd := range out {
		if err := r.out.Publish(rd.k, rd.v); err != nil {
			r.mu.Lock()
			r.rejected++
			r.mu.Unlock()
			continue
		}
		r.mu.Lock()
		r.published++
		r.mu.Unlock()
	}
}

func (r *Rover) irReading() int {
	if r.cfg.ObstacleAt <= 0 {
		return sensors.MaxIRDistance
	}
	d := r.cfg.ObstacleAt - r.odometer
	switch {
	case d < sensors.MinIRDistance:
		return sensors.MinIRDistance
	case d > sensors.MaxIRDistance:
		return sensors.MaxIRDistance
	}
	return int(d)
}

// Counters reports how many readings were published and rejected.
func (r *Rover) Counters() (published, rejected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.published, r.rejected
}

// SetDriveSpeed changes the forward speed in mm/s, for bodies whose speed
// follows a simulated wheel motor.
func (r *Rover) SetDriveSpeed(mmPerSec float64) {
	r.mu.Lock()
	r.cfg.DriveSpeed = mmPerSec
	r.mu.Unlock()
}

// ClearObstacle removes the obstacle, as if it had been moved away.
func (r *Rover) ClearObstacle() {
	r.mu.Lock()
	r.cfg.ObstacleAt = 0
	r.mu.Unlock()
}

var _ motor.Motion = (*Rover)(nil)
