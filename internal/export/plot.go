// Package export renders traces as charts.
package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/motionctl/internal/trace"
)

var (
	targetColor = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	rpmColor    = color.RGBA{R: 0x00, G: 0xaa, B: 0x44, A: 0xff}
	powerColor  = color.RGBA{R: 0xcc, G: 0x66, B: 0x00, A: 0xff}
	trackColor  = color.RGBA{R: 0x22, G: 0x55, B: 0xcc, A: 0xff}
)

const (
	Width  = 10 * vg.Inch
	Height = 5 * vg.Inch
)

// SpeedChart plots target and measured RPM, plus the power command, for
// one channel of a trace.
func SpeedChart(samples []trace.Sample, channel string) (*plot.Plot, error) {
	var target, rpm, power plotter.XYs
	for _, s := range samples {
		if s.Channel != channel {
			continue
		}
		t := s.Time.Seconds()
		target = append(target, plotter.XY{X: t, Y: s.TargetRPM})
		rpm = append(rpm, plotter.XY{X: t, Y: s.RPM})
		power = append(power, plotter.XY{X: t, Y: float64(s.Power)})
	}
	if len(rpm) == 0 {
		return nil, fmt.Errorf("export: no samples for channel %s", channel)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Channel %s speed", channel)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "rpm / power %"

	for _, series := range []struct {
		name  string
		pts   plotter.XYs
		color color.Color
	}{
		{"target", target, targetColor},
		{"rpm", rpm, rpmColor},
		{"power", power, powerColor},
	} {
		line, err := plotter.NewLine(series.pts)
		if err != nil {
			return nil, fmt.Errorf("export: %s line: %w", series.name, err)
		}
		line.Color = series.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// Track dead-reckons the rover's ground track from the sensor events of a
// trace: every odometer increase is laid along the last compass heading.
// Headings are clockwise from north, so 0 is +Y and 90 is +X.
func Track(events []trace.Event, initialHeading float64) plotter.XYs {
	pts := plotter.XYs{{X: 0, Y: 0}}
	heading := initialHeading
	last := 0
	for _, e := range events {
		switch e.Kind {
		case "direction":
			heading = float64(e.Value)
		case "distance_driven":
			d := float64(e.Value - last)
			last = e.Value
			rad := heading * math.Pi / 180
			prev := pts[len(pts)-1]
			pts = append(pts, plotter.XY{X: prev.X + d*math.Sin(rad), Y: prev.Y + d*math.Cos(rad)})
		}
	}
	return pts
}

func TrackChart(events []trace.Event, initialHeading float64) (*plot.Plot, error) {
	pts := Track(events, initialHeading)
	p := plot.New()
	p.Title.Text = "Ground track"
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("export: track: %w", err)
	}
	line.Color = trackColor
	line.Width = vg.Points(1.5)
	points.Color = trackColor
	points.Radius = vg.Points(1)
	p.Add(line, points, plotter.NewGrid())
	return p, nil
}

// Save writes p to file; the format follows the extension (png, svg, pdf).
func Save(p *plot.Plot, file string) error {
	return p.Save(Width, Height, file)
}

// Write encodes p in format (png, svg, pdf) to w.
func Write(p *plot.Plot, w io.Writer, format string) error {
	wt, err := p.WriterTo(Width, Height, strings.ToLower(format))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Format returns the image format implied by file's extension.
func Format(file string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
}
