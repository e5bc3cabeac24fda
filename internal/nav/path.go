package nav

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Path is the ordered sequence of headings to follow, one per grid square.
type Path []float64

func (p Path) Validate() error {
	for i, h := range p {
		if math.IsNaN(h) || h < 0 || h >= 360 {
			return fmt.Errorf("%w: step %d heading %v not in [0, 360)", ErrInvalidPath, i, h)
		}
	}
	return nil
}

func (p Path) Clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, h := range p {
		parts[i] = strconv.FormatFloat(h, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ParsePath reads a comma separated list of headings.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, nil
	}
	fields := strings.Split(s, ",")
	p := make(Path, 0, len(fields))
	for _, f := range fields {
		h, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
		p = append(p, h)
	}
	return p, p.Validate()
}

// Segments groups consecutive equal headings the way the navigator merges
// them into single drives, assuming every turn lands exactly.
func (p Path) Segments(epsilon float64) []Segment {
	var segs []Segment
	for i := 0; i < len(p); {
		j := i + 1
		for j < len(p) && Within(p[i], p[j], epsilon) {
			j++
		}
		segs = append(segs, Segment{Heading: p[i], First: i, Squares: j - i})
		i = j
	}
	return segs
}

type Segment struct {
	Heading float64
	First   int
	Squares int
}
