package trace

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"time"
)

// Meta describes the run a trace belongs to.
type Meta struct {
	Path           []float64 `json:"path"`
	InitialHeading float64   `json:"initial_heading"`
	Variant        string    `json:"variant"`
	Outcome        string    `json:"outcome"`
	StopCause      string    `json:"stop_cause"`
	Duration       float64   `json:"duration_s"`
}

type Document struct {
	Meta        Meta               `json:"meta"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Transitions []Transition       `json:"transitions"`
	Commands    []Command          `json:"commands"`
	Events      []Event            `json:"events"`
	Samples     []Sample           `json:"samples"`
}

func (t *Trace) Document(meta Meta, metrics map[string]float64) Document {
	return Document{
		Meta:        meta,
		Metrics:     metrics,
		Transitions: t.Transitions(),
		Commands:    t.Commands(),
		Events:      t.Events(),
		Samples:     t.Samples(),
	}
}

func (t *Trace) WriteJSON(w io.Writer, meta Meta, metrics map[string]float64) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t.Document(meta, metrics))
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteSamplesCSV writes one row per speed-loop sample.
func (t *Trace) WriteSamplesCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_s", "channel", "target_rpm", "rpm", "delta", "power"}); err != nil {
		return err
	}
	for _, s := range t.Samples() {
		row := []string{seconds(s.Time), s.Channel, ftoa(s.TargetRPM), ftoa(s.RPM), ftoa(s.Delta), strconv.Itoa(s.Power)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TimelineRow is one line of the merged timeline.
type TimelineRow struct {
	Time   time.Duration
	Source string
	Kind   string
	Detail string
}

// Timeline merges transitions, commands and sensor events in time order.
// Entries with equal times keep the order transitions, commands, events.
func (t *Trace) Timeline() []TimelineRow {
	var rows []TimelineRow
	for _, tr := range t.Transitions() {
		rows = append(rows, TimelineRow{tr.Time, "nav", tr.From + "->" + tr.To, "step=" + strconv.Itoa(tr.Step) + " cause=" + tr.StopCause})
	}
	for _, c := range t.Commands() {
		detail := "distance=" + strconv.Itoa(c.Distance)
		if c.Kind == "start_turn" || c.Kind == "stop_turn" {
			detail = "direction=" + ftoa(c.Direction)
			if c.Rotation != "" {
				detail += " rotation=" + c.Rotation
			}
		}
		rows = append(rows, TimelineRow{c.Time, "motor", c.Kind, detail})
	}
	for _, e := range t.Events() {
		rows = append(rows, TimelineRow{e.Time, "sensor", e.Kind, strconv.Itoa(e.Value)})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time < rows[j].Time })
	return rows
}

func (t *Trace) WriteTimelineCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_s", "source", "kind", "detail"}); err != nil {
		return err
	}
	for _, r := range t.Timeline() {
		if err := cw.Write([]string{seconds(r.Time), r.Source, r.Kind, r.Detail}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
