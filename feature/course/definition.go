package course

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"race-timing/core/apperr"
	"race-timing/core/store"
	"race-timing/feature/cutoff"
	"race-timing/feature/sync/mapping"

	"gopkg.in/yaml.v3"
)

// Definition is a course as written in a YAML file.
type Definition struct {
	// Checkpoints lists the physical timing points in course order.
	Checkpoints []Point `yaml:"checkpoints"`

	// Events optionally restricts events to a subset of the course.
	Events []EventCourse `yaml:"events,omitempty"`
}

// Point is one checkpoint of the course.
type Point struct {
	Name string `yaml:"name"`

	// Type is start, checkpoint or finish. It is derived from the name and position when empty.
	Type   string   `yaml:"type,omitempty"`
	Km     *float64 `yaml:"km,omitempty"`
	Cutoff string   `yaml:"cutoff,omitempty"`
	Active *bool    `yaml:"active,omitempty"`
}

// EventCourse maps one event onto course points, in the order the event passes them.
type EventCourse struct {
	// Event is an event id, name, category or remote id.
	Event string `yaml:"event"`

	Points []string `yaml:"points"`

	// CutoffMinutes holds per-point cutoffs relative to the event start.
	CutoffMinutes map[string]int `yaml:"cutoff_minutes,omitempty"`
}

// Parse decodes and validates a definition. Unknown keys are rejected.
func Parse(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Invalid("course definition is empty")
		}
		return nil, apperr.Invalid(fmt.Sprintf("invalid course definition: %v", err))
	}
	if err := def.Validate(time.Now()); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks names, types, distances and cutoffs. now anchors clock-only cutoffs.
func (d *Definition) Validate(now time.Time) error {
	if len(d.Checkpoints) == 0 {
		return apperr.Invalid("course has no checkpoints")
	}

	seen := make(map[string]bool, len(d.Checkpoints))
	var lastKm *float64
	for i := range d.Checkpoints {
		p := &d.Checkpoints[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return apperr.Invalid(fmt.Sprintf("checkpoint %d has no name", i+1))
		}
		key := mapping.NormalizeKey(p.Name)
		if seen[key] {
			return apperr.Invalid(fmt.Sprintf("duplicate checkpoint %s", p.Name))
		}
		seen[key] = true

		switch p.Type {
		case "":
			p.Type = typeAt(p.Name, i, len(d.Checkpoints))
		case store.CheckpointStart, store.CheckpointMiddle, store.CheckpointFinish:
		default:
			return apperr.Invalid(fmt.Sprintf("checkpoint %s has unknown type %s", p.Name, p.Type))
		}

		if p.Km != nil {
			if *p.Km < 0 || (lastKm != nil && *p.Km < *lastKm) {
				return apperr.Invalid(fmt.Sprintf("checkpoint %s: km must not decrease along the course", p.Name))
			}
			lastKm = p.Km
		}
		if p.Cutoff != "" && p.Cutoff != "-" {
			if _, ok := cutoff.ParseCutoff(p.Cutoff, now); !ok {
				return apperr.Invalid(fmt.Sprintf("checkpoint %s has unparseable cutoff %q", p.Name, p.Cutoff))
			}
		}
	}

	for _, ev := range d.Events {
		if strings.TrimSpace(ev.Event) == "" {
			return apperr.Invalid("event mapping without event")
		}
		if len(ev.Points) == 0 {
			return apperr.Invalid(fmt.Sprintf("event %s maps no points", ev.Event))
		}
		for _, name := range ev.Points {
			if !seen[mapping.NormalizeKey(name)] {
				return apperr.Invalid(fmt.Sprintf("event %s references unknown checkpoint %s", ev.Event, name))
			}
		}
		for name := range ev.CutoffMinutes {
			if !seen[mapping.NormalizeKey(name)] {
				return apperr.Invalid(fmt.Sprintf("event %s sets a cutoff on unknown checkpoint %s", ev.Event, name))
			}
		}
	}
	return nil
}

// typeAt derives a type the way provider points are classified, falling back to the position.
func typeAt(name string, i, n int) string {
	switch {
	case i == 0:
		return store.CheckpointStart
	case i == n-1:
		return store.CheckpointFinish
	}
	return mapping.ClassifyPoint(name, float64(i+1))
}
