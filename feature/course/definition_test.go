package course

import (
	"strings"
	"testing"

	"race-timing/core/apperr"
	"race-timing/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
checkpoints:
  - name: START
  - name: CP1
    km: 5
    cutoff: "07:30"
  - name: Turnaround
    km: 10.5
    active: false
  - name: FINISH
    km: 21.1
events:
  - event: "21K"
    points: [START, CP1, Turnaround, FINISH]
    cutoff_minutes:
      CP1: 60
  - event: "5K"
    points: [START, FINISH]
`

func TestParse(t *testing.T) {
	def, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, def.Checkpoints, 4)
	types := []string{}
	for _, p := range def.Checkpoints {
		types = append(types, p.Type)
	}
	assert.Equal(t, []string{store.CheckpointStart, store.CheckpointMiddle, store.CheckpointMiddle, store.CheckpointFinish}, types)
	assert.Equal(t, 21.1, *def.Checkpoints[3].Km)
	assert.False(t, *def.Checkpoints[2].Active)
	require.Len(t, def.Events, 2)
	assert.Equal(t, map[string]int{"CP1": 60}, def.Events[0].CutoffMinutes)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"empty", "", "course definition is empty"},
		{"no checkpoints", "checkpoints: []", "course has no checkpoints"},
		{"unknown key", "checkpoints:\n  - name: START\n    distance: 3", "invalid course definition"},
		{"unnamed", "checkpoints:\n  - km: 1", "checkpoint 1 has no name"},
		{"duplicate", "checkpoints:\n  - name: CP 1\n  - name: cp1", "duplicate checkpoint cp1"},
		{"bad type", "checkpoints:\n  - name: START\n    type: gate", "unknown type gate"},
		{"km decreases", "checkpoints:\n  - name: A\n    km: 5\n  - name: B\n    km: 3", "km must not decrease"},
		{"bad cutoff", "checkpoints:\n  - name: A\n    cutoff: \"25:00\"", "unparseable cutoff"},
		{"unknown point", "checkpoints:\n  - name: A\nevents:\n  - event: 10K\n    points: [B]", "unknown checkpoint B"},
		{"no points", "checkpoints:\n  - name: A\nevents:\n  - event: 10K", "maps no points"},
		{"no event", "checkpoints:\n  - name: A\nevents:\n  - points: [A]", "event mapping without event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.ErrorIs(t, err, apperr.ErrInvalid)
			assert.Contains(t, apperr.Public(err, true), tt.msg)
		})
	}
}

func TestTypeAt(t *testing.T) {
	assert.Equal(t, store.CheckpointStart, typeAt("Gate", 0, 3))
	assert.Equal(t, store.CheckpointFinish, typeAt("Gate", 2, 3))
	assert.Equal(t, store.CheckpointMiddle, typeAt("Gate", 1, 3))
	assert.Equal(t, store.CheckpointFinish, typeAt("Finish Line", 1, 3))
}
