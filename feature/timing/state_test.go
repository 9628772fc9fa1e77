package timing

import (
	"testing"
	"time"

	"race-timing/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	at := time.Date(2025, 3, 2, 6, 30, 0, 0, time.UTC)
	started := at.Add(-time.Hour)
	net := int64(3600000)

	tests := []struct {
		name       string
		runner     store.Runner
		checkpoint string
		elapsed    int64
		check      func(t *testing.T, r store.Runner)
	}{
		{
			name:       "start sets start time",
			runner:     store.Runner{Status: store.StatusNotStarted},
			checkpoint: "start",
			check: func(t *testing.T, r store.Runner) {
				assert.Equal(t, store.StatusInProgress, r.Status)
				require.NotNil(t, r.StartTime)
				assert.True(t, r.StartTime.Equal(at))
				assert.Equal(t, "start", r.LatestCheckpoint)
			},
		},
		{
			name:       "middle checkpoint promotes not started",
			runner:     store.Runner{Status: store.StatusNotStarted},
			checkpoint: "CP1",
			check: func(t *testing.T, r store.Runner) {
				assert.Equal(t, store.StatusInProgress, r.Status)
				assert.Nil(t, r.StartTime)
			},
		},
		{
			name:       "middle checkpoint keeps dnf",
			runner:     store.Runner{Status: store.StatusDNF},
			checkpoint: "CP2",
			check: func(t *testing.T, r store.Runner) {
				assert.Equal(t, store.StatusDNF, r.Status)
			},
		},
		{
			name:       "finish sets net time from elapsed",
			runner:     store.Runner{Status: store.StatusInProgress, StartTime: &started},
			checkpoint: " Finish ",
			elapsed:    net,
			check: func(t *testing.T, r store.Runner) {
				assert.Equal(t, store.StatusFinished, r.Status)
				require.NotNil(t, r.NetTime)
				assert.Equal(t, net, *r.NetTime)
				require.NotNil(t, r.FinishTime)
				assert.True(t, r.FinishTime.Equal(at))
				assert.Equal(t, net, *r.ElapsedTime)
			},
		},
		{
			name:       "start after finish restarts",
			runner:     store.Runner{Status: store.StatusFinished, StartTime: &started, FinishTime: &at, NetTime: &net},
			checkpoint: "START",
			elapsed:    net,
			check: func(t *testing.T, r store.Runner) {
				assert.Equal(t, store.StatusInProgress, r.Status)
				assert.Nil(t, r.NetTime)
				assert.Nil(t, r.FinishTime)
				assert.True(t, r.StartTime.Equal(at))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Transition(tt.runner, tt.checkpoint, at, tt.elapsed))
		})
	}
}

func TestTransition_DoesNotMutateInput(t *testing.T) {
	in := store.Runner{Status: store.StatusNotStarted}
	Transition(in, "START", time.Now(), 0)
	assert.Equal(t, store.StatusNotStarted, in.Status)
	assert.Nil(t, in.StartTime)
}
