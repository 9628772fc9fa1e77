package timing

import (
	"strings"
	"time"

	"race-timing/core/store"
)

// Checkpoint names with race state meaning.
const (
	CheckpointStart  = "START"
	CheckpointFinish = "FINISH"
)

// IsStart reports whether name is the start checkpoint.
func IsStart(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), CheckpointStart)
}

// IsFinish reports whether name is the finish checkpoint.
func IsFinish(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), CheckpointFinish)
}

// Transition returns the runner state after a scan at checkpoint. elapsed is
// measured against the runner's start time before this scan.
//
// A START after FINISH restarts the race: the runner goes back to
// in_progress and the finish and net times are cleared.
func Transition(r store.Runner, checkpoint string, at time.Time, elapsed int64) store.Runner {
	r.LatestCheckpoint = checkpoint
	r.ElapsedTime = &elapsed

	switch {
	case IsStart(checkpoint):
		start := at
		r.StartTime = &start
		r.Status = store.StatusInProgress
		r.FinishTime = nil
		r.NetTime = nil
	case IsFinish(checkpoint):
		finish := at
		net := elapsed
		r.FinishTime = &finish
		r.NetTime = &net
		r.Status = store.StatusFinished
	case r.Status == store.StatusNotStarted || r.Status == "":
		r.Status = store.StatusInProgress
	}
	return r
}

// stateColumns are the runner columns a scan may change.
func stateColumns(r store.Runner) map[string]any {
	return map[string]any{
		"status":            r.Status,
		"start_time":        r.StartTime,
		"finish_time":       r.FinishTime,
		"net_time":          r.NetTime,
		"elapsed_time":      r.ElapsedTime,
		"latest_checkpoint": r.LatestCheckpoint,
		"updated_at":        time.Now(),
	}
}
