package ranking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"race-timing/core/store"

	"go.uber.org/zap"
)

// Compute ranks finishers by net time. Ties and missing net times keep their
// input order, missing ones last. Gender and age-group ranks count positions
// inside each partition, preserving the overall order.
func Compute(finishers []store.Runner) []store.RankUpdate {
	ordered := make([]store.Runner, len(finishers))
	copy(ordered, finishers)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].NetTime, ordered[j].NetTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})

	genderPos := map[string]int{}
	agePos := map[string]int{}
	updates := make([]store.RankUpdate, len(ordered))
	for i, r := range ordered {
		genderPos[r.Gender]++
		agePos[r.AgeGroup]++
		updates[i] = store.RankUpdate{
			RunnerID:     r.ID,
			OverallRank:  i + 1,
			GenderRank:   genderPos[r.Gender],
			AgeGroupRank: agePos[r.AgeGroup],
		}
	}
	return updates
}

// Store is the part of the runner store the engine needs.
type Store interface {
	Finishers(ctx context.Context, eventID, category string) ([]store.Runner, error)
	WriteRanks(ctx context.Context, updates []store.RankUpdate) error
}

// Engine recomputes rankings against the runner store.
type Engine struct {
	store  Store
	logger *zap.Logger
	locks  keyedMutex
}

// NewEngine creates a ranking engine.
func NewEngine(s Store, logger *zap.Logger) *Engine {
	return &Engine{store: s, logger: logger}
}

// Recompute ranks every finisher of (eventID, category). Recomputations of one
// category run one at a time.
func (e *Engine) Recompute(ctx context.Context, eventID, category string) error {
	unlock := e.locks.Lock(eventID + "|" + category)
	defer unlock()

	finishers, err := e.store.Finishers(ctx, eventID, category)
	if err != nil {
		return err
	}
	updates := Compute(finishers)
	if err := e.store.WriteRanks(ctx, updates); err != nil {
		return fmt.Errorf("failed to write ranks: %w", err)
	}

	e.logger.Debug("Rankings recomputed",
		zap.String("event_id", eventID),
		zap.String("category", category),
		zap.Int("finishers", len(updates)),
	)
	return nil
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
