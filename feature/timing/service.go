package timing

import (
	"context"
	"errors"
	"strings"
	"time"

	"race-timing/core/apperr"
	"race-timing/core/realtime"
	"race-timing/core/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScanInput is one checkpoint pass as reported by a reader or an operator.
type ScanInput struct {
	EventID    string    `json:"eventId"`
	Bib        string    `json:"bib"`
	Chip       string    `json:"chip"`
	Checkpoint string    `json:"checkpoint"`
	Timestamp  time.Time `json:"timestamp"`
	Note       string    `json:"note"`
}

// Ranker recomputes a category's ranks after a finish.
type Ranker interface {
	Recompute(ctx context.Context, eventID, category string) error
}

// Service handles scan ingestion.
type Service struct {
	runners   *store.Runners
	scans     *store.Scans
	events    *store.Events
	ranker    Ranker
	publisher realtime.Publisher
	listLimit int
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new timing service.
func NewService(db *gorm.DB, ranker Ranker, publisher realtime.Publisher, listLimit int, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	return &Service{
		runners:   store.NewRunners(db),
		scans:     store.NewScans(db),
		events:    store.NewEvents(db),
		ranker:    ranker,
		publisher: publisher,
		listLimit: listLimit,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessScan records a scan and applies its effect on the runner.
func (s *Service) ProcessScan(ctx context.Context, in ScanInput) (*store.ScanRecord, error) {
	in.EventID = strings.TrimSpace(in.EventID)
	in.Bib = strings.TrimSpace(in.Bib)
	in.Chip = strings.TrimSpace(in.Chip)
	in.Checkpoint = strings.TrimSpace(in.Checkpoint)
	if in.EventID == "" || in.Checkpoint == "" {
		return nil, apperr.Invalid("eventId and checkpoint are required")
	}
	if in.Bib == "" && in.Chip == "" {
		return nil, apperr.Invalid("bib or chip is required")
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.now()
	}

	runner, err := s.resolveRunner(ctx, in)
	if err != nil {
		return nil, err
	}

	at := in.Timestamp
	record, updated, err := s.scans.Append(ctx, runner.ID, func(r *store.Runner, order int, prev *store.ScanRecord) (store.ScanRecord, map[string]any) {
		var split, elapsed int64
		if prev != nil {
			split = at.Sub(prev.ScanTime).Milliseconds()
		}
		if r.StartTime != nil {
			elapsed = at.Sub(*r.StartTime).Milliseconds()
		}
		next := Transition(*r, in.Checkpoint, at, elapsed)
		return store.ScanRecord{
			Checkpoint:  in.Checkpoint,
			ScanTime:    at,
			SplitTime:   split,
			ElapsedTime: elapsed,
			ChipCode:    in.Chip,
			Note:        in.Note,
		}, stateColumns(next)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("runner not found")
		}
		return nil, err
	}

	l := s.logger.With(zap.String("runner_id", updated.ID), zap.String("bib", updated.Bib))
	l.Debug("Scan recorded", zap.String("checkpoint", record.Checkpoint), zap.Int("order", record.Order))

	if IsFinish(in.Checkpoint) && s.ranker != nil {
		if err := s.ranker.Recompute(ctx, updated.EventID, updated.Category); err != nil {
			l.Error("Ranking recomputation failed", zap.Error(err))
		}
	}

	room := realtime.EventRoom(updated.EventID)
	s.publisher.Publish(room, realtime.EventRunnerUpdate, updated)
	s.publisher.Publish(room, realtime.EventNewScan, record)

	return record, nil
}

func (s *Service) resolveRunner(ctx context.Context, in ScanInput) (*store.Runner, error) {
	var (
		runner *store.Runner
		err    error
	)
	if in.Bib != "" {
		runner, err = s.runners.FindByBib(ctx, in.EventID, in.Bib)
		if err == nil {
			return runner, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	// A reader may send the chip in the bib field
	chip := in.Chip
	if chip == "" {
		chip = in.Bib
	}
	runner, err = s.runners.FindByChip(ctx, in.EventID, chip)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("runner not found for bib %q chip %q", in.Bib, in.Chip)
	}
	return runner, err
}

// RunnerScans returns a runner's scans in sequence order.
func (s *Service) RunnerScans(ctx context.Context, runnerID string) ([]store.ScanRecord, error) {
	if _, err := s.runners.Get(ctx, runnerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("runner not found")
		}
		return nil, err
	}
	return s.scans.ForRunner(ctx, runnerID)
}

// EventScans returns an event's scans, newest first. limit is capped at the list limit.
func (s *Service) EventScans(ctx context.Context, eventID string, limit, offset int) ([]store.ScanRecord, error) {
	if limit <= 0 || (s.listLimit > 0 && limit > s.listLimit) {
		limit = s.listLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.scans.ForEvent(ctx, eventID, limit, offset)
}

// SetEventStatus stores an event's status and broadcasts it to the event room.
func (s *Service) SetEventStatus(ctx context.Context, eventID, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return apperr.Invalid("status is required")
	}
	if err := s.events.SetStatus(ctx, eventID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("event not found")
		}
		return err
	}
	s.publisher.Publish(realtime.EventRoom(eventID), realtime.EventStatus, map[string]string{
		"eventId": eventID,
		"status":  status,
	})
	return nil
}
