package runners

import (
	"context"
	"errors"
	"strings"

	"race-timing/core/apperr"
	"race-timing/core/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListQuery narrows a runner listing.
type ListQuery struct {
	EventID  string
	Status   string
	Category string
	Limit    int
	Offset   int
}

// Page is one page of a runner listing.
type Page struct {
	Items  []store.Runner `json:"items"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Stats summarizes the runners of one event, or of every event when EventID is empty.
type Stats struct {
	EventID    string           `json:"eventId,omitempty"`
	Total      int64            `json:"total"`
	Finishers  int64            `json:"finishers"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByCategory map[string]int64 `json:"byCategory"`
}

// Service answers runner queries.
type Service struct {
	runners   *store.Runners
	stats     *store.Stats
	listLimit int
	logger    *zap.Logger
}

// NewService creates a runner query service. listLimit caps every listing.
func NewService(db *gorm.DB, listLimit int, logger *zap.Logger) *Service {
	return &Service{
		runners:   store.NewRunners(db),
		stats:     store.NewStats(db),
		listLimit: listLimit,
		logger:    logger,
	}
}

func (s *Service) limit(requested int) int {
	if requested <= 0 || (s.listLimit > 0 && requested > s.listLimit) {
		return s.listLimit
	}
	return requested
}

// List returns one page of runners ordered by event and bib.
func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	if q.Offset < 0 {
		return nil, apperr.Invalid("offset must not be negative")
	}
	if q.Status != "" && !validStatus(q.Status) {
		return nil, apperr.Invalid("unknown status " + q.Status)
	}

	filter := store.RunnerFilter{
		Status:   q.Status,
		Category: q.Category,
		Limit:    s.limit(q.Limit),
		Offset:   q.Offset,
	}
	if q.EventID != "" {
		filter.EventIDs = []string{q.EventID}
	}

	items, err := s.runners.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.runners.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.Runner{}
	}
	return &Page{Items: items, Total: total, Limit: filter.Limit, Offset: q.Offset}, nil
}

// Stats counts runners per status and category.
func (s *Service) Stats(ctx context.Context, eventID string) (*Stats, error) {
	var eventIDs []string
	if eventID != "" {
		eventIDs = []string{eventID}
	}

	byStatus, err := s.stats.RunnerStatusCounts(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.stats.RunnerCategoryCounts(ctx, eventIDs)
	if err != nil {
		return nil, err
	}

	out := &Stats{EventID: eventID, ByStatus: byStatus, ByCategory: byCategory}
	for _, n := range byStatus {
		out.Total += n
	}
	out.Finishers = byStatus[store.StatusFinished]
	return out, nil
}

// Lookup finds a runner of an event by bib, or by chip code / RFID tag.
func (s *Service) Lookup(ctx context.Context, eventID, bib, chip string) (*store.Runner, error) {
	eventID, bib, chip = strings.TrimSpace(eventID), strings.TrimSpace(bib), strings.TrimSpace(chip)
	if eventID == "" {
		return nil, apperr.Invalid("eventId is required")
	}

	var (
		runner *store.Runner
		err    error
	)
	switch {
	case bib != "":
		runner, err = s.runners.FindByBib(ctx, eventID, bib)
	case chip != "":
		runner, err = s.runners.FindByChip(ctx, eventID, chip)
	default:
		return nil, apperr.Invalid("bib or chip is required")
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Runner not found")
	}
	return runner, err
}

func validStatus(status string) bool {
	switch status {
	case store.StatusNotStarted, store.StatusInProgress, store.StatusFinished, store.StatusDNF, store.StatusDNS:
		return true
	}
	return false
}
