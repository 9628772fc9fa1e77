package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// writeBatchSize bounds the rows per generated INSERT statement.
const writeBatchSize = 200

// Columns touched by provider imports in update mode. Race state and ranks are left alone.
var RunnerIdentityColumns = []string{
	"chip_code", "rfid_tag", "athlete_id", "first_name", "last_name", "first_name_local", "last_name_local",
	"gender", "age", "age_group", "nationality", "team", "email", "phone", "id_number", "birth_date",
	"category", "source", "updated_at",
}

// Columns written by the score/timing merge.
var RunnerTimingColumns = []string{
	"status", "net_time", "gun_time", "elapsed_time", "finish_time", "latest_checkpoint",
	"overall_rank", "gender_rank", "gender_net_rank", "category_rank", "age_group_rank",
	"gun_pace", "net_pace", "total_finishers", "gender_finishers", "updated_at",
}

var runnerRankColumns = []string{"overall_rank", "gender_rank", "age_group_rank", "updated_at"}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// RunnerFilter narrows runner listings. Zero fields are ignored.
type RunnerFilter struct {
	EventIDs []string
	Status   string
	Category string
	Limit    int
	Offset   int
}

// RankUpdate carries the ranks computed for one finisher.
type RankUpdate struct {
	RunnerID     string
	OverallRank  int
	GenderRank   int
	AgeGroupRank int
}

// Runners is the Runner Store.
type Runners struct {
	db *gorm.DB
}

// NewRunners creates the runner repository.
func NewRunners(db *gorm.DB) *Runners {
	return &Runners{db: db}
}

// Get returns the runner with the given id.
func (r *Runners) Get(ctx context.Context, id string) (*Runner, error) {
	var runner Runner
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&runner).Error; err != nil {
		return nil, notFound(err)
	}
	return &runner, nil
}

// FindByBib returns the runner of eventID wearing bib.
func (r *Runners) FindByBib(ctx context.Context, eventID, bib string) (*Runner, error) {
	var runner Runner
	err := r.db.WithContext(ctx).Where("event_id = ? AND bib = ?", eventID, bib).Take(&runner).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &runner, nil
}

// FindByChip returns the runner of eventID whose chip code or RFID tag is chip.
func (r *Runners) FindByChip(ctx context.Context, eventID, chip string) (*Runner, error) {
	var runner Runner
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Where(r.db.Where("chip_code = ?", chip).Or("rfid_tag = ?", chip)).
		Take(&runner).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &runner, nil
}

func (r *Runners) filtered(ctx context.Context, f RunnerFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&Runner{})
	if len(f.EventIDs) > 0 {
		q = q.Where("event_id IN ?", f.EventIDs)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	return q
}

// List returns runners matching f ordered by event and bib.
func (r *Runners) List(ctx context.Context, f RunnerFilter) ([]Runner, error) {
	q := r.filtered(ctx, f).Order("event_id ASC").Order("bib ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var runners []Runner
	if err := q.Find(&runners).Error; err != nil {
		return nil, fmt.Errorf("failed to list runners: %w", err)
	}
	return runners, nil
}

// Count returns how many runners match f.
func (r *Runners) Count(ctx context.Context, f RunnerFilter) (int64, error) {
	var n int64
	if err := r.filtered(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count runners: %w", err)
	}
	return n, nil
}

// Finishers returns the finished runners of an event category, fastest first.
// Runners without a net time sort last. Ties break on bib.
func (r *Runners) Finishers(ctx context.Context, eventID, category string) ([]Runner, error) {
	var runners []Runner
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND category = ? AND status = ?", eventID, category, StatusFinished).
		Order("CASE WHEN net_time IS NULL THEN 1 ELSE 0 END").
		Order("net_time ASC").
		Order("bib ASC").
		Find(&runners).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load finishers: %w", err)
	}
	return runners, nil
}

// WriteRanks stores rank updates as one batched upsert inside one transaction,
// so readers see either the previous ranking or the new one.
func (r *Runners) WriteRanks(ctx context.Context, updates []RankUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	ids := make([]string, len(updates))
	byID := make(map[string]RankUpdate, len(updates))
	for i, u := range updates {
		ids[i] = u.RunnerID
		byID[u.RunnerID] = u
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []Runner
		if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to load ranked runners: %w", err)
		}
		now := time.Now()
		for i := range rows {
			u := byID[rows[i].ID]
			rows[i].OverallRank = intPtr(u.OverallRank)
			rows[i].GenderRank = intPtr(u.GenderRank)
			rows[i].AgeGroupRank = intPtr(u.AgeGroupRank)
			rows[i].UpdatedAt = now
		}
		return upsertByID(tx, rows, runnerRankColumns)
	})
}

// SaveTiming flushes score merge results for already stored runners in one batched upsert.
func (r *Runners) SaveTiming(ctx context.Context, runners []Runner) error {
	if len(runners) == 0 {
		return nil
	}
	now := time.Now()
	for i := range runners {
		runners[i].UpdatedAt = now
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertByID(tx, runners, RunnerTimingColumns)
	})
}

func upsertByID(tx *gorm.DB, rows []Runner, columns []string) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).CreateInBatches(&rows, writeBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to write runner batch: %w", err)
	}
	return nil
}

// InsertNew inserts runners and silently skips rows whose (event, bib) already exists.
// It returns the number of rows actually inserted.
func (r *Runners) InsertNew(ctx context.Context, runners []Runner) (int64, error) {
	if len(runners) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "bib"}},
		DoNothing: true,
	}).CreateInBatches(&runners, writeBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to insert runners: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UpsertByBib inserts runners or, on an (event, bib) conflict, overwrites columns.
func (r *Runners) UpsertByBib(ctx context.Context, runners []Runner, columns []string) error {
	if len(runners) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "bib"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).CreateInBatches(&runners, writeBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert runners: %w", err)
	}
	return nil
}

// MarkStalledDNF sets status dnf on in_progress runners of eventIDs that never
// recorded a checkpoint. It returns the number of runners changed.
func (r *Runners) MarkStalledDNF(ctx context.Context, eventIDs []string) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&Runner{}).
		Where("event_id IN ?", eventIDs).
		Where("status = ?", StatusInProgress).
		Where("latest_checkpoint IS NULL OR latest_checkpoint = ''").
		Updates(map[string]any{"status": StatusDNF, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark stalled runners dnf: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ForEvents returns every runner of eventIDs.
func (r *Runners) ForEvents(ctx context.Context, eventIDs []string) ([]Runner, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	var runners []Runner
	if err := r.db.WithContext(ctx).Where("event_id IN ?", eventIDs).Find(&runners).Error; err != nil {
		return nil, fmt.Errorf("failed to load runners: %w", err)
	}
	return runners, nil
}

func intPtr(v int) *int {
	return &v
}
