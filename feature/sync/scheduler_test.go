package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"race-timing/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) SyncTimingOnly(ctx context.Context, campaignID string) (*TimingResult, error) {
	args := m.Called(campaignID)
	res, _ := args.Get(0).(*TimingResult)
	return res, args.Error(1)
}

type staticCampaigns struct {
	campaigns []store.Campaign
	err       error
}

func (s staticCampaigns) AutoSyncCandidates(context.Context) ([]store.Campaign, error) {
	return s.campaigns, s.err
}

func TestScheduler_TickContinuesAfterFailure(t *testing.T) {
	syncer := &mockSyncer{}
	syncer.On("SyncTimingOnly", "c1").Return(nil, errors.New("provider down")).Once()
	syncer.On("SyncTimingOnly", "c2").Return(&TimingResult{Updated: 3}, nil).Once()

	s := NewScheduler(syncer, staticCampaigns{campaigns: []store.Campaign{{ID: "c1"}, {ID: "c2"}}}, time.Minute, zap.NewNop())
	assert.True(t, s.Tick(context.Background()))
	syncer.AssertExpectations(t)

	stats := s.Stats()
	assert.False(t, stats.IsRunning)
	assert.Equal(t, int64(1), stats.TotalRuns)
	require.NotNil(t, stats.LastRunAt)
}

func TestScheduler_ListFailureStillCompletes(t *testing.T) {
	s := NewScheduler(&mockSyncer{}, staticCampaigns{err: errors.New("db down")}, time.Minute, zap.NewNop())
	assert.True(t, s.Tick(context.Background()))
	assert.Equal(t, int64(1), s.Stats().TotalRuns)
}

type blockingSyncer struct {
	started chan struct{}
	release chan struct{}
	once    gosync.Once
}

func (b *blockingSyncer) SyncTimingOnly(ctx context.Context, campaignID string) (*TimingResult, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return &TimingResult{}, nil
}

func TestScheduler_OverlappingTickIsSkipped(t *testing.T) {
	syncer := &blockingSyncer{started: make(chan struct{}), release: make(chan struct{})}
	s := NewScheduler(syncer, staticCampaigns{campaigns: []store.Campaign{{ID: "c1"}}}, time.Minute, zap.NewNop())

	done := make(chan bool)
	go func() { done <- s.Tick(context.Background()) }()
	<-syncer.started

	assert.True(t, s.Stats().IsRunning)
	assert.False(t, s.Tick(context.Background()))
	assert.Equal(t, int64(0), s.Stats().TotalRuns)

	close(syncer.release)
	assert.True(t, <-done)

	stats := s.Stats()
	assert.False(t, stats.IsRunning)
	assert.Equal(t, int64(1), stats.TotalRuns)

	assert.True(t, s.Tick(context.Background()))
	assert.Equal(t, int64(2), s.Stats().TotalRuns)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	syncer := &mockSyncer{}
	syncer.On("SyncTimingOnly", "c1").Return(&TimingResult{}, nil)
	s := NewScheduler(syncer, staticCampaigns{campaigns: []store.Campaign{{ID: "c1"}}}, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	assert.Eventually(t, func() bool { return s.Stats().TotalRuns > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
