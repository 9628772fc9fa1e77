package store_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"race-timing/core/store"
	"race-timing/core/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunners_FindByBibAndChip(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	ev := storetest.Event(t, db, store.Event{CampaignID: "c1", Name: "10K"})
	storetest.Runner(t, db, store.Runner{EventID: ev.ID, Bib: "101", ChipCode: "CHIP-A"})
	storetest.Runner(t, db, store.Runner{EventID: ev.ID, Bib: "102", RFIDTag: "TAG-B"})

	runners := store.NewRunners(db)

	r, err := runners.FindByBib(ctx, ev.ID, "101")
	require.NoError(t, err)
	assert.Equal(t, store.StatusNotStarted, r.Status)

	r, err = runners.FindByChip(ctx, ev.ID, "TAG-B")
	require.NoError(t, err)
	assert.Equal(t, "102", r.Bib)

	_, err = runners.FindByBib(ctx, ev.ID, "999")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = runners.FindByChip(ctx, "other-event", "CHIP-A")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunners_BibUniquePerEvent(t *testing.T) {
	db := storetest.New(t)
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "1"})

	err := db.Create(&store.Runner{EventID: "e1", Bib: "1"}).Error
	assert.Error(t, err)

	// Same bib in another event is fine
	require.NoError(t, db.Create(&store.Runner{EventID: "e2", Bib: "1"}).Error)
}

func TestRunners_InsertNewSkipsDuplicates(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	runners := store.NewRunners(db)
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "1", FirstName: "Existing"})

	n, err := runners.InsertNew(ctx, []store.Runner{
		{EventID: "e1", Bib: "1", FirstName: "Dup"},
		{EventID: "e1", Bib: "2", FirstName: "New"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	r, err := runners.FindByBib(ctx, "e1", "1")
	require.NoError(t, err)
	assert.Equal(t, "Existing", r.FirstName)
}

func TestRunners_UpsertByBibKeepsRaceState(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	runners := store.NewRunners(db)
	orig := storetest.Runner(t, db, store.Runner{
		EventID: "e1", Bib: "1", FirstName: "Old", Status: store.StatusFinished, NetTime: storetest.Ptr(int64(3600000)),
	})

	err := runners.UpsertByBib(ctx, []store.Runner{
		{EventID: "e1", Bib: "1", FirstName: "New", Status: store.StatusNotStarted},
		{EventID: "e1", Bib: "2", FirstName: "Second", Status: store.StatusNotStarted},
	}, store.RunnerIdentityColumns)
	require.NoError(t, err)

	r, err := runners.FindByBib(ctx, "e1", "1")
	require.NoError(t, err)
	assert.Equal(t, orig.ID, r.ID)
	assert.Equal(t, "New", r.FirstName)
	assert.Equal(t, store.StatusFinished, r.Status)
	require.NotNil(t, r.NetTime)
	assert.Equal(t, int64(3600000), *r.NetTime)

	n, err := runners.Count(ctx, store.RunnerFilter{EventIDs: []string{"e1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRunners_FinishersAndWriteRanks(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	runners := store.NewRunners(db)
	for bib, net := range map[string]int64{"1": 1000, "2": 2000, "3": 1500} {
		storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: bib, Category: "10K", Status: store.StatusFinished, NetTime: storetest.Ptr(net)})
	}
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "4", Category: "10K", Status: store.StatusInProgress})
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "5", Category: "5K", Status: store.StatusFinished, NetTime: storetest.Ptr(int64(10))})

	fin, err := runners.Finishers(ctx, "e1", "10K")
	require.NoError(t, err)
	require.Len(t, fin, 3)
	assert.Equal(t, []string{"1", "3", "2"}, []string{fin[0].Bib, fin[1].Bib, fin[2].Bib})

	updates := make([]store.RankUpdate, len(fin))
	for i, r := range fin {
		updates[i] = store.RankUpdate{RunnerID: r.ID, OverallRank: i + 1, GenderRank: i + 1, AgeGroupRank: 1}
	}
	require.NoError(t, runners.WriteRanks(ctx, updates))

	r, err := runners.FindByBib(ctx, "e1", "2")
	require.NoError(t, err)
	require.NotNil(t, r.OverallRank)
	assert.Equal(t, 3, *r.OverallRank)
	assert.Equal(t, store.StatusFinished, r.Status)
	assert.Equal(t, int64(2000), *r.NetTime)
}

func TestRunners_MarkStalledDNF(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	runners := store.NewRunners(db)
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "1", Status: store.StatusInProgress})
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "2", Status: store.StatusInProgress, LatestCheckpoint: "CP1"})
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "3", Status: store.StatusFinished})
	storetest.Runner(t, db, store.Runner{EventID: "e2", Bib: "4", Status: store.StatusInProgress})

	n, err := runners.MarkStalledDNF(ctx, []string{"e1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = runners.MarkStalledDNF(ctx, []string{"e1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	r, _ := runners.FindByBib(ctx, "e2", "4")
	assert.Equal(t, store.StatusInProgress, r.Status)
}

func TestRunners_SaveTiming(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	runners := store.NewRunners(db)
	r := storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "1", FirstName: "Ann", Status: store.StatusInProgress})

	r.Status = store.StatusFinished
	r.NetTime = storetest.Ptr(int64(5000))
	r.FirstName = "Ignored"
	require.NoError(t, runners.SaveTiming(ctx, []store.Runner{*r}))

	got, err := runners.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFinished, got.Status)
	assert.Equal(t, int64(5000), *got.NetTime)
	assert.Equal(t, "Ann", got.FirstName)
}

func TestScans_AppendSequential(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	scans := store.NewScans(db)
	r := storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "7"})
	base := time.Date(2025, 1, 5, 6, 0, 0, 0, time.UTC)

	var prevSeen []*store.ScanRecord
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		rec, runner, err := scans.Append(ctx, r.ID, func(runner *store.Runner, order int, prev *store.ScanRecord) (store.ScanRecord, map[string]any) {
			prevSeen = append(prevSeen, prev)
			return store.ScanRecord{Checkpoint: "CP", ScanTime: at}, map[string]any{"latest_checkpoint": "CP"}
		})
		require.NoError(t, err)
		assert.Equal(t, i+1, rec.Order)
		assert.Equal(t, "7", rec.Bib)
		assert.Equal(t, "e1", rec.EventID)
		assert.Equal(t, i+1, runner.ScanCount)
		assert.Equal(t, "CP", runner.LatestCheckpoint)
	}
	assert.Nil(t, prevSeen[0])
	require.NotNil(t, prevSeen[2])
	assert.Equal(t, 2, prevSeen[2].Order)

	list, err := scans.ForRunner(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 3, list[2].Order)
}

func TestScans_AppendConcurrentOrdersAreUnique(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	scans := store.NewScans(db)
	r := storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "9"})

	const n = 20
	var wg sync.WaitGroup
	orders := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, _, err := scans.Append(ctx, r.ID, func(*store.Runner, int, *store.ScanRecord) (store.ScanRecord, map[string]any) {
				return store.ScanRecord{Checkpoint: "CP", ScanTime: time.Now()}, nil
			})
			if assert.NoError(t, err) {
				orders <- rec.Order
			}
		}()
	}
	wg.Wait()
	close(orders)

	var got []int
	for o := range orders {
		got = append(got, o)
	}
	sort.Ints(got)
	require.Len(t, got, n)
	for i, o := range got {
		assert.Equal(t, i+1, o)
	}
}

func TestScans_AppendUnknownRunner(t *testing.T) {
	db := storetest.New(t)
	_, _, err := store.NewScans(db).Append(context.Background(), "missing", func(*store.Runner, int, *store.ScanRecord) (store.ScanRecord, map[string]any) {
		return store.ScanRecord{}, nil
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCheckpoints_ReplaceAllAndMappings(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	cps := store.NewCheckpoints(db)

	require.NoError(t, cps.Create(ctx, []store.Checkpoint{
		{CampaignID: "c1", Name: "START", Type: store.CheckpointStart, OrderNum: 1, Active: true},
		{CampaignID: "c1", Name: "FINISH", Type: store.CheckpointFinish, OrderNum: 2, Active: true},
	}))
	existing, err := cps.ForCampaign(ctx, "c1")
	require.NoError(t, err)
	require.NoError(t, cps.ReplaceMappings(ctx, "e1", []store.CheckpointMapping{
		{CheckpointID: existing[0].ID, OrderNum: 1},
		{CheckpointID: existing[1].ID, OrderNum: 2},
	}))

	created, err := cps.ReplaceAll(ctx, "c1", []store.Checkpoint{
		{Name: "START", Type: store.CheckpointStart, OrderNum: 1, Active: true},
		{Name: "CP1", Type: store.CheckpointMiddle, OrderNum: 2, Active: true},
		{Name: "FINISH", Type: store.CheckpointFinish, OrderNum: 3, Active: true},
	})
	require.NoError(t, err)
	assert.Len(t, created, 3)

	all, err := cps.ForCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"START", "CP1", "FINISH"}, []string{all[0].Name, all[1].Name, all[2].Name})

	mappings, err := cps.MappingsForEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, mappings, "mappings of replaced checkpoints are removed")

	require.NoError(t, cps.SetKm(ctx, map[string]float64{all[1].ID: 5.5}))
	all, _ = cps.ForCampaign(ctx, "c1")
	require.NotNil(t, all[1].KmCumulative)
	assert.Equal(t, 5.5, *all[1].KmCumulative)
}

func TestCheckpoints_ActiveWithCutoff(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	cps := store.NewCheckpoints(db)
	require.NoError(t, cps.Create(ctx, []store.Checkpoint{
		{CampaignID: "c1", Name: "A", Type: store.CheckpointMiddle, Active: true, CutoffTime: "10:00"},
		{CampaignID: "c1", Name: "B", Type: store.CheckpointMiddle, Active: true, CutoffTime: "-"},
		{CampaignID: "c1", Name: "C", Type: store.CheckpointMiddle, Active: true},
		{CampaignID: "c1", Name: "D", Type: store.CheckpointMiddle, Active: false, CutoffTime: "11:00"},
	}))

	got, err := cps.ActiveWithCutoff(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)
}

func TestEvents_UpsertRemote(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	events := store.NewEvents(db)

	ev, created, err := events.UpsertRemote(ctx, "c1", store.Event{Name: "Half Marathon", RemoteEventID: storetest.Ptr(int64(11))})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := events.UpsertRemote(ctx, "c1", store.Event{Name: "Half Marathon 21K", RemoteEventID: storetest.Ptr(int64(11)), Distance: storetest.Ptr(21.1)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, ev.ID, again.ID)
	assert.Equal(t, "Half Marathon 21K", again.Name)

	list, err := events.ForCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCampaigns_AutoSyncCandidates(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	campaigns := store.NewCampaigns(db)
	ok := storetest.Campaign(t, db, store.Campaign{AutoSync: true, SyncEnabled: true, RaceID: "42", ProviderToken: "tok"})
	storetest.Campaign(t, db, store.Campaign{AutoSync: true, SyncEnabled: true, RaceID: "0", ProviderToken: "tok"})
	storetest.Campaign(t, db, store.Campaign{AutoSync: true, SyncEnabled: false, RaceID: "42", ProviderToken: "tok"})
	storetest.Campaign(t, db, store.Campaign{AutoSync: true, SyncEnabled: true, RaceID: "42"})
	off := storetest.Campaign(t, db, store.Campaign{SyncEnabled: true, RaceID: "43", ProviderToken: "tok"})

	got, err := campaigns.AutoSyncCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ok.ID, got[0].ID)

	require.NoError(t, campaigns.SetAutoSync(ctx, off.ID, true))
	got, _ = campaigns.AutoSyncCandidates(ctx)
	assert.Len(t, got, 2)

	assert.ErrorIs(t, campaigns.SetAutoSync(ctx, "missing", true), store.ErrNotFound)
}

func TestCampaigns_MergeCategories(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	campaigns := store.NewCampaigns(db)
	c := store.Campaign{}
	require.NoError(t, c.SetCategories([]store.RaceCategory{{Name: "10K"}}))
	saved := storetest.Campaign(t, db, c)

	require.NoError(t, campaigns.MergeCategories(ctx, saved.ID, []store.RaceCategory{
		{Name: "10K", Distance: storetest.Ptr(10.0), RemoteEventNo: storetest.Ptr(int64(2))},
		{Name: "21K", Distance: storetest.Ptr(21.1)},
	}))

	got, err := campaigns.Get(ctx, saved.ID)
	require.NoError(t, err)
	cats := got.CategoryList()
	require.Len(t, cats, 2)
	assert.Equal(t, int64(2), *cats[0].RemoteEventNo)
	assert.Equal(t, "21K", cats[1].Name)
}

func TestCampaigns_MergeCategoriesByRemoteNo(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	campaigns := store.NewCampaigns(db)
	c := store.Campaign{}
	require.NoError(t, c.SetCategories([]store.RaceCategory{{Name: "Half", RemoteEventNo: storetest.Ptr(int64(7)), Cutoff: "-"}}))
	saved := storetest.Campaign(t, db, c)

	require.NoError(t, campaigns.MergeCategories(ctx, saved.ID, []store.RaceCategory{
		{Name: "Half Marathon", RemoteEventNo: storetest.Ptr(int64(7)), StartTime: "2026-03-01T05:00"},
	}))

	got, err := campaigns.Get(ctx, saved.ID)
	require.NoError(t, err)
	cats := got.CategoryList()
	require.Len(t, cats, 1)
	assert.Equal(t, "Half Marathon", cats[0].Name)
	assert.Equal(t, "2026-03-01T05:00", cats[0].StartTime)
	assert.Equal(t, "-", cats[0].Cutoff)
}

func TestEvents_SetCampaignStatus(t *testing.T) {
	db := storetest.New(t)
	events := store.NewEvents(db)
	storetest.Event(t, db, store.Event{CampaignID: "c1", Name: "10K"})
	storetest.Event(t, db, store.Event{CampaignID: "c1", Name: "21K"})
	storetest.Event(t, db, store.Event{CampaignID: "c2", Name: "5K"})

	n, err := events.SetCampaignStatus(context.Background(), "c1", "finished")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSyncLogs_Lifecycle(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	logs := store.NewSyncLogs(db)
	stats := store.NewStats(db)

	first, err := logs.Start(ctx, "c1", "import")
	require.NoError(t, err)
	assert.Equal(t, store.SyncPending, first.Status)
	require.NoError(t, logs.Finish(ctx, first, store.SyncSuccess, "done", 10, 1, map[string]int{"rows": 10}))

	// Finalized once
	require.NoError(t, logs.Finish(ctx, first, store.SyncError, "late", 0, 0, nil))
	latest, err := logs.Latest(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, store.SyncSuccess, latest.Status)
	assert.JSONEq(t, `{"rows":10}`, string(latest.Detail))

	time.Sleep(5 * time.Millisecond)
	second, err := logs.Start(ctx, "c1", "timing")
	require.NoError(t, err)
	require.NoError(t, logs.Finish(ctx, second, store.SyncError, "gateway", 0, 0, nil))

	time.Sleep(5 * time.Millisecond)
	_, err = logs.Start(ctx, "c2", "preview")
	require.NoError(t, err)

	recent, err := logs.Recent(ctx, "c1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].ID)

	withDetail, err := logs.LatestWithDetail(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, withDetail.ID)

	counts, err := stats.SyncCounts(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, store.SyncCounts{Total: 2, Success: 1, Error: 1}, counts)

	inError, err := stats.CampaignsInError(ctx)
	require.NoError(t, err)
	require.Len(t, inError, 1)
	assert.Equal(t, "c1", inError[0].CampaignID)
}

func TestStats_RunnerCounts(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "1", Category: "10K", Status: store.StatusFinished})
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "2", Category: "10K", Status: store.StatusFinished})
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "3", Category: "5K", Status: store.StatusDNF})
	storetest.Runner(t, db, store.Runner{EventID: "e2", Bib: "1", Category: "5K", Status: store.StatusDNF})

	stats := store.NewStats(db)
	byStatus, err := stats.RunnerStatusCounts(ctx, []string{"e1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{store.StatusFinished: 2, store.StatusDNF: 1}, byStatus)

	byCategory, err := stats.RunnerCategoryCounts(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"10K": 2, "5K": 2}, byCategory)
}
