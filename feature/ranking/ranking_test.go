package ranking

import (
	"context"
	"sync"
	"testing"

	"race-timing/core/store"
	"race-timing/core/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ms(v int64) *int64 { return &v }

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		finishers []store.Runner
		want      []store.RankUpdate
	}{
		{
			name: "orders by net time",
			finishers: []store.Runner{
				{ID: "a", NetTime: ms(1000)},
				{ID: "b", NetTime: ms(2000)},
				{ID: "c", NetTime: ms(1500)},
			},
			want: []store.RankUpdate{
				{RunnerID: "a", OverallRank: 1, GenderRank: 1, AgeGroupRank: 1},
				{RunnerID: "c", OverallRank: 2, GenderRank: 2, AgeGroupRank: 2},
				{RunnerID: "b", OverallRank: 3, GenderRank: 3, AgeGroupRank: 3},
			},
		},
		{
			name: "partitions by gender and age group",
			finishers: []store.Runner{
				{ID: "m1", Gender: "M", AgeGroup: "30-39", NetTime: ms(100)},
				{ID: "f1", Gender: "F", AgeGroup: "30-39", NetTime: ms(200)},
				{ID: "m2", Gender: "M", AgeGroup: "40-49", NetTime: ms(300)},
				{ID: "f2", Gender: "F", AgeGroup: "", NetTime: ms(400)},
			},
			want: []store.RankUpdate{
				{RunnerID: "m1", OverallRank: 1, GenderRank: 1, AgeGroupRank: 1},
				{RunnerID: "f1", OverallRank: 2, GenderRank: 1, AgeGroupRank: 2},
				{RunnerID: "m2", OverallRank: 3, GenderRank: 2, AgeGroupRank: 1},
				{RunnerID: "f2", OverallRank: 4, GenderRank: 2, AgeGroupRank: 1},
			},
		},
		{
			name: "ties keep input order and missing net time sorts last",
			finishers: []store.Runner{
				{ID: "x"},
				{ID: "b", NetTime: ms(500)},
				{ID: "a", NetTime: ms(500)},
			},
			want: []store.RankUpdate{
				{RunnerID: "b", OverallRank: 1, GenderRank: 1, AgeGroupRank: 1},
				{RunnerID: "a", OverallRank: 2, GenderRank: 2, AgeGroupRank: 2},
				{RunnerID: "x", OverallRank: 3, GenderRank: 3, AgeGroupRank: 3},
			},
		},
		{
			name: "empty",
			want: []store.RankUpdate{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.finishers))
		})
	}
}

func TestCompute_DoesNotReorderInput(t *testing.T) {
	in := []store.Runner{{ID: "b", NetTime: ms(2)}, {ID: "a", NetTime: ms(1)}}
	Compute(in)
	assert.Equal(t, "b", in[0].ID)
}

func TestEngine_Recompute(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	runners := store.NewRunners(db)
	for bib, net := range map[string]int64{"1": 1000, "2": 2000, "3": 1500} {
		storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: bib, Category: "10K", Gender: "M", Status: store.StatusFinished, NetTime: ms(net)})
	}
	storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "4", Category: "10K", Status: store.StatusInProgress})

	engine := NewEngine(runners, zap.NewNop())
	require.NoError(t, engine.Recompute(ctx, "e1", "10K"))

	ranks := func() map[string]int {
		out := map[string]int{}
		list, err := runners.List(ctx, store.RunnerFilter{EventIDs: []string{"e1"}})
		require.NoError(t, err)
		for _, r := range list {
			if r.OverallRank != nil {
				out[r.Bib] = *r.OverallRank
			}
		}
		return out
	}
	first := ranks()
	assert.Equal(t, map[string]int{"1": 1, "3": 2, "2": 3}, first)

	// Idempotent
	require.NoError(t, engine.Recompute(ctx, "e1", "10K"))
	assert.Equal(t, first, ranks())
}

func TestEngine_ConcurrentRecomputeSameCategory(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()
	runners := store.NewRunners(db)
	for i, bib := range []string{"1", "2", "3", "4", "5"} {
		storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: bib, Category: "5K", Status: store.StatusFinished, NetTime: ms(int64(100 * (i + 1)))})
	}
	engine := NewEngine(runners, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, engine.Recompute(ctx, "e1", "5K"))
		}()
	}
	wg.Wait()

	r, err := runners.FindByBib(ctx, "e1", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, *r.OverallRank)
	assert.Empty(t, engine.locks.locks)
}
