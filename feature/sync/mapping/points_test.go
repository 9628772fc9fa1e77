package mapping

import (
	"encoding/json"
	"testing"
	"time"

	"race-timing/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPoint(t *testing.T) {
	assert.Equal(t, store.CheckpointStart, ClassifyPoint("Start Line", 500))
	assert.Equal(t, store.CheckpointStart, ClassifyPoint("Gate", 1))
	assert.Equal(t, store.CheckpointFinish, ClassifyPoint("FINISH", 500))
	assert.Equal(t, store.CheckpointFinish, ClassifyPoint("Arch", 9999))
	assert.Equal(t, store.CheckpointMiddle, ClassifyPoint("CP1", 20))
}

func TestPointsPerEvent(t *testing.T) {
	rows := []Row{
		{
			"EventId": json.Number("2"),
			"TimingPoints": []any{
				map[string]any{"TpName": "FINISH", "SortOrder": 9999.0, "Km": "10"},
				map[string]any{"TpName": "START", "SortOrder": 1.0},
				map[string]any{"TpName": "CP 5K", "SortOrder": 50.0},
				map[string]any{"TpName": "cp5k", "SortOrder": 40.0, "Km": 5.0},
				map[string]any{"TpName": ""},
				"garbage",
			},
		},
		{
			"EventId": json.Number("1"),
			"TimingPoints": []any{
				map[string]any{"TpName": "START", "SortOrder": 1.0},
				map[string]any{"TpName": "FINISH", "EventId": json.Number("1")},
			},
		},
		{"TimingPoints": []any{map[string]any{"TpName": "Orphan"}}},
	}

	got := PointsPerEvent(rows)
	require.Len(t, got, 2)

	assert.Equal(t, int64(2), got[0].RemoteID)
	require.Len(t, got[0].Points, 3)
	assert.Equal(t, "START", got[0].Points[0].Name)
	assert.Equal(t, store.CheckpointStart, got[0].Points[0].Type)
	assert.Equal(t, "cp5k", got[0].Points[1].Name)
	assert.Equal(t, store.CheckpointMiddle, got[0].Points[1].Type)
	require.NotNil(t, got[0].Points[1].Km)
	assert.Equal(t, 5.0, *got[0].Points[1].Km)
	assert.Equal(t, "FINISH", got[0].Points[2].Name)
	assert.Equal(t, 3, got[0].Points[2].OrderNum)
	require.NotNil(t, got[0].Points[2].Km)
	assert.Equal(t, 10.0, *got[0].Points[2].Km)

	assert.Equal(t, int64(1), got[1].RemoteID)
	require.Len(t, got[1].Points, 2)
	assert.Equal(t, store.CheckpointFinish, got[1].Points[1].Type)
}

func TestMergedPoints(t *testing.T) {
	rows := []Row{
		{"TimingPoints": []any{
			map[string]any{"TpName": "START", "SortOrder": 1.0},
			map[string]any{"TpName": "FINISH", "SortOrder": 9999.0},
		}},
		{"TimingPoints": []any{
			map[string]any{"TpName": "CP1", "SortOrder": 10.0},
			map[string]any{"TpName": "START", "SortOrder": 1.0},
		}},
	}
	got := MergedPoints(rows)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"START", "CP1", "FINISH"}, pointNames(got))
	assert.Empty(t, MergedPoints(nil))
}

func TestSplitPoints(t *testing.T) {
	got := SplitPoints([]Row{
		{"TpName": "CP2", "SortOrder": 20.0},
		{"Checkpoint": "CP1", "SortOrder": 10.0},
		{"Station Name": "CP3"},
		{"TpName": "CP2", "SortOrder": 5.0},
		{"BIB": "1"},
	})
	assert.Equal(t, []string{"CP2", "CP1", "CP3"}, pointNames(got))
}

func pointNames(points []TimingPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Name
	}
	return out
}

func TestMapInfoRow(t *testing.T) {
	loc := time.UTC
	fallback := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)

	ev := MapInfoRow(Row{
		"EventId":   json.Number("3"),
		"EventName": "Half Marathon",
		"Distance":  "21.1 km",
		"WaveTime":  "5:30",
	}, &fallback, loc)
	require.NotNil(t, ev.RemoteID)
	assert.Equal(t, int64(3), *ev.RemoteID)
	assert.Equal(t, "Half Marathon", ev.Name)
	assert.Equal(t, 21.1, *ev.Distance)
	assert.Equal(t, "05:30", ev.WaveTime)
	assert.Equal(t, "2026-03-01T05:30", ev.CategoryStart())

	now := time.Date(2026, 4, 2, 12, 0, 0, 0, loc)
	at, ok := ev.StartAt(now)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 4, 2, 5, 30, 0, 0, loc), at)

	unnamed := MapInfoRow(Row{"EventNo": "8", "EventDate": "2026-05-10"}, nil, loc)
	assert.Equal(t, "Event 8", unnamed.Name)
	require.NotNil(t, unnamed.Date)
	assert.Equal(t, 10, unnamed.Date.Day())
	assert.Equal(t, "", unnamed.CategoryStart())

	assert.Equal(t, "Unnamed Event", MapInfoRow(Row{}, nil, loc).Name)
}

func TestPassedStartTimes(t *testing.T) {
	loc := time.UTC
	rows := []Row{
		{"TpName": "CP1", "PassTime": "2026-03-01 06:00:00", "EventId": "1"},
		{"TpName": "Start", "PassTime": "2026-03-01 05:30:12", "EventId": "1"},
		{"TpName": "START", "PassTime": "2026-03-01 05:45:00", "EventId": "1"},
		{"TpName": "Gun", "PassTime": "soon", "EventId": "2"},
		{"TpName": "START", "PassTime": "2026-03-01 05:00:00"},
	}
	got := PassedStartTimes(rows, nil, loc)
	assert.Equal(t, map[int64]string{1: "2026-03-01T05:30", 2: "soon"}, got)

	eid := int64(9)
	got = PassedStartTimes(rows[4:], &eid, loc)
	assert.Equal(t, map[int64]string{9: "2026-03-01T05:00"}, got)
}
