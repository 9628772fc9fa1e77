package mapping

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"race-timing/core/store"
)

// TimingPoint is a checkpoint definition read from provider listings.
type TimingPoint struct {
	Name     string
	Type     string
	OrderNum int
	Km       *float64
}

// EventPoints are the timing points of one provider event.
type EventPoints struct {
	RemoteID int64
	Points   []TimingPoint
}

const defaultSortOrder = 500

var splitPointAliases = []string{
	"TpName", "tpName", "tpname", "CheckPoint", "Checkpoint", "checkpoint",
	"CheckpointName", "checkpointName", "CPName", "cpName", "StationName", "stationName",
}

// ClassifyPoint derives a checkpoint type from its name and provider sort order.
func ClassifyPoint(name string, sortOrder float64) string {
	switch key := NormalizeKey(name); {
	case key == "start" || key == "startline" || sortOrder == 1:
		return store.CheckpointStart
	case key == "finish" || key == "finishline" || key == "end" || sortOrder == 9999:
		return store.CheckpointFinish
	}
	return store.CheckpointMiddle
}

// DefaultPoints is the course used when the provider lists no timing points.
func DefaultPoints() []TimingPoint {
	return []TimingPoint{
		{Name: "START", Type: store.CheckpointStart, OrderNum: 1},
		{Name: "FINISH", Type: store.CheckpointFinish, OrderNum: 2},
	}
}

type seenPoint struct {
	name      string
	sortOrder float64
	km        *float64
	first     int
}

func timingPointsOf(row Row) []Row {
	raw, _ := First(row, "TimingPoints", "timingPoints", "timingpoints").([]any)
	out := make([]Row, 0, len(raw))
	for _, tp := range raw {
		if m, ok := tp.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func pointName(tp Row) string {
	return FirstString(tp, "TpName", "tpName", "Name", "name")
}

func sortOrderOf(row Row) float64 {
	if n, ok := ParseNumber(First(row, "SortOrder", "sortOrder")); ok {
		return n
	}
	return defaultSortOrder
}

func ordered(seen map[string]*seenPoint) []TimingPoint {
	list := make([]*seenPoint, 0, len(seen))
	for _, p := range seen {
		list = append(list, p)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].sortOrder != list[j].sortOrder {
			return list[i].sortOrder < list[j].sortOrder
		}
		return list[i].first < list[j].first
	})
	out := make([]TimingPoint, len(list))
	for i, p := range list {
		out[i] = TimingPoint{Name: p.name, Type: ClassifyPoint(p.name, p.sortOrder), OrderNum: i + 1, Km: p.km}
	}
	return out
}

// PointsPerEvent reads the timing points nested in info rows, grouped by provider
// event in first-seen order. Names are deduplicated per event by comparable text,
// keeping the lowest sort order and the first known distance.
func PointsPerEvent(infoRows []Row) []EventPoints {
	var order []int64
	byEvent := map[int64]map[string]*seenPoint{}
	seq := 0

	for _, row := range infoRows {
		rowEvent, rowHasEvent := RemoteEventID(row)
		for _, tp := range timingPointsOf(row) {
			name := pointName(tp)
			if name == "" {
				continue
			}
			eventID, ok := RemoteEventID(tp)
			if !ok {
				if !rowHasEvent {
					continue
				}
				eventID = rowEvent
			}
			sortOrder := sortOrderOf(tp)
			var km *float64
			if v, ok := ParseDistance(First(tp, "Km", "km", "Distance", "distance", "TpKm", "tpKm")); ok {
				km = &v
			}

			names, ok := byEvent[eventID]
			if !ok {
				names = map[string]*seenPoint{}
				byEvent[eventID] = names
				order = append(order, eventID)
			}
			key := ComparableText(name)
			prev := names[key]
			switch {
			case prev == nil:
				seq++
				names[key] = &seenPoint{name: name, sortOrder: sortOrder, km: km, first: seq}
			case sortOrder < prev.sortOrder:
				prev.name, prev.sortOrder = name, sortOrder
				if km != nil {
					prev.km = km
				}
			case prev.km == nil && km != nil:
				prev.km = km
			}
		}
	}

	out := make([]EventPoints, 0, len(order))
	for _, id := range order {
		if points := ordered(byEvent[id]); len(points) > 0 {
			out = append(out, EventPoints{RemoteID: id, Points: points})
		}
	}
	return out
}

// MergedPoints reads the timing points of every info row as one course,
// deduplicated by name with the lowest sort order.
func MergedPoints(infoRows []Row) []TimingPoint {
	seen := map[string]*seenPoint{}
	seq := 0
	for _, row := range infoRows {
		for _, tp := range timingPointsOf(row) {
			name := pointName(tp)
			if name == "" {
				continue
			}
			sortOrder := sortOrderOf(tp)
			if prev, ok := seen[name]; ok {
				if sortOrder < prev.sortOrder {
					prev.sortOrder = sortOrder
				}
				continue
			}
			seq++
			seen[name] = &seenPoint{name: name, sortOrder: sortOrder, first: seq}
		}
	}
	return ordered(seen)
}

// SplitPoints reads checkpoint names from split score rows.
func SplitPoints(splitRows []Row) []TimingPoint {
	seen := map[string]*seenPoint{}
	seq := 0
	for _, row := range splitRows {
		name := StringOrNormalized(row, splitPointAliases,
			"tpname", "checkpoint", "checkpointname", "cpname", "stationname", "station")
		if name == "" {
			continue
		}
		sortOrder := sortOrderOf(row)
		if prev, ok := seen[name]; ok {
			if sortOrder < prev.sortOrder {
				prev.sortOrder = sortOrder
			}
			continue
		}
		seq++
		seen[name] = &seenPoint{name: name, sortOrder: sortOrder, first: seq}
	}
	return ordered(seen)
}

// InfoEvent is a provider event as described by an info row.
type InfoEvent struct {
	RemoteID *int64
	Name     string
	Distance *float64
	// WaveTime is "HH:MM" or "YYYY-MM-DDTHH:MM", empty when unknown.
	WaveTime string
	Date     *time.Time
}

// MapInfoRow reads an info row. fallbackDate is used when the row has no usable date.
func MapInfoRow(row Row, fallbackDate *time.Time, loc *time.Location) InfoEvent {
	var ev InfoEvent
	if id, ok := RemoteEventID(row); ok {
		ev.RemoteID = &id
	}

	ev.Name = StringOrNormalized(row,
		[]string{"EventName", "eventName", "Name", "name", "ProjectName", "projectName"},
		"eventname", "name", "projectname", "racename")
	if ev.Name == "" {
		if ev.RemoteID != nil {
			ev.Name = "Event " + strconv.FormatInt(*ev.RemoteID, 10)
		} else {
			ev.Name = "Unnamed Event"
		}
	}

	distance := StringOrNormalized(row, []string{"Distance", "distance", "Km", "km"},
		"distance", "km", "kilometer", "kilometers")
	if d, ok := ParseDistance(distance); ok {
		ev.Distance = &d
	}

	ev.WaveTime = NormalizeClock(First(row,
		"WaveTime", "waveTime", "wavetime", "GunTime", "gunTime", "guntime", "StartTime", "startTime", "starttime",
	), loc)
	if ev.WaveTime == "" {
		ev.WaveTime = NormalizeClock(FirstByNormalizedKey(row, "wavetime", "guntime", "starttime", "wavestart"), loc)
	}

	dateRaw := First(row, "EventDate", "eventDate", "Date", "date")
	if dateRaw == nil {
		dateRaw = FirstByNormalizedKey(row, "eventdate", "date", "racedate", "startdate")
	}
	if d, ok := ParseDate(dateRaw, loc); ok {
		ev.Date = &d
	} else {
		ev.Date = fallbackDate
	}
	return ev
}

// CategoryStart combines a wave time with the event date into "YYYY-MM-DDTHH:MM".
// Wave times that already carry a date are returned unchanged.
func (ev InfoEvent) CategoryStart() string {
	if ev.Date != nil && len(ev.WaveTime) == 5 {
		return ev.Date.Format("2006-01-02") + "T" + ev.WaveTime
	}
	return ev.WaveTime
}

// StartAt resolves the wave time to an instant. Bare clocks land on today's date.
func (ev InfoEvent) StartAt(now time.Time) (time.Time, bool) {
	if t, err := time.ParseInLocation("2006-01-02T15:04", ev.WaveTime, now.Location()); err == nil {
		return t, true
	}
	return ClockOn(ev.WaveTime, now)
}

// PassedStartTimes finds the first START (or gun) passing per provider event in
// passed-time rows. eid is the event being paged, or nil when rows carry their own.
// Values are "YYYY-MM-DDTHH:MM" when parseable, raw otherwise.
func PassedStartTimes(rows []Row, eid *int64, loc *time.Location) map[int64]string {
	out := map[int64]string{}
	for _, row := range rows {
		name := strings.ToUpper(FirstString(row,
			"TpName", "tpName", "CheckpointName", "checkpointName", "StationName", "stationName",
			"TimingPointName", "timingPointName"))
		if !strings.Contains(name, "START") && !strings.Contains(name, "GUN") {
			continue
		}
		at := FirstString(row,
			"PassTime", "passTime", "Time", "time", "ScanTime", "scanTime", "PassedTime", "passedTime",
			"GunTime", "gunTime", "WaveTime", "waveTime", "RecordTime", "recordTime")
		if at == "" {
			continue
		}

		var event int64
		switch {
		case eid != nil:
			event = *eid
		default:
			id, ok := RemoteEventID(row)
			if !ok {
				continue
			}
			event = id
		}
		if _, ok := out[event]; ok {
			continue
		}
		if t, ok := ParseDateTime(at, loc); ok {
			out[event] = t.Format("2006-01-02T15:04")
		} else {
			out[event] = at
		}
	}
	return out
}
