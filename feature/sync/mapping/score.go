package mapping

import (
	"strings"
	"time"

	"race-timing/core/store"
)

// ScoreFields is what a provider score row says about one runner.
// Absent values are nil or "".
type ScoreFields struct {
	Bib             string
	AthleteID       string
	NetTime         *int64
	GunTime         *int64
	Status          string
	OverallRank     *int
	GenderRank      *int
	GenderNetRank   *int
	CategoryRank    *int
	AgeGroupRank    *int
	GunPace         string
	NetPace         string
	TotalFinishers  *int
	GenderFinishers *int
	Checkpoint      string
}

// MapScoreRow reads the timing, rank and status fields of a score row.
func MapScoreRow(row Row) ScoreFields {
	f := ScoreFields{
		Bib:        FirstString(row, "BIB", "Bib", "bib"),
		AthleteID:  FirstString(row, athleteAliases...),
		Status:     strings.ToLower(FirstString(row, "Status", "status", "Result", "result")),
		GunPace:    FirstString(row, "GunPace", "gunPace", "Pace", "pace"),
		NetPace:    FirstString(row, "NetPace", "netPace", "ChipPace", "chipPace"),
		Checkpoint: FirstString(row, "TpName", "tpName", "LastStation", "lastStation", "LatestCheckpoint"),
	}
	if ms, ok := ParseTimeMs(First(row, "NetTime", "netTime", "FinishTime", "finishTime")); ok {
		f.NetTime = &ms
	}
	if ms, ok := ParseTimeMs(First(row, "GunTime", "gunTime", "ElapsedTime", "elapsedTime", "RealTime", "realTime", "Time", "time")); ok {
		f.GunTime = &ms
	}
	f.OverallRank = positive(row, "OverallPosition", "overallPosition", "Rank", "rank", "OverallRank", "overallRank", "Place", "place")
	f.GenderRank = positive(row, "GenderPosition", "genderPosition", "GenderRank", "genderRank", "SexRank", "sexRank")
	f.GenderNetRank = positive(row, "NetTimeGenderPosition", "netTimeGenderPosition", "GenderNetRank", "genderNetRank", "SexNetRank", "sexNetRank")
	f.CategoryRank = positive(row, "CategoryPosition", "categoryPosition", "CategoryRank", "categoryRank")
	f.AgeGroupRank = positive(row, "CategoryGenderPosition", "categoryGenderPosition", "AgeGroupRank", "ageGroupRank")
	f.TotalFinishers = positive(row, "TotalFinishers", "totalFinishers", "FinishCount", "finishCount")
	f.GenderFinishers = positive(row, "GenderFinishers", "genderFinishers", "SexFinishCount", "sexFinishCount")
	return f
}

func positive(row Row, aliases ...string) *int {
	n, ok := ParseInt(First(row, aliases...))
	if !ok || n <= 0 {
		return nil
	}
	v := int(n)
	return &v
}

func (f ScoreFields) reportsDNF() bool {
	return strings.Contains(f.Status, "dnf") || strings.Contains(f.Status, "did not finish")
}

func (f ScoreFields) reportsDNS() bool {
	return strings.Contains(f.Status, "dns") || strings.Contains(f.Status, "did not start")
}

func (f ScoreFields) reportsFinish() bool {
	return strings.Contains(f.Status, "finish") || strings.Contains(f.Status, "completed")
}

// NextStatus merges the row's status evidence into current. A runner only moves
// forward: not_started and in_progress may advance, terminal states never fall
// back to not_started or in_progress.
func (f ScoreFields) NextStatus(current string) string {
	switch {
	case f.reportsDNF():
		return store.StatusDNF
	case f.reportsDNS():
		return store.StatusDNS
	case f.reportsFinish() || f.NetTime != nil:
		return store.StatusFinished
	case f.GunTime != nil && current == store.StatusNotStarted:
		return store.StatusInProgress
	}
	return current
}

// Apply merges f into r and reports whether anything changed and whether the
// status did. Net and finish times are only written for finished runners.
func (f ScoreFields) Apply(r *store.Runner) (changed, statusChanged bool) {
	next := f.NextStatus(r.Status)
	if next != r.Status {
		r.Status = next
		changed, statusChanged = true, true
	}

	if next == store.StatusFinished && f.NetTime != nil {
		changed = setPtr(&r.NetTime, f.NetTime) || changed
		if r.FinishTime == nil && r.StartTime != nil {
			at := r.StartTime.Add(time.Duration(*f.NetTime) * time.Millisecond)
			r.FinishTime = &at
			changed = true
		}
	}
	if f.GunTime != nil {
		changed = setPtr(&r.GunTime, f.GunTime) || changed
		changed = setPtr(&r.ElapsedTime, f.GunTime) || changed
	}

	changed = setPtr(&r.OverallRank, f.OverallRank) || changed
	changed = setPtr(&r.GenderRank, f.GenderRank) || changed
	changed = setPtr(&r.GenderNetRank, f.GenderNetRank) || changed
	changed = setPtr(&r.CategoryRank, f.CategoryRank) || changed
	changed = setPtr(&r.AgeGroupRank, f.AgeGroupRank) || changed
	changed = setPtr(&r.TotalFinishers, f.TotalFinishers) || changed
	changed = setPtr(&r.GenderFinishers, f.GenderFinishers) || changed
	changed = setString(&r.GunPace, f.GunPace) || changed
	changed = setString(&r.NetPace, f.NetPace) || changed
	changed = setString(&r.LatestCheckpoint, f.Checkpoint) || changed
	return changed, statusChanged
}

func setPtr[T comparable](dst **T, v *T) bool {
	if v == nil || (*dst != nil && **dst == *v) {
		return false
	}
	n := *v
	*dst = &n
	return true
}

func setString(dst *string, v string) bool {
	if v == "" || *dst == v {
		return false
	}
	*dst = v
	return true
}
