package mapping

import (
	"math"
	"strings"

	"race-timing/core/store"
)

// Resolver maps provider event numbers to local events of one campaign.
type Resolver struct {
	ByRemoteID map[int64]string
	// Fallback receives rows no mapping claims. Empty for multi-event campaigns
	// that have at least one mapping.
	Fallback        string
	CategoryByEvent map[string]string
	EventIDs        []string
}

// BuildResolver maps each event to a provider event number. The event's own
// remote id wins, then a category whose name matches the event category or name,
// then a category with the same distance, then the category at the event's position.
func BuildResolver(events []store.Event, categories []store.RaceCategory) *Resolver {
	r := &Resolver{
		ByRemoteID:      make(map[int64]string, len(events)),
		CategoryByEvent: make(map[string]string, len(events)),
	}
	for i, ev := range events {
		r.EventIDs = append(r.EventIDs, ev.ID)
		if label := ev.CategoryLabel(); label != "" {
			r.CategoryByEvent[ev.ID] = label
		}
		if ev.RemoteEventID != nil {
			r.ByRemoteID[*ev.RemoteEventID] = ev.ID
			continue
		}
		if id, ok := remoteFromCategories(ev, categories, i); ok {
			r.ByRemoteID[id] = ev.ID
		}
	}

	switch {
	case len(events) == 0:
	case len(r.ByRemoteID) == 0, len(events) == 1:
		r.Fallback = events[0].ID
	}
	return r
}

func remoteFromCategories(ev store.Event, categories []store.RaceCategory, index int) (int64, bool) {
	if len(categories) == 0 {
		return 0, false
	}

	if key := ComparableText(ev.CategoryLabel()); key != "" {
		for _, cat := range categories {
			if cat.RemoteEventNo == nil {
				continue
			}
			catKey := ComparableText(cat.Name)
			if catKey == "" {
				continue
			}
			if catKey == key || containsEither(key, catKey) {
				return *cat.RemoteEventNo, true
			}
		}
	}

	if ev.Distance != nil {
		for _, cat := range categories {
			if cat.RemoteEventNo == nil || cat.Distance == nil {
				continue
			}
			if math.Abs(*cat.Distance-*ev.Distance) < 0.001 {
				return *cat.RemoteEventNo, true
			}
		}
	}

	if index < len(categories) && categories[index].RemoteEventNo != nil {
		return *categories[index].RemoteEventNo, true
	}
	return 0, false
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Mapped reports whether remote is claimed by an event.
func (r *Resolver) Mapped(remote int64) bool {
	_, ok := r.ByRemoteID[remote]
	return ok
}

// EventForRemote returns the local event of remote, or "".
func (r *Resolver) EventForRemote(remote int64) string {
	return r.ByRemoteID[remote]
}

// EventFor picks the local event of a row: the row's own event number when
// mapped, then forced (the event being paged), then the fallback.
func (r *Resolver) EventFor(row Row, forced string) string {
	if id, ok := RemoteEventID(row); ok {
		if ev, ok := r.ByRemoteID[id]; ok {
			return ev
		}
	}
	if forced != "" {
		return forced
	}
	return r.Fallback
}
