package sync

import (
	"context"
	"fmt"

	"race-timing/core/reconcile"
	"race-timing/core/store"
)

// runnerAdapter implements reconcile.Adapter for runners keyed by "eventID|bib".
type runnerAdapter struct {
	runners  *store.Runners
	eventIDs []string
}

func newRunnerAdapter(runners *store.Runners, eventIDs []string) *runnerAdapter {
	return &runnerAdapter{runners: runners, eventIDs: eventIDs}
}

func runnerKey(eventID, bib string) string {
	if eventID == "" || bib == "" {
		return ""
	}
	return eventID + "|" + bib
}

// Name returns the unique name of this adapter.
func (a *runnerAdapter) Name() string {
	return "runners"
}

// LoadLocalIndex loads every runner of the campaign's events in one query.
func (a *runnerAdapter) LoadLocalIndex(ctx context.Context) (map[string]reconcile.LocalItem, error) {
	runners, err := a.runners.ForEvents(ctx, a.eventIDs)
	if err != nil {
		return nil, err
	}
	index := make(map[string]reconcile.LocalItem, len(runners))
	for _, r := range runners {
		index[runnerKey(r.EventID, r.Bib)] = r
	}
	return index, nil
}

// RemoteKey returns the merge key of a mapped bio row.
func (a *runnerAdapter) RemoteKey(item reconcile.RemoteItem) string {
	r := item.(store.Runner)
	return runnerKey(r.EventID, r.Bib)
}

// CompareFields lists identity differences. Race state is never compared.
func (a *runnerAdapter) CompareFields(local reconcile.LocalItem, remote reconcile.RemoteItem) []string {
	l, r := local.(store.Runner), remote.(store.Runner)
	var diffs []string
	diff := func(field, remoteVal, localVal string) {
		if remoteVal != "" && remoteVal != localVal {
			diffs = append(diffs, fmt.Sprintf("%s: remote=%s local=%s", field, remoteVal, localVal))
		}
	}
	diff("first_name", r.FirstName, l.FirstName)
	diff("last_name", r.LastName, l.LastName)
	diff("first_name_local", r.FirstNameLocal, l.FirstNameLocal)
	diff("last_name_local", r.LastNameLocal, l.LastNameLocal)
	diff("gender", r.Gender, l.Gender)
	diff("category", r.Category, l.Category)
	diff("age_group", r.AgeGroup, l.AgeGroup)
	diff("chip_code", r.ChipCode, l.ChipCode)
	diff("athlete_id", r.AthleteID, l.AthleteID)
	diff("team", r.Team, l.Team)
	diff("nationality", r.Nationality, l.Nationality)
	diff("email", r.Email, l.Email)
	diff("phone", r.Phone, l.Phone)
	diff("id_number", r.IDNumber, l.IDNumber)
	diff("birth_date", r.BirthDate, l.BirthDate)
	if r.Age != nil && (l.Age == nil || *l.Age != *r.Age) {
		diffs = append(diffs, fmt.Sprintf("age: remote=%d", *r.Age))
	}
	return diffs
}

// InsertBatch inserts new runners in one statement. Keys stored concurrently are skipped.
func (a *runnerAdapter) InsertBatch(ctx context.Context, actions []reconcile.Action) (int, error) {
	rows := make([]store.Runner, 0, len(actions))
	for _, action := range actions {
		rows = append(rows, action.Remote.(store.Runner))
	}
	n, err := a.runners.InsertNew(ctx, rows)
	return int(n), err
}

// UpdateBatch writes the identity columns of existing runners. Fields the
// bio row leaves empty keep their stored value.
func (a *runnerAdapter) UpdateBatch(ctx context.Context, actions []reconcile.Action) error {
	rows := make([]store.Runner, 0, len(actions))
	for _, action := range actions {
		remote := action.Remote.(store.Runner)
		if local, ok := action.Local.(store.Runner); ok {
			remote = mergeIdentity(local, remote)
		}
		rows = append(rows, remote)
	}
	return a.runners.UpsertByBib(ctx, rows, store.RunnerIdentityColumns)
}

// mergeIdentity lays the non-empty identity fields of remote over local.
func mergeIdentity(local, remote store.Runner) store.Runner {
	out := local
	keep := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	keep(&out.ChipCode, remote.ChipCode)
	keep(&out.RFIDTag, remote.RFIDTag)
	keep(&out.AthleteID, remote.AthleteID)
	keep(&out.FirstName, remote.FirstName)
	keep(&out.LastName, remote.LastName)
	keep(&out.FirstNameLocal, remote.FirstNameLocal)
	keep(&out.LastNameLocal, remote.LastNameLocal)
	keep(&out.Gender, remote.Gender)
	keep(&out.AgeGroup, remote.AgeGroup)
	keep(&out.Nationality, remote.Nationality)
	keep(&out.Team, remote.Team)
	keep(&out.Email, remote.Email)
	keep(&out.Phone, remote.Phone)
	keep(&out.IDNumber, remote.IDNumber)
	keep(&out.BirthDate, remote.BirthDate)
	keep(&out.Category, remote.Category)
	keep(&out.Source, remote.Source)
	if remote.Age != nil {
		out.Age = remote.Age
	}
	out.UpdatedAt = remote.UpdatedAt
	return out
}
