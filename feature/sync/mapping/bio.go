package mapping

import (
	"fmt"
	"time"

	"race-timing/core/store"
)

// SkipReason explains why a bio row produced no runner. Empty means mapped.
type SkipReason string

const (
	SkipNoBib         SkipReason = "no_bib"
	SkipNoEventID     SkipReason = "no_event_id_in_row"
	SkipResolveFailed SkipReason = "resolve_failed"
)

// SkipUnmappedEvent is the reason for a row whose event number no local event claims.
func SkipUnmappedEvent(remote int64) SkipReason {
	return SkipReason(fmt.Sprintf("unmapped_eid_%d", remote))
}

// BioSource is written to runners created from provider bio rows.
const BioSource = "RaceTiger BIO sync"

// DefaultCategory is used when neither the event nor the row names a race category.
const DefaultCategory = "General"

var (
	bibAliases      = []string{"BIB", "Bib", "bib", "AthleteId", "athleteId"}
	athleteAliases  = []string{"AthleteId", "athleteId", "athleteid", "ATHLETEID"}
	idNumberAliases = []string{"IDNo", "IdNo", "idNo", "IDNO", "CardId", "cardId", "CardID"}
	emailAliases    = []string{"Email", "email", "EMAIL"}
	countryAliases  = []string{"CountryRegion", "countryRegion", "Country", "country", "Nation", "nation", "Nationality", "nationality", "Nat", "nat", "CountryCode", "countryCode"}
	idNumberKeys    = []string{"idno", "cardid", "cardno", "identityno"}
	emailKeys       = []string{"email", "mail"}
	countryKeys     = []string{"country", "nation", "nationality", "countryregion", "countrycode", "nat"}
)

// BioBib returns the bib of a bio row. The athlete id stands in when no bib is given.
func BioBib(row Row) string {
	return FirstString(row, bibAliases...)
}

// MapBioRow turns a provider bio row into a runner of the resolved event.
// forced is the local event whose listing is being paged, or "".
func MapBioRow(row Row, res *Resolver, forced string) (store.Runner, SkipReason) {
	bib := BioBib(row)
	eventID := res.EventFor(row, forced)
	if eventID == "" {
		return store.Runner{}, bioSkipReason(row, bib, res, forced)
	}
	if bib == "" {
		return store.Runner{}, SkipNoBib
	}

	first := FirstString(row, "FirstName", "firstName")
	last := FirstString(row, "LastName", "lastName")
	english := FirstString(row, "EnName", "enName")
	local := FirstString(row, "Name", "name")
	base := english
	if base == "" {
		base = local
	}
	splitFirst, splitLast := SplitName(base)
	if first == "" {
		first = splitFirst
	}
	if last == "" {
		last = splitLast
	}

	r := store.Runner{
		EventID:       eventID,
		Bib:           bib,
		FirstName:     first,
		LastName:      last,
		Gender:        NormalizeGender(First(row, "Gender", "gender")),
		Team:          FirstString(row, "TeamName", "teamName"),
		ChipCode:      FirstString(row, "ChipCode", "chipCode"),
		AthleteID:     FirstString(row, athleteAliases...),
		IDNumber:      StringOrNormalized(row, idNumberAliases, idNumberKeys...),
		Email:         StringOrNormalized(row, emailAliases, emailKeys...),
		Nationality:   StringOrNormalized(row, countryAliases, countryKeys...),
		Phone:         FirstString(row, "Phone", "phone"),
		Status:        store.StatusNotStarted,
		AllowRFIDSync: true,
		Source:        BioSource,
	}
	r.RFIDTag = r.ChipCode

	if local != "" && local != base {
		r.FirstNameLocal, r.LastNameLocal = SplitName(local)
	}

	if age, ok := ParseDistance(First(row, "Age", "age")); ok && age >= 0 {
		n := int(age)
		r.Age = &n
	}

	if born, ok := ParseDate(First(row, "Birthday", "birthday"), time.Local); ok {
		r.BirthDate = born.Format("2006-01-02")
	}

	rawCategory := FirstString(row, "Category", "category")
	ageGroupLike := LooksLikeAgeGroup(rawCategory)
	switch {
	case res.CategoryByEvent[eventID] != "":
		r.Category = res.CategoryByEvent[eventID]
	case rawCategory != "" && !ageGroupLike && !IsNumericLike(rawCategory):
		r.Category = rawCategory
	default:
		r.Category = DefaultCategory
	}

	r.AgeGroup = FirstString(row, "Category2", "category2", "AgeGroup", "ageGroup")
	if r.AgeGroup == "" && ageGroupLike {
		r.AgeGroup = rawCategory
	}
	return r, ""
}

func bioSkipReason(row Row, bib string, res *Resolver, forced string) SkipReason {
	if bib == "" {
		return SkipNoBib
	}
	remote, ok := RemoteEventID(row)
	if !ok {
		return SkipNoEventID
	}
	if !res.Mapped(remote) && forced == "" && res.Fallback == "" {
		return SkipUnmappedEvent(remote)
	}
	return SkipResolveFailed
}
