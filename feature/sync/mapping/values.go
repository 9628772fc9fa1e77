package mapping

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"race-timing/core/utils"
)

// Row is one decoded provider record.
type Row = map[string]any

var (
	distanceRe    = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	comparableRe  = regexp.MustCompile(`[^a-z0-9ก-๙]+`)
	clockRe       = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::\d{2})?`)
	durationRe    = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})(?:\.(\d+))?$`)
	digitsRe      = regexp.MustCompile(`^\d+$`)
	ageGroupRes   = []*regexp.Regexp{regexp.MustCompile(`^[MF]?\s*\d{1,2}[-+]`), regexp.MustCompile(`^\d{1,2}\s*-\s*\d{1,2}$`), regexp.MustCompile(`(?i)^[MF]\s+U?\d`)}
	dateTimeForms = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006/01/02 15:04:05",
		"2006/01/02 15:04",
	}
	dateForms = []string{"2006-01-02", "2006/01/02", "02/01/2006"}
)

// Text renders scalar row values as trimmed strings. Anything else is "".
func Text(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return utils.ToString(x)
	case int, int64:
		return fmt.Sprint(x)
	}
	return ""
}

// NormalizeKey lowercases a field name and strips everything but letters and digits.
func NormalizeKey(key string) string {
	return utils.AlnumKey(key)
}

// ComparableText lowercases s and keeps only ASCII letters, digits and Thai characters.
func ComparableText(s string) string {
	return comparableRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// First returns the value of the first alias present in row.
func First(row Row, aliases ...string) any {
	for _, a := range aliases {
		if v, ok := row[a]; ok && v != nil {
			return v
		}
	}
	return nil
}

// FirstString returns the first non-empty text among aliases.
func FirstString(row Row, aliases ...string) string {
	for _, a := range aliases {
		if s := Text(row[a]); s != "" {
			return s
		}
	}
	return ""
}

// FirstByNormalizedKey returns the value of the first field whose normalized name
// is one of keys. Fields are visited in sorted order.
func FirstByNormalizedKey(row Row, keys ...string) any {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	names := make([]string, 0, len(row))
	for k := range row {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if want[NormalizeKey(k)] && row[k] != nil {
			return row[k]
		}
	}
	return nil
}

// StringOrNormalized tries aliases first, then a normalized-key scan.
func StringOrNormalized(row Row, aliases []string, keys ...string) string {
	if s := FirstString(row, aliases...); s != "" {
		return s
	}
	return Text(FirstByNormalizedKey(row, keys...))
}

// ParseNumber accepts JSON numbers and fully numeric strings.
func ParseNumber(v any) (float64, bool) {
	switch v.(type) {
	case nil, bool:
		return 0, false
	}
	return utils.ToFloat(v)
}

// ParseInt is ParseNumber truncated to an integer.
func ParseInt(v any) (int64, bool) {
	f, ok := ParseNumber(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// ParseDistance extracts the first decimal number of v, ignoring thousands separators.
// "21.1 KM" gives 21.1.
func ParseDistance(v any) (float64, bool) {
	if f, ok := v.(float64); ok {
		return f, !math.IsNaN(f)
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	raw := strings.ReplaceAll(Text(v), ",", "")
	m := distanceRe.FindString(raw)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}

// IsNumericLike reports whether s is made of digits only.
func IsNumericLike(s string) bool {
	return digitsRe.MatchString(s)
}

// LooksLikeAgeGroup reports whether s reads as an age bracket such as "45-49",
// "M 30-39", "F U18" or "70+".
func LooksLikeAgeGroup(s string) bool {
	for _, re := range ageGroupRes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// NormalizeGender maps provider gender values to F or M. Unknown values are M.
func NormalizeGender(v any) string {
	switch strings.ToLower(Text(v)) {
	case "f", "female", "woman", "2", "หญิง", "female(หญิง)":
		return "F"
	}
	return "M"
}

// SplitName splits a full name on its last space.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "Unknown", "Runner"
	case 1:
		return parts[0], "-"
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

// ParseTimeMs reads a duration as milliseconds. It accepts "H:MM:SS[.fff]" and
// plain numbers, which are seconds unless larger than one day in milliseconds.
func ParseTimeMs(v any) (int64, bool) {
	const dayMs = 86400000
	switch v.(type) {
	case float64, json.Number, int, int64:
		f, ok := ParseNumber(v)
		if !ok || f <= 0 {
			return 0, false
		}
		if f > dayMs {
			return int64(f), true
		}
		return int64(f * 1000), true
	}

	s := Text(v)
	if s == "" || s == "-" || s == "0" || s == "00:00:00" {
		return 0, false
	}
	if m := durationRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		sec, _ := strconv.Atoi(m[3])
		var frac int
		if m[4] != "" {
			f := (m[4] + "00")[:3]
			frac, _ = strconv.Atoi(f)
		}
		return int64((h*3600+mi*60+sec)*1000 + frac), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	if f > dayMs {
		return int64(f), true
	}
	return int64(f * 1000), true
}

// ParseDateTime parses the provider's full datetime forms in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeForms {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses a date or datetime value in loc.
func ParseDate(v any, loc *time.Location) (time.Time, bool) {
	s := Text(v)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := ParseDateTime(s, loc); ok {
		return t, true
	}
	for _, layout := range dateForms {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeClock reduces a wave or gun time to "YYYY-MM-DDTHH:MM" when it carries
// a date, to "HH:MM" when it is a bare clock, and returns anything else unchanged.
func NormalizeClock(v any, loc *time.Location) string {
	raw := Text(v)
	if raw == "" {
		return ""
	}
	if len(raw) > 10 {
		if t, ok := ParseDateTime(raw, loc); ok {
			return t.Format("2006-01-02T15:04")
		}
	}
	if m := clockRe.FindStringSubmatch(raw); m != nil {
		h, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%02d:%s", h, m[2])
	}
	return raw
}

// ClockOn places an "HH:MM" clock on day's date. ok is false for anything else.
func ClockOn(clock string, day time.Time) (time.Time, bool) {
	if len(clock) != 5 || clock[2] != ':' {
		return time.Time{}, false
	}
	h, err1 := strconv.Atoi(clock[:2])
	m, err2 := strconv.Atoi(clock[3:])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return time.Time{}, false
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, day.Location()), true
}

// RemoteEventID reads the provider event number of a row.
func RemoteEventID(row Row) (int64, bool) {
	v := First(row, "EventId", "eventId", "eventid", "EventNo", "eventNo", "eventno",
		"ProjectNo", "projectNo", "projectno", "RaceNo", "raceNo", "raceno")
	if id, ok := ParseInt(v); ok {
		return id, true
	}
	return ParseInt(FirstByNormalizedKey(row, "eventid", "eventno", "projectno", "projectnumber", "raceno"))
}
