package sync

import "race-timing/core/store"

// maxReportedErrors bounds the error list of a run result.
const maxReportedErrors = 20

// ImportOptions controls a full runner import.
type ImportOptions struct {
	// UpdateExisting overwrites identity columns of runners already stored.
	// When false, stored runners are skipped.
	UpdateExisting bool `json:"updateExisting"`
}

// EventStats reports the info listing merge.
type EventStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	// Finished is set when the provider race date lies in the past.
	Finished bool `json:"finished"`
}

// CheckpointStats reports the timing point import.
type CheckpointStats struct {
	Created  int  `json:"created"`
	Replaced bool `json:"replaced"`
	Mappings int  `json:"mappings"`
}

// RunnerStats reports how bio rows were mapped.
type RunnerStats struct {
	Fetched     int            `json:"fetched"`
	Mapped      int            `json:"mapped"`
	SkipReasons map[string]int `json:"skipReasons"`
}

// ImportResult is the outcome of a full runner import.
type ImportResult struct {
	Imported        int             `json:"imported"`
	Updated         int             `json:"updated"`
	Skipped         int             `json:"skipped"`
	Events          EventStats      `json:"events"`
	RunnerStats     RunnerStats     `json:"runnerStats"`
	CheckpointStats CheckpointStats `json:"checkpointStats"`
	Timing          *TimingResult   `json:"timing,omitempty"`
	Errors          []string        `json:"errors"`
}

// TimingResult is the outcome of a score merge.
type TimingResult struct {
	Fetched       int      `json:"fetched"`
	Updated       int      `json:"updated"`
	StatusChanges int      `json:"statusChanges"`
	NotFound      int      `json:"notFound"`
	Errors        []string `json:"errors"`
}

// PreviewRequest echoes the provider call of a preview. The token is masked.
type PreviewRequest struct {
	Endpoint string            `json:"endpoint"`
	Params   map[string]string `json:"params"`
}

// Preview is a diagnostic view of one provider listing page.
type Preview struct {
	Request       PreviewRequest `json:"request"`
	OK            bool           `json:"ok"`
	HTTPStatus    int            `json:"httpStatus"`
	ContentType   string         `json:"contentType"`
	BodySize      int            `json:"bodySize"`
	RawSnippet    string         `json:"rawSnippet"`
	Truncated     bool           `json:"truncated"`
	ItemCount     int            `json:"itemCount"`
	PayloadSample any            `json:"payloadSample"`
	ArchiveKey    string         `json:"archiveKey,omitempty"`
}

// SyncData is a campaign's recent reconciliation history.
type SyncData struct {
	Logs   []store.SyncLog  `json:"logs"`
	Counts store.SyncCounts `json:"counts"`
}

func appendError(errs []string, msg string) []string {
	if len(errs) >= maxReportedErrors {
		return errs
	}
	return append(errs, msg)
}
