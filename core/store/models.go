package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Runner race states.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
	StatusDNF        = "dnf"
	StatusDNS        = "dns"
)

// Event and race category states.
const (
	EventUpcoming = "upcoming"
	EventLive     = "live"
	EventFinished = "finished"
)

// Checkpoint types.
const (
	CheckpointStart  = "start"
	CheckpointMiddle = "checkpoint"
	CheckpointFinish = "finish"
)

// Sync log states.
const (
	SyncPending = "pending"
	SyncSuccess = "success"
	SyncError   = "error"
)

// Gender values stored on runners.
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// RaceCategory is a campaign-level race division as configured by the organizer.
type RaceCategory struct {
	Name          string   `json:"name"`
	Distance      *float64 `json:"distance,omitempty"`
	StartTime     string   `json:"startTime,omitempty"`
	Cutoff        string   `json:"cutoff,omitempty"`
	Status        string   `json:"status,omitempty"`
	RemoteEventNo *int64   `json:"remoteEventNo,omitempty"`
}

// Campaign groups the events of one race day and carries the provider credentials.
type Campaign struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	EventDate     *time.Time     `json:"eventDate,omitempty"`
	Location      string         `gorm:"size:255" json:"location"`
	SyncEnabled   bool           `gorm:"not null" json:"syncEnabled"`
	AutoSync      bool           `gorm:"not null" json:"autoSync"`
	RaceID        string         `gorm:"size:64" json:"raceId"`
	ProviderToken string         `gorm:"size:255" json:"-"`
	PartnerCode   string         `gorm:"size:32" json:"partnerCode"`
	Categories    datatypes.JSON `json:"categories"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// CategoryList decodes the stored categories. Malformed JSON yields an empty list.
func (c *Campaign) CategoryList() []RaceCategory {
	var out []RaceCategory
	if len(c.Categories) == 0 {
		return out
	}
	_ = json.Unmarshal(c.Categories, &out)
	return out
}

// SetCategories encodes categories into the JSON column.
func (c *Campaign) SetCategories(categories []RaceCategory) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	c.Categories = datatypes.JSON(data)
	return nil
}

// Event is one race (distance) inside a campaign.
type Event struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	CampaignID    string     `gorm:"size:36;index;not null" json:"campaignId"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	Category      string     `gorm:"size:255" json:"category"`
	Distance      *float64   `json:"distance,omitempty"`
	RemoteEventID *int64     `gorm:"index" json:"remoteEventId,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	StartTime     *time.Time `json:"startTime,omitempty"`
	Status        string     `gorm:"size:32" json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// CategoryLabel is the category runners of this event are ranked in.
func (e *Event) CategoryLabel() string {
	if e.Category != "" {
		return e.Category
	}
	return e.Name
}

// Runner is a participant of one event. (EventID, Bib) is unique.
type Runner struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	EventID          string     `gorm:"size:36;not null;uniqueIndex:idx_runner_event_bib;index:idx_runner_event_status" json:"eventId"`
	Bib              string     `gorm:"size:32;not null;uniqueIndex:idx_runner_event_bib" json:"bib"`
	ChipCode         string     `gorm:"size:64;index" json:"chipCode,omitempty"`
	RFIDTag          string     `gorm:"column:rfid_tag;size:64;index" json:"rfidTag,omitempty"`
	AthleteID        string     `gorm:"size:64;index" json:"athleteId,omitempty"`
	FirstName        string     `gorm:"size:128" json:"firstName"`
	LastName         string     `gorm:"size:128" json:"lastName"`
	FirstNameLocal   string     `gorm:"size:128" json:"firstNameLocal,omitempty"`
	LastNameLocal    string     `gorm:"size:128" json:"lastNameLocal,omitempty"`
	Gender           string     `gorm:"size:8" json:"gender"`
	Age              *int       `json:"age,omitempty"`
	AgeGroup         string     `gorm:"size:64" json:"ageGroup,omitempty"`
	Nationality      string     `gorm:"size:64" json:"nationality,omitempty"`
	Team             string     `gorm:"size:255" json:"team,omitempty"`
	Email            string     `gorm:"size:255" json:"email,omitempty"`
	Phone            string     `gorm:"size:64" json:"phone,omitempty"`
	IDNumber         string     `gorm:"column:id_number;size:64" json:"idNumber,omitempty"`
	BirthDate        string     `gorm:"size:32" json:"birthDate,omitempty"`
	Category         string     `gorm:"size:255;index" json:"category"`
	Status           string     `gorm:"size:32;not null;index:idx_runner_event_status" json:"status"`
	StartTime        *time.Time `json:"startTime,omitempty"`
	FinishTime       *time.Time `json:"finishTime,omitempty"`
	NetTime          *int64     `json:"netTime,omitempty"`
	GunTime          *int64     `json:"gunTime,omitempty"`
	ElapsedTime      *int64     `json:"elapsedTime,omitempty"`
	LatestCheckpoint string     `gorm:"size:128" json:"latestCheckpoint,omitempty"`
	ScanCount        int        `gorm:"not null" json:"scanCount"`
	OverallRank      *int       `json:"overallRank,omitempty"`
	GenderRank       *int       `json:"genderRank,omitempty"`
	GenderNetRank    *int       `json:"genderNetRank,omitempty"`
	AgeGroupRank     *int       `json:"ageGroupRank,omitempty"`
	CategoryRank     *int       `json:"categoryRank,omitempty"`
	GunPace          string     `gorm:"size:32" json:"gunPace,omitempty"`
	NetPace          string     `gorm:"size:32" json:"netPace,omitempty"`
	TotalFinishers   *int       `json:"totalFinishers,omitempty"`
	GenderFinishers  *int       `json:"genderFinishers,omitempty"`
	AllowRFIDSync    bool       `gorm:"column:allow_rfid_sync;not null" json:"allowRfidSync"`
	Source           string     `gorm:"size:128" json:"source,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// IsTerminal reports whether the runner's race is over.
func (r *Runner) IsTerminal() bool {
	return IsTerminalStatus(r.Status)
}

// IsTerminalStatus reports whether status ends a race.
func IsTerminalStatus(status string) bool {
	return status == StatusFinished || status == StatusDNF || status == StatusDNS
}

// ScanRecord is one checkpoint pass. Rows are only ever inserted.
type ScanRecord struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	EventID     string    `gorm:"size:36;not null;index" json:"eventId"`
	RunnerID    string    `gorm:"size:36;not null;uniqueIndex:idx_scan_runner_order" json:"runnerId"`
	Bib         string    `gorm:"size:32;not null" json:"bib"`
	Checkpoint  string    `gorm:"size:128;not null" json:"checkpoint"`
	ScanTime    time.Time `gorm:"not null;index" json:"scanTime"`
	Order       int       `gorm:"column:seq_order;not null;uniqueIndex:idx_scan_runner_order" json:"order"`
	SplitTime   int64     `gorm:"not null" json:"splitTime"`
	ElapsedTime int64     `gorm:"not null" json:"elapsedTime"`
	ChipCode    string    `gorm:"size:64" json:"chipCode,omitempty"`
	Note        string    `gorm:"size:512" json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Checkpoint is a physical timing point of a campaign course.
type Checkpoint struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	CampaignID   string    `gorm:"size:36;not null;index" json:"campaignId"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	Type         string    `gorm:"size:16;not null" json:"type"`
	OrderNum     int       `gorm:"not null" json:"orderNum"`
	Active       bool      `gorm:"not null" json:"active"`
	CutoffTime   string    `gorm:"size:64" json:"cutoffTime,omitempty"`
	KmCumulative *float64  `json:"kmCumulative,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CheckpointMapping attaches a checkpoint to one event with event specific order, distance and cutoff.
type CheckpointMapping struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	CheckpointID      string    `gorm:"size:36;not null;uniqueIndex:idx_mapping_checkpoint_event" json:"checkpointId"`
	EventID           string    `gorm:"size:36;not null;uniqueIndex:idx_mapping_checkpoint_event;index" json:"eventId"`
	OrderNum          int       `gorm:"not null" json:"orderNum"`
	DistanceFromStart *float64  `json:"distanceFromStart,omitempty"`
	CutoffMinutes     *int      `json:"cutoffMinutes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// SyncLog records one reconciliation attempt. It moves from pending to success or error once.
type SyncLog struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	CampaignID       string         `gorm:"size:36;not null;index:idx_synclog_campaign_start" json:"campaignId"`
	Status           string         `gorm:"size:16;not null;index" json:"status"`
	Message          string         `gorm:"type:text" json:"message"`
	RecordsProcessed int            `gorm:"not null" json:"recordsProcessed"`
	RecordsFailed    int            `gorm:"not null" json:"recordsFailed"`
	StartTime        time.Time      `gorm:"not null;index:idx_synclog_campaign_start" json:"startTime"`
	EndTime          *time.Time     `json:"endTime,omitempty"`
	Detail           datatypes.JSON `json:"detail,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

func newID() string {
	return uuid.NewString()
}

func (m *Campaign) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}

func (m *Event) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}

func (m *Runner) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.Status == "" {
		m.Status = StatusNotStarted
	}
	return nil
}

func (m *ScanRecord) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}

func (m *Checkpoint) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}

func (m *CheckpointMapping) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}

func (m *SyncLog) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&Campaign{},
		&Event{},
		&Runner{},
		&ScanRecord{},
		&Checkpoint{},
		&CheckpointMapping{},
		&SyncLog{},
	}
}

// Migrate creates or updates the tables of every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
