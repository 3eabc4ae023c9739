package models

import "time"

// InProgressProject is a promoted inquiry under active work. The three
// being_edited fields form the advisory edit lock: at most one staff session
// should hold them at a time, and a stale editing_started_at means the holder
// abandoned the record.
type InProgressProject struct {
	ID             string          `bson:"_id,omitempty" json:"id,omitempty"`
	InquiryID      string          `bson:"inquiry_id" json:"inquiry_id"`
	ClientID       string          `bson:"client_id" json:"client_id"`
	ClientRecordID string          `bson:"client_record_id,omitempty" json:"client_record_id,omitempty"`
	Client         AccountSnapshot `bson:"client" json:"client"`
	Classification string          `bson:"classification" json:"classification"`
	Description    string          `bson:"description" json:"description"`
	Services       []string        `bson:"services" json:"services"`

	// Operational fields
	Quotation      int64      `bson:"quotation" json:"quotation"` // whole-peso total; 40/60 split derived
	DownPaid       bool       `bson:"is_40_paid" json:"is_40_paid"`
	BalancePaid    bool       `bson:"is_60_paid" json:"is_60_paid"`
	ScheduleDate   *time.Time `bson:"schedule_date,omitempty" json:"schedule_date,omitempty"`
	IsScheduleDone bool       `bson:"is_schedule_done" json:"is_schedule_done"`
	Team           string     `bson:"team,omitempty" json:"team,omitempty"`
	Encroachment   bool       `bson:"encroachment" json:"encroachment"`
	NeedsResearch  bool       `bson:"needs_research" json:"needs_research"`
	LayoutDone     bool       `bson:"layout_done" json:"layout_done"`
	Remarks        string     `bson:"remarks,omitempty" json:"remarks,omitempty"`
	ProjectFiles   []Document `bson:"project_files" json:"project_files"`

	// Advisory edit lock
	BeingEditedBy     string     `bson:"being_edited_by,omitempty" json:"being_edited_by,omitempty"`
	BeingEditedByName string     `bson:"being_edited_by_name,omitempty" json:"being_edited_by_name,omitempty"`
	EditingStartedAt  *time.Time `bson:"editing_started_at,omitempty" json:"editing_started_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Locked reports whether the record currently carries lock fields.
func (p *InProgressProject) Locked() bool {
	return p.BeingEditedBy != ""
}

// LockStale reports whether the lock is older than the staleness window.
func (p *InProgressProject) LockStale(threshold time.Duration, now time.Time) bool {
	return p.EditingStartedAt != nil && now.Sub(*p.EditingStartedAt) > threshold
}

// CompletedProject is the terminal, append-only snapshot of a project.
// Immutable after creation except for the Read flag; ReferenceCode is
// globally unique.
type CompletedProject struct {
	ID             string          `bson:"_id,omitempty" json:"id,omitempty"`
	ProjectID      string          `bson:"project_id" json:"project_id"`
	InquiryID      string          `bson:"inquiry_id" json:"inquiry_id"`
	ClientID       string          `bson:"client_id" json:"client_id"`
	Client         AccountSnapshot `bson:"client" json:"client"`
	Classification string          `bson:"classification" json:"classification"`
	Description    string          `bson:"description" json:"description"`
	Services       []string        `bson:"services" json:"services"`
	Quotation      int64           `bson:"quotation" json:"quotation"`
	Team           string          `bson:"team,omitempty" json:"team,omitempty"`
	Encroachment   bool            `bson:"encroachment" json:"encroachment"`
	NeedsResearch  bool            `bson:"needs_research" json:"needs_research"`
	LayoutDone     bool            `bson:"layout_done" json:"layout_done"`
	Remarks        string          `bson:"remarks,omitempty" json:"remarks,omitempty"`
	ProjectFiles   []Document      `bson:"project_files" json:"project_files"`
	ReferenceCode  string          `bson:"reference_code" json:"reference_code"`
	CompletedAt    time.Time       `bson:"completed_at" json:"completed_at"`
	Read           bool            `bson:"read" json:"read"`
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
}
