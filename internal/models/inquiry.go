package models

import "time"

// InquiryStatus is the triage disposition of a submitted inquiry.
type InquiryStatus string

const (
	InquiryStatusPending         InquiryStatus = "pending"
	InquiryStatusApproved        InquiryStatus = "approved"
	InquiryStatusRejected        InquiryStatus = "rejected"
	InquiryStatusUpdateRequested InquiryStatus = "update_requested"
)

// Display returns the status label shown to clients and recorded in audits.
func (s InquiryStatus) Display() string {
	switch s {
	case InquiryStatusPending:
		return "Pending"
	case InquiryStatusApproved:
		return "Approved"
	case InquiryStatusRejected:
		return "Rejected"
	case InquiryStatusUpdateRequested:
		return "Update Requested"
	default:
		return string(s)
	}
}

// Valid reports whether s is a known inquiry status.
func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryStatusPending, InquiryStatusApproved, InquiryStatusRejected, InquiryStatusUpdateRequested:
		return true
	}
	return false
}

// Inquiry is a client-submitted service request in the global staff-facing
// collection. ClientRecordID correlates it with the per-client view document;
// every dual-write targets both locations.
type Inquiry struct {
	ID             string          `bson:"_id,omitempty" json:"id,omitempty"`
	ClientID       string          `bson:"client_id" json:"client_id"`
	ClientRecordID string          `bson:"client_record_id,omitempty" json:"client_record_id,omitempty"`
	Client         AccountSnapshot `bson:"client" json:"client"`
	Classification string          `bson:"classification" json:"classification"`
	Description    string          `bson:"description" json:"description"`
	Services       []string        `bson:"services" json:"services"`
	Status         InquiryStatus   `bson:"status" json:"status"`
	Remarks        string          `bson:"remarks,omitempty" json:"remarks,omitempty"`
	Documents      []Document      `bson:"documents" json:"documents"`
	Read           bool            `bson:"read" json:"read"`
	SubmittedAt    time.Time       `bson:"submitted_at" json:"submitted_at"`
	UpdatedAt      time.Time       `bson:"updated_at" json:"updated_at"`
}
