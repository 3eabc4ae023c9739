package models

import "time"

// ClientBucket groups a client's view records the way the portal lists them.
type ClientBucket string

const (
	ClientBucketPending   ClientBucket = "pending"
	ClientBucketCompleted ClientBucket = "completed"
	ClientBucketRejected  ClientBucket = "rejected"
)

// Notification is one status-change entry appended to a client view record.
// Appends preserve prior entries; the client clears Unread on read.
type Notification struct {
	InquiryID string    `bson:"inquiry_id" json:"inquiry_id"`
	Status    string    `bson:"status" json:"status"`
	Message   string    `bson:"message" json:"message"`
	Unread    bool      `bson:"unread" json:"unread"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ClientInquiry is the denormalized per-client copy of an inquiry. It carries
// only what the client-facing portal shows, plus the notification feed. Its ID
// is the correlation id stored on the canonical Inquiry as ClientRecordID.
type ClientInquiry struct {
	ID             string         `bson:"_id,omitempty" json:"id,omitempty"`
	ClientID       string         `bson:"client_id" json:"client_id"`
	InquiryID      string         `bson:"inquiry_id" json:"inquiry_id"`
	Bucket         ClientBucket   `bson:"bucket" json:"bucket"`
	StatusLabel    string         `bson:"status_label" json:"status_label"`
	Classification string         `bson:"classification" json:"classification"`
	Description    string         `bson:"description" json:"description"`
	Services       []string       `bson:"services" json:"services"`
	Documents      []Document     `bson:"documents" json:"documents"`
	Notifications  []Notification `bson:"notifications" json:"notifications"`

	// Mirrored from the in-progress project once work begins.
	Quotation      int64      `bson:"quotation,omitempty" json:"quotation,omitempty"`
	ScheduleDate   *time.Time `bson:"schedule_date,omitempty" json:"schedule_date,omitempty"`
	IsScheduleDone bool       `bson:"is_schedule_done,omitempty" json:"is_schedule_done,omitempty"`

	SubmittedAt    time.Time      `bson:"submitted_at" json:"submitted_at"`
	UpdatedAt      time.Time      `bson:"updated_at" json:"updated_at"`
}
