package models

import "time"

// AuditCategory names the pipeline stage an audit entry belongs to.
type AuditCategory string

const (
	AuditCategoryInquiry    AuditCategory = "Inquiry"
	AuditCategoryInProgress AuditCategory = "In Progress"
	AuditCategoryCompleted  AuditCategory = "Completed"
	AuditCategoryAccount    AuditCategory = "Account"
)

// AuditLogEntry records one logical save operation. All field changes from a
// single edit session aggregate into one entry; OldValues/NewValues are
// JSON-serialized maps keyed by action label, holding display strings.
type AuditLogEntry struct {
	ID        string        `bson:"_id,omitempty" json:"id,omitempty"`
	TargetID  string        `bson:"target_id" json:"target_id"`
	Category  AuditCategory `bson:"category" json:"category"`
	Subject   string        `bson:"subject" json:"subject"` // human label of the affected record
	Actions   string        `bson:"actions" json:"actions"` // action descriptions joined with ", "
	ActorID   string        `bson:"actor_id" json:"actor_id"`
	ActorName string        `bson:"actor_name" json:"actor_name"`
	ActorRole string        `bson:"actor_role" json:"actor_role"`
	OldValues string        `bson:"old_values" json:"old_values"`
	NewValues string        `bson:"new_values" json:"new_values"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}
