package audit

import (
	"encoding/json"
	"strings"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
)

// Batch accumulates the field-level changes of one edit session. The editing
// flow builds one Batch, adds a labeled old/new pair per differing field, and
// hands it to the audit service to commit as a single log entry.
//
// Values are display strings (currency, yes/no, joined lists), not raw types.
type Batch struct {
	TargetID string
	Category models.AuditCategory
	Subject  string

	labels    []string
	oldValues map[string]string
	newValues map[string]string
}

// NewBatch starts an empty change set for one record.
func NewBatch(targetID string, category models.AuditCategory, subject string) *Batch {
	return &Batch{
		TargetID:  targetID,
		Category:  category,
		Subject:   subject,
		oldValues: make(map[string]string),
		newValues: make(map[string]string),
	}
}

// Add records a change under an action label. Re-adding the same label
// overwrites the previous pair (last write wins within a session); label
// order is preserved from first insertion.
func (b *Batch) Add(label, oldValue, newValue string) {
	if _, seen := b.oldValues[label]; !seen {
		b.labels = append(b.labels, label)
	}
	b.oldValues[label] = oldValue
	b.newValues[label] = newValue
}

// Empty reports whether no changes were recorded.
func (b *Batch) Empty() bool {
	return len(b.labels) == 0
}

// Len returns the number of distinct action labels recorded.
func (b *Batch) Len() int {
	return len(b.labels)
}

// Actions returns the action descriptions joined in insertion order.
func (b *Batch) Actions() string {
	return strings.Join(b.labels, ", ")
}

// Serialize renders the old and new value maps as JSON strings for storage.
func (b *Batch) Serialize() (oldJSON, newJSON string, err error) {
	oldBytes, err := json.Marshal(b.oldValues)
	if err != nil {
		return "", "", err
	}
	newBytes, err := json.Marshal(b.newValues)
	if err != nil {
		return "", "", err
	}
	return string(oldBytes), string(newBytes), nil
}

// OldValue returns the recorded old value for a label.
func (b *Batch) OldValue(label string) (string, bool) {
	v, ok := b.oldValues[label]
	return v, ok
}

// NewValue returns the recorded new value for a label.
func (b *Batch) NewValue(label string) (string, bool) {
	v, ok := b.newValues[label]
	return v, ok
}
