package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
)

func newInquiryFixture(t *testing.T, dbName string) (*testEnv, IInquiryService, IAuditService) {
	t.Helper()
	env := newTestEnv(t, dbName)
	audits := NewAuditService(env.db)
	dual := NewDualWriteCoordinator(env.client, env.db)
	inquiries := NewInquiryService(env.client, env.db, dual, audits, nil)
	return env, inquiries, audits
}

func TestInquirySubmitCreatesBothRecords(t *testing.T) {
	env, inquiries, _ := newInquiryFixture(t, "test_inquiry_submit")
	ctx := context.Background()

	client := seedAccount(t, env, "Ana Reyes", "ana@example.com", "secret-pass", models.RoleClient)
	inquiry, err := inquiries.Submit(ctx, client, InquirySubmission{
		Classification: "Residential",
		Description:    "Lot subdivision for inheritance",
		Services:       []string{"Subdivision Survey", "Titling Assistance"},
	})
	skipIfNoTransactions(t, err)
	require.NoError(t, err)

	assert.Equal(t, models.InquiryStatusPending, inquiry.Status)
	assert.Equal(t, client.ID, inquiry.ClientID)
	assert.Equal(t, "Ana Reyes", inquiry.Client.Name)
	require.NotEmpty(t, inquiry.ClientRecordID)

	// The per-client counterpart exists under the correlation id.
	var view models.ClientInquiry
	require.NoError(t, env.db.Collection(clientInquiriesCollection).
		FindOne(ctx, bson.M{"_id": inquiry.ClientRecordID}).Decode(&view))
	assert.Equal(t, inquiry.ID, view.InquiryID)
	assert.Equal(t, models.ClientBucketPending, view.Bucket)
	assert.Equal(t, "Pending", view.StatusLabel)
	assert.Empty(t, view.Notifications)
}

func TestInquiryTriageDualWriteAndNotification(t *testing.T) {
	env, inquiries, _ := newInquiryFixture(t, "test_inquiry_triage")
	ctx := context.Background()

	client := seedAccount(t, env, "Ana Reyes", "ana@example.com", "secret-pass", models.RoleClient)
	staff := seedAccount(t, env, "Alice Santos", "alice@example.com", "secret-pass", models.RoleStaff)
	actor := Actor{ID: staff.ID, Name: staff.Name, Role: staff.Role}

	inquiry, err := inquiries.Submit(ctx, client, InquirySubmission{
		Classification: "Residential",
		Description:    "Lot subdivision",
		Services:       []string{"Subdivision Survey"},
	})
	skipIfNoTransactions(t, err)
	require.NoError(t, err)

	approved := models.InquiryStatusApproved
	remarks := "Site visit scheduled"
	updated, err := inquiries.UpdateTriage(ctx, inquiry.ID, actor, TriageUpdate{
		Status:  &approved,
		Remarks: &remarks,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InquiryStatusApproved, updated.Status)
	assert.Equal(t, remarks, updated.Remarks)

	// Counterpart reflects the same save.
	var view models.ClientInquiry
	require.NoError(t, env.db.Collection(clientInquiriesCollection).
		FindOne(ctx, bson.M{"_id": inquiry.ClientRecordID}).Decode(&view))
	assert.Equal(t, "Approved", view.StatusLabel)
	assert.Equal(t, models.ClientBucketPending, view.Bucket)

	// Status change appended exactly one unread notification.
	require.Len(t, view.Notifications, 1)
	assert.True(t, view.Notifications[0].Unread)
	assert.Equal(t, "Approved", view.Notifications[0].Status)

	// One audit entry covering both changed fields.
	var entries []models.AuditLogEntry
	cursor, err := env.db.Collection(auditLogsCollection).Find(ctx, bson.M{"target_id": inquiry.ID})
	require.NoError(t, err)
	require.NoError(t, cursor.All(ctx, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Updated Status, Updated Remarks", entries[0].Actions)
}

func TestInquiryRejectionMovesClientBucket(t *testing.T) {
	env, inquiries, _ := newInquiryFixture(t, "test_inquiry_reject")
	ctx := context.Background()

	client := seedAccount(t, env, "Ana Reyes", "ana@example.com", "secret-pass", models.RoleClient)
	actor := Actor{ID: "staff-1", Name: "Alice Santos", Role: models.RoleStaff}

	inquiry, err := inquiries.Submit(ctx, client, InquirySubmission{
		Classification: "Commercial",
		Description:    "Verification survey",
		Services:       []string{"Verification Survey"},
	})
	skipIfNoTransactions(t, err)
	require.NoError(t, err)

	rejected := models.InquiryStatusRejected
	_, err = inquiries.UpdateTriage(ctx, inquiry.ID, actor, TriageUpdate{Status: &rejected})
	require.NoError(t, err)

	var view models.ClientInquiry
	require.NoError(t, env.db.Collection(clientInquiriesCollection).
		FindOne(ctx, bson.M{"_id": inquiry.ClientRecordID}).Decode(&view))
	assert.Equal(t, models.ClientBucketRejected, view.Bucket)
	assert.Equal(t, "Rejected", view.StatusLabel)
}

func TestInquiryTriageAtomicWhenCounterpartMissing(t *testing.T) {
	env, inquiries, _ := newInquiryFixture(t, "test_inquiry_atomic")
	ctx := context.Background()

	client := seedAccount(t, env, "Ana Reyes", "ana@example.com", "secret-pass", models.RoleClient)
	actor := Actor{ID: "staff-1", Name: "Alice Santos", Role: models.RoleStaff}

	inquiry, err := inquiries.Submit(ctx, client, InquirySubmission{
		Classification: "Residential",
		Description:    "Relocation survey",
		Services:       []string{"Relocation Survey"},
	})
	skipIfNoTransactions(t, err)
	require.NoError(t, err)

	// Sabotage the pair: with the counterpart gone, the save must not land
	// anywhere.
	_, err = env.db.Collection(clientInquiriesCollection).
		DeleteOne(ctx, bson.M{"_id": inquiry.ClientRecordID})
	require.NoError(t, err)

	approved := models.InquiryStatusApproved
	_, err = inquiries.UpdateTriage(ctx, inquiry.ID, actor, TriageUpdate{Status: &approved})
	require.Error(t, err)

	var stored models.Inquiry
	require.NoError(t, env.db.Collection(inquiriesCollection).
		FindOne(ctx, bson.M{"_id": inquiry.ID}).Decode(&stored))
	assert.Equal(t, models.InquiryStatusPending, stored.Status)
}

func TestInquiryMarkNotificationsReadOwnership(t *testing.T) {
	env, inquiries, _ := newInquiryFixture(t, "test_inquiry_notif_read")
	ctx := context.Background()

	client := seedAccount(t, env, "Ana Reyes", "ana@example.com", "secret-pass", models.RoleClient)
	actor := Actor{ID: "staff-1", Name: "Alice Santos", Role: models.RoleStaff}

	inquiry, err := inquiries.Submit(ctx, client, InquirySubmission{
		Classification: "Residential",
		Description:    "Boundary dispute",
		Services:       []string{"Relocation Survey"},
	})
	skipIfNoTransactions(t, err)
	require.NoError(t, err)

	approved := models.InquiryStatusApproved
	_, err = inquiries.UpdateTriage(ctx, inquiry.ID, actor, TriageUpdate{Status: &approved})
	require.NoError(t, err)

	// Another client cannot clear this feed.
	err = inquiries.MarkNotificationsRead(ctx, inquiry.ClientRecordID, "someone-else")
	assert.ErrorIs(t, err, ErrInquiryNotFound)

	require.NoError(t, inquiries.MarkNotificationsRead(ctx, inquiry.ClientRecordID, client.ID))

	var view models.ClientInquiry
	require.NoError(t, env.db.Collection(clientInquiriesCollection).
		FindOne(ctx, bson.M{"_id": inquiry.ClientRecordID}).Decode(&view))
	require.Len(t, view.Notifications, 1)
	assert.False(t, view.Notifications[0].Unread)
}

func TestInquiryArchive(t *testing.T) {
	env, inquiries, _ := newInquiryFixture(t, "test_inquiry_archive")
	ctx := context.Background()

	client := seedAccount(t, env, "Ana Reyes", "ana@example.com", "secret-pass", models.RoleClient)
	actor := Actor{ID: "staff-1", Name: "Alice Santos", Role: models.RoleStaff}

	inquiry, err := inquiries.Submit(ctx, client, InquirySubmission{
		Classification: "Residential",
		Description:    "Old request",
		Services:       []string{"Verification Survey"},
	})
	skipIfNoTransactions(t, err)
	require.NoError(t, err)

	require.NoError(t, inquiries.Archive(ctx, inquiry.ID, actor))

	_, err = inquiries.FindByID(ctx, inquiry.ID)
	assert.ErrorIs(t, err, ErrInquiryNotFound)

	count, err := env.db.Collection(inquiriesArchiveCollection).
		CountDocuments(ctx, bson.M{"_id": inquiry.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
