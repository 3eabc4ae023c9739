package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/audit"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/db"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/utils"
)

const (
	inquiriesCollection        = "inquiries"
	inquiriesArchiveCollection = "inquiries_archive"
	clientInquiriesCollection  = "client_inquiries"
)

var (
	ErrInquiryNotFound = errors.New("inquiry not found")
	ErrInvalidStatus   = errors.New("invalid inquiry status")
)

// InquirySubmission is the client-facing intake form.
type InquirySubmission struct {
	Classification string
	Description    string
	Services       []string
	Documents      []models.Document
}

// TriageUpdate carries the staff-editable inquiry fields. Nil pointers mean
// "unchanged".
type TriageUpdate struct {
	Status   *models.InquiryStatus
	Remarks  *string
	Services []string
}

type IInquiryService interface {
	// Submit creates the canonical inquiry and its per-client counterpart
	// together; a partial pair is never visible.
	Submit(ctx context.Context, client *models.Account, form InquirySubmission) (*models.Inquiry, error)
	FindByID(ctx context.Context, id string) (*models.Inquiry, error)
	List(ctx context.Context, status *models.InquiryStatus, limit int64) ([]models.Inquiry, error)
	ListForClient(ctx context.Context, clientID string, bucket *models.ClientBucket) ([]models.ClientInquiry, error)
	// UpdateTriage applies staff changes to both record locations, notifies
	// the client on a status change, and writes one audit entry for the save.
	UpdateTriage(ctx context.Context, id string, actor Actor, changes TriageUpdate) (*models.Inquiry, error)
	// Archive moves a terminally-dispositioned inquiry out of the active
	// collection while keeping it queryable for audits.
	Archive(ctx context.Context, id string, actor Actor) error
	MarkRead(ctx context.Context, id string) error
	MarkNotificationsRead(ctx context.Context, clientRecordID, clientID string) error
	AddDocument(ctx context.Context, id string, doc models.Document) error
}

type inquiryService struct {
	client  *mongo.Client
	db      *mongo.Database
	dual    IDualWriteCoordinator
	audits  IAuditService
	emailer EmailEnqueuer
}

func NewInquiryService(client *mongo.Client, database *mongo.Database, dual IDualWriteCoordinator, audits IAuditService, emailer EmailEnqueuer) IInquiryService {
	return &inquiryService{client: client, db: database, dual: dual, audits: audits, emailer: emailer}
}

func (s *inquiryService) Submit(ctx context.Context, client *models.Account, form InquirySubmission) (*models.Inquiry, error) {
	now := time.Now().UTC()
	documents := form.Documents
	if documents == nil {
		documents = []models.Document{}
	}

	inquiry := &models.Inquiry{
		ClientID:       client.ID,
		Client:         client.Snapshot(),
		Classification: form.Classification,
		Description:    form.Description,
		Services:       form.Services,
		Status:         models.InquiryStatusPending,
		Documents:      documents,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}
	view := &models.ClientInquiry{
		ClientID:       client.ID,
		Bucket:         models.ClientBucketPending,
		StatusLabel:    models.InquiryStatusPending.Display(),
		Classification: form.Classification,
		Description:    form.Description,
		Services:       form.Services,
		Documents:      documents,
		Notifications:  []models.Notification{},
		SubmittedAt:    now,
		UpdatedAt:      now,
	}

	// Ids are assigned inside the retry so a duplicate key collision gets a
	// fresh pair on the next attempt.
	operation := func() error {
		inquiry.ID = utils.NewID()
		inquiry.ClientRecordID = utils.NewID()
		view.ID = inquiry.ClientRecordID
		view.InquiryID = inquiry.ID
		return db.WithTransaction(ctx, s.client, func(sc mongo.SessionContext) error {
			if _, err := s.db.Collection(inquiriesCollection).InsertOne(sc, inquiry); err != nil {
				return err
			}
			_, err := s.db.Collection(clientInquiriesCollection).InsertOne(sc, view)
			return err
		})
	}
	if err := db.Try(operation); err != nil {
		return nil, err
	}
	return inquiry, nil
}

func (s *inquiryService) FindByID(ctx context.Context, id string) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := s.db.Collection(inquiriesCollection).
		FindOne(ctx, bson.M{"_id": id}).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInquiryNotFound
		}
		return nil, err
	}
	return &inquiry, nil
}

func (s *inquiryService) List(ctx context.Context, status *models.InquiryStatus, limit int64) ([]models.Inquiry, error) {
	filter := bson.M{}
	if status != nil {
		filter["status"] = *status
	}
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().SetSort(bson.M{"submitted_at": -1}).SetLimit(limit)
	cursor, err := s.db.Collection(inquiriesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	inquiries := []models.Inquiry{}
	if err := cursor.All(ctx, &inquiries); err != nil {
		return nil, err
	}
	return inquiries, nil
}

func (s *inquiryService) ListForClient(ctx context.Context, clientID string, bucket *models.ClientBucket) ([]models.ClientInquiry, error) {
	filter := bson.M{"client_id": clientID}
	if bucket != nil {
		filter["bucket"] = *bucket
	}

	opts := options.Find().SetSort(bson.M{"submitted_at": -1})
	cursor, err := s.db.Collection(clientInquiriesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.ClientInquiry{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *inquiryService) UpdateTriage(ctx context.Context, id string, actor Actor, changes TriageUpdate) (*models.Inquiry, error) {
	inquiry, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := audit.NewBatch(inquiry.ID, models.AuditCategoryInquiry, inquiry.Client.Name)
	canonicalSet := bson.M{}
	counterpartSet := bson.M{}
	counterpartUpdate := bson.M{}
	var notification *models.Notification

	if changes.Status != nil && *changes.Status != inquiry.Status {
		if !changes.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		newStatus := *changes.Status
		batch.Add("Updated Status", inquiry.Status.Display(), newStatus.Display())
		canonicalSet["status"] = newStatus
		counterpartSet["status_label"] = newStatus.Display()
		if newStatus == models.InquiryStatusRejected {
			counterpartSet["bucket"] = models.ClientBucketRejected
		}
		notification = &models.Notification{
			InquiryID: inquiry.ID,
			Status:    newStatus.Display(),
			Message:   statusChangeMessage(newStatus),
			Unread:    true,
			CreatedAt: now,
		}
	}
	if changes.Remarks != nil && *changes.Remarks != inquiry.Remarks {
		batch.Add("Updated Remarks", displayOrNone(inquiry.Remarks), displayOrNone(*changes.Remarks))
		canonicalSet["remarks"] = *changes.Remarks
	}
	if changes.Services != nil && utils.JoinList(changes.Services) != utils.JoinList(inquiry.Services) {
		batch.Add("Updated Services", utils.JoinList(inquiry.Services), utils.JoinList(changes.Services))
		canonicalSet["services"] = changes.Services
		counterpartSet["services"] = changes.Services
	}

	if batch.Empty() {
		return inquiry, nil
	}

	canonicalSet["updated_at"] = now
	counterpartSet["updated_at"] = now
	counterpartUpdate["$set"] = counterpartSet
	if notification != nil {
		counterpartUpdate["$push"] = bson.M{"notifications": *notification}
	}

	err = s.dual.Apply(ctx,
		Ref{Collection: inquiriesCollection, ID: inquiry.ID},
		bson.M{"$set": canonicalSet},
		&Ref{Collection: clientInquiriesCollection, ID: inquiry.ClientRecordID},
		counterpartUpdate)
	if err != nil {
		return nil, err
	}

	s.audits.Commit(ctx, actor, batch)

	if notification != nil && s.emailer != nil {
		subject := fmt.Sprintf("Inquiry status update: %s", notification.Status)
		if err := s.emailer.EnqueueEmail(ctx, inquiry.Client.Email, subject, notification.Message); err != nil {
			log.Printf("ERROR: failed to enqueue status email for inquiry %s: %v", inquiry.ID, err)
		}
	}

	return s.FindByID(ctx, id)
}

func (s *inquiryService) Archive(ctx context.Context, id string, actor Actor) error {
	inquiry, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	err = db.WithTransaction(ctx, s.client, func(sc mongo.SessionContext) error {
		if _, err := s.db.Collection(inquiriesArchiveCollection).InsertOne(sc, inquiry); err != nil {
			return err
		}
		_, err := s.db.Collection(inquiriesCollection).DeleteOne(sc, bson.M{"_id": id})
		return err
	})
	if err != nil {
		return err
	}

	batch := audit.NewBatch(inquiry.ID, models.AuditCategoryInquiry, inquiry.Client.Name)
	batch.Add("Archived Inquiry", inquiry.Status.Display(), "Archived")
	s.audits.Commit(ctx, actor, batch)
	return nil
}

func (s *inquiryService) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.Collection(inquiriesCollection).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInquiryNotFound
	}
	return nil
}

func (s *inquiryService) MarkNotificationsRead(ctx context.Context, clientRecordID, clientID string) error {
	// client_id in the filter keeps one client from clearing another's feed.
	res, err := s.db.Collection(clientInquiriesCollection).UpdateOne(ctx,
		bson.M{"_id": clientRecordID, "client_id": clientID},
		bson.M{"$set": bson.M{"notifications.$[].unread": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInquiryNotFound
	}
	return nil
}

func (s *inquiryService) AddDocument(ctx context.Context, id string, doc models.Document) error {
	inquiry, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	update := bson.M{
		"$push": bson.M{"documents": doc},
		"$set":  bson.M{"updated_at": now},
	}
	return s.dual.Apply(ctx,
		Ref{Collection: inquiriesCollection, ID: inquiry.ID}, update,
		&Ref{Collection: clientInquiriesCollection, ID: inquiry.ClientRecordID}, update)
}

func statusChangeMessage(status models.InquiryStatus) string {
	switch status {
	case models.InquiryStatusApproved:
		return "Your inquiry has been approved. Our team will reach out to schedule the next steps."
	case models.InquiryStatusRejected:
		return "Your inquiry has been rejected. Please review the remarks or contact our office for details."
	case models.InquiryStatusUpdateRequested:
		return "Your inquiry needs additional information. Please review and update your submission."
	default:
		return fmt.Sprintf("Your inquiry status is now %s.", status.Display())
	}
}

func displayOrNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
