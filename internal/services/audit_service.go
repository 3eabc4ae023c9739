package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/audit"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/utils"
)

const auditLogsCollection = "audit_logs"

type IAuditService interface {
	// Commit writes one audit entry for the whole batch. A failed write is
	// logged but never propagated: an audit problem must not roll back the
	// business change it describes.
	Commit(ctx context.Context, actor Actor, batch *audit.Batch)
	List(ctx context.Context, category *models.AuditCategory, limit int64) ([]models.AuditLogEntry, error)
}

type auditService struct {
	db *mongo.Database
}

func NewAuditService(db *mongo.Database) IAuditService {
	return &auditService{db: db}
}

func (s *auditService) Commit(ctx context.Context, actor Actor, batch *audit.Batch) {
	if batch == nil || batch.Empty() {
		return
	}

	// The token carries the role the actor logged in with; prefer the stored
	// account in case the role changed since.
	roleDisplay := actor.Role.Display()
	var account models.Account
	err := s.db.Collection(accountsCollection).
		FindOne(ctx, bson.M{"_id": actor.ID}).Decode(&account)
	if err == nil {
		roleDisplay = account.Role.Display()
	}

	oldJSON, newJSON, err := batch.Serialize()
	if err != nil {
		log.Printf("ERROR: failed to serialize audit batch for %s: %v", batch.TargetID, err)
		return
	}

	entry := models.AuditLogEntry{
		ID:        utils.NewID(),
		TargetID:  batch.TargetID,
		Category:  batch.Category,
		Subject:   batch.Subject,
		Actions:   batch.Actions(),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: roleDisplay,
		OldValues: oldJSON,
		NewValues: newJSON,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.db.Collection(auditLogsCollection).InsertOne(ctx, entry); err != nil {
		log.Printf("ERROR: failed to write audit entry for %s (%s): %v", batch.TargetID, batch.Actions(), err)
	}
}

func (s *auditService) List(ctx context.Context, category *models.AuditCategory, limit int64) ([]models.AuditLogEntry, error) {
	filter := bson.M{}
	if category != nil {
		filter["category"] = *category
	}
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	cursor, err := s.db.Collection(auditLogsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []models.AuditLogEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
