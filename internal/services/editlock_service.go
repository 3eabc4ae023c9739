package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/config"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrNotLockHolder   = errors.New("record is not locked by this account")
)

// LockHeldError reports that another session holds the edit lock. The holder
// name is surfaced to the user so they know who to ask.
type LockHeldError struct {
	HolderID   string
	HolderName string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("record is being edited by %s", e.HolderName)
}

// IEditLockService manages the advisory edit lock on in-progress projects.
// Acquire and Renew are single compare-and-swap updates so two sessions
// racing for the same record can never both win.
type IEditLockService interface {
	Acquire(ctx context.Context, projectID string, actor Actor) error
	Renew(ctx context.Context, projectID, actorID string) error
	Release(ctx context.Context, projectID, actorID string) error
	// Sweep clears every lock older than the staleness window. Returns the
	// number of locks released.
	Sweep(ctx context.Context) (int64, error)
}

type editLockService struct {
	db  *mongo.Database
	cfg *config.Config
}

func NewEditLockService(db *mongo.Database, cfg *config.Config) IEditLockService {
	return &editLockService{db: db, cfg: cfg}
}

var unsetLockFields = bson.M{
	"being_edited_by":      "",
	"being_edited_by_name": "",
	"editing_started_at":   "",
}

func (s *editLockService) Acquire(ctx context.Context, projectID string, actor Actor) error {
	now := time.Now().UTC()
	staleCutoff := now.Add(-s.cfg.EditLockStale)

	// Lock is free, already ours (re-entry after a page reload), or stale.
	filter := bson.M{
		"_id": projectID,
		"$or": bson.A{
			bson.M{"being_edited_by": bson.M{"$exists": false}},
			bson.M{"being_edited_by": ""},
			bson.M{"being_edited_by": actor.ID},
			bson.M{"editing_started_at": bson.M{"$lt": staleCutoff}},
		},
	}
	update := bson.M{"$set": bson.M{
		"being_edited_by":      actor.ID,
		"being_edited_by_name": actor.Name,
		"editing_started_at":   now,
	}}

	res, err := s.db.Collection(inProgressCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// CAS lost: either the record is gone or a live lock is in the way.
	var project models.InProgressProject
	err = s.db.Collection(inProgressCollection).
		FindOne(ctx, bson.M{"_id": projectID}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrProjectNotFound
		}
		return err
	}
	return &LockHeldError{HolderID: project.BeingEditedBy, HolderName: project.BeingEditedByName}
}

func (s *editLockService) Renew(ctx context.Context, projectID, actorID string) error {
	res, err := s.db.Collection(inProgressCollection).UpdateOne(ctx,
		bson.M{"_id": projectID, "being_edited_by": actorID},
		bson.M{"$set": bson.M{"editing_started_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// The lock was swept or taken over; the editor must re-acquire.
		return ErrNotLockHolder
	}
	return nil
}

func (s *editLockService) Release(ctx context.Context, projectID, actorID string) error {
	res, err := s.db.Collection(inProgressCollection).UpdateOne(ctx,
		bson.M{"_id": projectID, "being_edited_by": actorID},
		bson.M{"$unset": unsetLockFields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Releasing a lock we no longer hold is a no-op, but a missing
		// record is still worth reporting.
		count, err := s.db.Collection(inProgressCollection).
			CountDocuments(ctx, bson.M{"_id": projectID})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrProjectNotFound
		}
	}
	return nil
}

func (s *editLockService) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.EditLockStale)
	res, err := s.db.Collection(inProgressCollection).UpdateMany(ctx,
		bson.M{"editing_started_at": bson.M{"$lt": cutoff}},
		bson.M{"$unset": unsetLockFields})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
