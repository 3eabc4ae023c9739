package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/db"
)

// Ref addresses one document by collection and id.
type Ref struct {
	Collection string
	ID         string
}

// IDualWriteCoordinator applies an update to a canonical record and its
// denormalized counterpart in one transaction. Either both documents reflect
// the change or neither does; field mapping between the two schemas is the
// caller's job.
type IDualWriteCoordinator interface {
	Apply(ctx context.Context, canonical Ref, canonicalUpdate bson.M, counterpart *Ref, counterpartUpdate bson.M) error
}

type dualWriteCoordinator struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewDualWriteCoordinator(client *mongo.Client, database *mongo.Database) IDualWriteCoordinator {
	return &dualWriteCoordinator{client: client, db: database}
}

func (c *dualWriteCoordinator) Apply(ctx context.Context, canonical Ref, canonicalUpdate bson.M, counterpart *Ref, counterpartUpdate bson.M) error {
	if counterpart == nil {
		// Single location, no transaction needed.
		res, err := c.db.Collection(canonical.Collection).
			UpdateByID(ctx, canonical.ID, canonicalUpdate)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("record %s not found in %s", canonical.ID, canonical.Collection)
		}
		return nil
	}

	return db.WithTransaction(ctx, c.client, func(sc mongo.SessionContext) error {
		res, err := c.db.Collection(canonical.Collection).
			UpdateByID(sc, canonical.ID, canonicalUpdate)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("record %s not found in %s", canonical.ID, canonical.Collection)
		}

		res, err = c.db.Collection(counterpart.Collection).
			UpdateByID(sc, counterpart.ID, counterpartUpdate)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			// The counterpart is gone; abort so the two views cannot drift.
			return fmt.Errorf("counterpart %s not found in %s", counterpart.ID, counterpart.Collection)
		}
		return nil
	})
}
