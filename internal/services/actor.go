package services

import (
	"context"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
)

// Actor is the authenticated identity performing an operation, as carried by
// the request token. Authorization decisions re-check the stored account where
// it matters (step-up re-auth, audit role resolution).
type Actor struct {
	ID   string
	Name string
	Role models.Role
}

// EmailEnqueuer hands an email off to the background worker. Defined here so
// services do not import the tasks package.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}
