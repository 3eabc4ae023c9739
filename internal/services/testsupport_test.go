package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/auth"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/config"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/db"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/utils"
)

type testEnv struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    *config.Config
}

func newTestEnv(t *testing.T, dbName string) *testEnv {
	t.Helper()
	client, database := utils.SetupTestDB(t, dbName,
		accountsCollection,
		inquiriesCollection,
		inquiriesArchiveCollection,
		clientInquiriesCollection,
		inProgressCollection,
		completedCollection,
		auditLogsCollection,
	)
	t.Cleanup(func() {
		client.Disconnect(context.Background())
	})
	return &testEnv{
		client: client,
		db:     database,
		cfg: &config.Config{
			EditLockStale:     20 * time.Minute,
			EditLockHeartbeat: 9 * time.Minute,
			EditLockSweep:     2 * time.Minute,
		},
	}
}

// skipIfNoTransactions skips the test when the backing mongod is a standalone
// instance without transaction support.
func skipIfNoTransactions(t *testing.T, err error) {
	t.Helper()
	if err != nil && db.IsTransactionUnsupported(err) {
		t.Skip("MongoDB transactions unavailable (standalone instance)")
	}
}

func seedAccount(t *testing.T, env *testEnv, name, email, password string, role models.Role) *models.Account {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	now := time.Now().UTC()
	account := &models.Account{
		ID:           utils.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = env.db.Collection(accountsCollection).InsertOne(context.Background(), account)
	require.NoError(t, err)
	return account
}

// seedProject inserts an in-progress project directly, bypassing the
// promotion flow, for tests that only exercise later stages.
func seedProject(t *testing.T, env *testEnv, client *models.Account, mutate func(*models.InProgressProject)) *models.InProgressProject {
	t.Helper()
	now := time.Now().UTC()
	project := &models.InProgressProject{
		ID:             utils.NewID(),
		InquiryID:      utils.NewID(),
		ClientID:       client.ID,
		Client:         client.Snapshot(),
		Classification: "Residential",
		Description:    "Boundary relocation survey",
		Services:       []string{"Relocation Survey"},
		ProjectFiles:   []models.Document{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if mutate != nil {
		mutate(project)
	}
	_, err := env.db.Collection(inProgressCollection).InsertOne(context.Background(), project)
	require.NoError(t, err)
	return project
}
