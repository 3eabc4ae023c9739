package handlers_test

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/api/middleware"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/audit"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/services"
)

// --- Mocks ---

// MockAccountService
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}
func (m *MockAccountService) Reauthenticate(ctx context.Context, accountID, password string) error {
	args := m.Called(ctx, accountID, password)
	return args.Error(0)
}
func (m *MockAccountService) Create(ctx context.Context, form services.AccountCreate) (*models.Account, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}
func (m *MockAccountService) FindByID(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}
func (m *MockAccountService) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}
func (m *MockAccountService) List(ctx context.Context, roles []models.Role) ([]models.Account, error) {
	args := m.Called(ctx, roles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Account), args.Error(1)
}
func (m *MockAccountService) SetDisabled(ctx context.Context, id string, disabled bool) error {
	args := m.Called(ctx, id, disabled)
	return args.Error(0)
}
func (m *MockAccountService) RequestPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}
func (m *MockAccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

// MockInquiryService
type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) Submit(ctx context.Context, client *models.Account, form services.InquirySubmission) (*models.Inquiry, error) {
	args := m.Called(ctx, client, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) FindByID(ctx context.Context, id string) (*models.Inquiry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) List(ctx context.Context, status *models.InquiryStatus, limit int64) ([]models.Inquiry, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) ListForClient(ctx context.Context, clientID string, bucket *models.ClientBucket) ([]models.ClientInquiry, error) {
	args := m.Called(ctx, clientID, bucket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ClientInquiry), args.Error(1)
}
func (m *MockInquiryService) UpdateTriage(ctx context.Context, id string, actor services.Actor, changes services.TriageUpdate) (*models.Inquiry, error) {
	args := m.Called(ctx, id, actor, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) Archive(ctx context.Context, id string, actor services.Actor) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}
func (m *MockInquiryService) MarkRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockInquiryService) MarkNotificationsRead(ctx context.Context, clientRecordID, clientID string) error {
	args := m.Called(ctx, clientRecordID, clientID)
	return args.Error(0)
}
func (m *MockInquiryService) AddDocument(ctx context.Context, id string, doc models.Document) error {
	args := m.Called(ctx, id, doc)
	return args.Error(0)
}

// MockProjectService
type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) Promote(ctx context.Context, inquiryID string, actor services.Actor) (*models.InProgressProject, error) {
	args := m.Called(ctx, inquiryID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InProgressProject), args.Error(1)
}
func (m *MockProjectService) FindByID(ctx context.Context, id string) (*models.InProgressProject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InProgressProject), args.Error(1)
}
func (m *MockProjectService) List(ctx context.Context, limit int64) ([]models.InProgressProject, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InProgressProject), args.Error(1)
}
func (m *MockProjectService) SaveEdit(ctx context.Context, projectID string, actor services.Actor, form services.ProjectEdit) (*models.InProgressProject, error) {
	args := m.Called(ctx, projectID, actor, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InProgressProject), args.Error(1)
}
func (m *MockProjectService) Complete(ctx context.Context, projectID string, actor services.Actor, password, referenceCode string) (*models.CompletedProject, error) {
	args := m.Called(ctx, projectID, actor, password, referenceCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CompletedProject), args.Error(1)
}
func (m *MockProjectService) AddProjectFile(ctx context.Context, projectID string, doc models.Document) error {
	args := m.Called(ctx, projectID, doc)
	return args.Error(0)
}
func (m *MockProjectService) FindCompletedByID(ctx context.Context, id string) (*models.CompletedProject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CompletedProject), args.Error(1)
}
func (m *MockProjectService) ListCompleted(ctx context.Context, limit int64) ([]models.CompletedProject, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CompletedProject), args.Error(1)
}
func (m *MockProjectService) MarkCompletedRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEditLockService
type MockEditLockService struct {
	mock.Mock
}

func (m *MockEditLockService) Acquire(ctx context.Context, projectID string, actor services.Actor) error {
	args := m.Called(ctx, projectID, actor)
	return args.Error(0)
}
func (m *MockEditLockService) Renew(ctx context.Context, projectID, actorID string) error {
	args := m.Called(ctx, projectID, actorID)
	return args.Error(0)
}
func (m *MockEditLockService) Release(ctx context.Context, projectID, actorID string) error {
	args := m.Called(ctx, projectID, actorID)
	return args.Error(0)
}
func (m *MockEditLockService) Sweep(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuditService
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Commit(ctx context.Context, actor services.Actor, batch *audit.Batch) {
	m.Called(ctx, actor, batch)
}
func (m *MockAuditService) List(ctx context.Context, category *models.AuditCategory, limit int64) ([]models.AuditLogEntry, error) {
	args := m.Called(ctx, category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditLogEntry), args.Error(1)
}

// MockDocumentStorage
type MockDocumentStorage struct {
	mock.Mock
}

func (m *MockDocumentStorage) GeneratePresignedPutURL(ctx context.Context, ownerID, recordID, filename string) (string, string, error) {
	args := m.Called(ctx, ownerID, recordID, filename)
	return args.String(0), args.String(1), args.Error(2)
}
func (m *MockDocumentStorage) GeneratePresignedGetURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// withIdentity injects the context values AuthMiddleware would set, so
// handler tests can skip token generation.
func withIdentity(id, name string, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyAccountID, id)
		c.Set(middleware.ContextKeyAccountName, name)
		c.Set(middleware.ContextKeyRole, role)
		c.Next()
	}
}

// testActor mirrors withIdentity for use in mock expectations.
func testActor(id, name string, role models.Role) services.Actor {
	return services.Actor{ID: id, Name: name, Role: role}
}
