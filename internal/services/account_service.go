package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/auth"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/config"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/db"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/utils"
)

const accountsCollection = "accounts"

const passwordResetKeyPrefix = "pwreset:"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrReauthFailed       = errors.New("password confirmation failed")
	ErrResetTokenInvalid  = errors.New("password reset token is invalid or expired")
)

type AccountCreate struct {
	Name     string
	Email    string
	Phone    string
	Address  string
	Password string
	Role     models.Role
}

type IAccountService interface {
	Authenticate(ctx context.Context, email, password string) (*models.Account, error)
	// Reauthenticate confirms the actor's password for step-up operations
	// such as completing a project. It does not mint a new token.
	Reauthenticate(ctx context.Context, accountID, password string) error
	Create(ctx context.Context, form AccountCreate) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context, roles []models.Role) ([]models.Account, error)
	SetDisabled(ctx context.Context, id string, disabled bool) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type accountService struct {
	db      *mongo.Database
	rdb     *redis.Client
	cfg     *config.Config
	emailer EmailEnqueuer
}

func NewAccountService(database *mongo.Database, rdb *redis.Client, cfg *config.Config, emailer EmailEnqueuer) IAccountService {
	return &accountService{db: database, rdb: rdb, cfg: cfg, emailer: emailer}
}

func (s *accountService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if account.Disabled {
		return nil, ErrAccountDisabled
	}
	return account, nil
}

func (s *accountService) Reauthenticate(ctx context.Context, accountID, password string) error {
	account, err := s.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(password, account.PasswordHash) {
		return ErrReauthFailed
	}
	return nil
}

func (s *accountService) Create(ctx context.Context, form AccountCreate) (*models.Account, error) {
	existing, err := s.FindByEmail(ctx, form.Email)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &models.Account{
		Name:          form.Name,
		Email:         form.Email,
		Phone:         form.Phone,
		Address:       form.Address,
		PasswordHash:  hash,
		Role:          form.Role,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Regenerate the id on a duplicate key collision so the retry can land.
	operation := func() error {
		account.ID = utils.NewID()
		_, insertErr := s.db.Collection(accountsCollection).InsertOne(ctx, account)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) FindByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := s.db.Collection(accountsCollection).
		FindOne(ctx, bson.M{"_id": id, "deleted": bson.M{"$ne": true}}).
		Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (s *accountService) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := s.db.Collection(accountsCollection).
		FindOne(ctx, bson.M{"email": email, "deleted": bson.M{"$ne": true}}).
		Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (s *accountService) List(ctx context.Context, roles []models.Role) ([]models.Account, error) {
	filter := bson.M{"deleted": bson.M{"$ne": true}}
	if len(roles) > 0 {
		filter["role"] = bson.M{"$in": roles}
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := s.db.Collection(accountsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	accounts := []models.Account{}
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *accountService) SetDisabled(ctx context.Context, id string, disabled bool) error {
	res, err := s.db.Collection(accountsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "deleted": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"disabled": disabled, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *accountService) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Do not reveal whether the email is registered.
			return nil
		}
		return err
	}

	token := utils.NewID()
	if err := s.rdb.Set(ctx, passwordResetKeyPrefix+token, account.ID, s.cfg.PasswordResetTTL).Err(); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.PortalBaseURL, token)
	body := fmt.Sprintf("Hello %s,\n\nA password reset was requested for your account. "+
		"Follow this link to choose a new password:\n\n%s\n\n"+
		"If you did not request this, you can ignore this message.", account.Name, link)

	if s.emailer != nil {
		if err := s.emailer.EnqueueEmail(ctx, account.Email, "Password Reset", body); err != nil {
			log.Printf("ERROR: failed to enqueue password reset email for %s: %v", account.Email, err)
		}
	}
	return nil
}

func (s *accountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	key := passwordResetKeyPrefix + token
	accountID, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrResetTokenInvalid
		}
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	res, err := s.db.Collection(accountsCollection).UpdateOne(ctx,
		bson.M{"_id": accountID},
		bson.M{"$set": bson.M{"password": hash, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAccountNotFound
	}

	s.rdb.Del(ctx, key)
	return nil
}
