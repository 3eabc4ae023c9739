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
	inProgressCollection = "in_progress"
	completedCollection  = "completed"
)

var (
	ErrInquiryNotApproved   = errors.New("inquiry must be approved before it can move to in progress")
	ErrPaymentIncomplete    = errors.New("both the down payment and the balance must be settled")
	ErrNoProjectFiles       = errors.New("at least one project file must be uploaded")
	ErrScheduleNotDone      = errors.New("the survey schedule must be marked done")
	ErrReferenceCodeMissing = errors.New("a reference code is required")
	ErrReferenceCodeTaken   = errors.New("reference code is already in use")
	ErrCompletedNotFound    = errors.New("completed project not found")
)

// ProjectEdit carries every staff-editable field of an in-progress project.
// The form posts the full field set; unchanged values diff to nothing.
type ProjectEdit struct {
	QuotationRaw   string
	DownPaid       bool
	BalancePaid    bool
	ScheduleDate   *time.Time
	IsScheduleDone bool
	Team           string
	Encroachment   bool
	NeedsResearch  bool
	LayoutDone     bool
	Remarks        string
}

type IProjectService interface {
	// Promote moves an approved inquiry into the in-progress stage: the
	// project record is created, the inquiry is archived, and the client is
	// notified, all in one transaction.
	Promote(ctx context.Context, inquiryID string, actor Actor) (*models.InProgressProject, error)
	FindByID(ctx context.Context, id string) (*models.InProgressProject, error)
	List(ctx context.Context, limit int64) ([]models.InProgressProject, error)
	// SaveEdit persists an edit session: it verifies the actor holds the
	// edit lock, dual-writes the changed fields, releases the lock in the
	// same update, and commits one audit entry for the session.
	SaveEdit(ctx context.Context, projectID string, actor Actor, form ProjectEdit) (*models.InProgressProject, error)
	// Complete moves a project to the terminal stage after re-checking the
	// actor's password and the completion preconditions.
	Complete(ctx context.Context, projectID string, actor Actor, password, referenceCode string) (*models.CompletedProject, error)
	AddProjectFile(ctx context.Context, projectID string, doc models.Document) error
	FindCompletedByID(ctx context.Context, id string) (*models.CompletedProject, error)
	ListCompleted(ctx context.Context, limit int64) ([]models.CompletedProject, error)
	MarkCompletedRead(ctx context.Context, id string) error
}

type projectService struct {
	client    *mongo.Client
	db        *mongo.Database
	accounts  IAccountService
	inquiries IInquiryService
	audits    IAuditService
	dual      IDualWriteCoordinator
	emailer   EmailEnqueuer
}

func NewProjectService(client *mongo.Client, database *mongo.Database, accounts IAccountService, inquiries IInquiryService, audits IAuditService, dual IDualWriteCoordinator, emailer EmailEnqueuer) IProjectService {
	return &projectService{
		client:    client,
		db:        database,
		accounts:  accounts,
		inquiries: inquiries,
		audits:    audits,
		dual:      dual,
		emailer:   emailer,
	}
}

func (s *projectService) Promote(ctx context.Context, inquiryID string, actor Actor) (*models.InProgressProject, error) {
	inquiry, err := s.inquiries.FindByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.Status != models.InquiryStatusApproved {
		return nil, ErrInquiryNotApproved
	}

	now := time.Now().UTC()
	project := &models.InProgressProject{
		ID:             utils.NewID(),
		InquiryID:      inquiry.ID,
		ClientID:       inquiry.ClientID,
		ClientRecordID: inquiry.ClientRecordID,
		Client:         inquiry.Client,
		Classification: inquiry.Classification,
		Description:    inquiry.Description,
		Services:       inquiry.Services,
		ProjectFiles:   []models.Document{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	notification := models.Notification{
		InquiryID: inquiry.ID,
		Status:    "In Progress",
		Message:   "Your inquiry has been accepted and is now in progress.",
		Unread:    true,
		CreatedAt: now,
	}

	err = db.WithTransaction(ctx, s.client, func(sc mongo.SessionContext) error {
		if _, err := s.db.Collection(inProgressCollection).InsertOne(sc, project); err != nil {
			return err
		}
		if _, err := s.db.Collection(inquiriesArchiveCollection).InsertOne(sc, inquiry); err != nil {
			return err
		}
		if _, err := s.db.Collection(inquiriesCollection).DeleteOne(sc, bson.M{"_id": inquiry.ID}); err != nil {
			return err
		}
		res, err := s.db.Collection(clientInquiriesCollection).UpdateByID(sc, inquiry.ClientRecordID,
			bson.M{
				"$set":  bson.M{"status_label": "In Progress", "updated_at": now},
				"$push": bson.M{"notifications": notification},
			})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("client record %s not found for inquiry %s", inquiry.ClientRecordID, inquiry.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	batch := audit.NewBatch(project.ID, models.AuditCategoryInProgress, project.Client.Name)
	batch.Add("Moved to In Progress", inquiry.Status.Display(), "In Progress")
	s.audits.Commit(ctx, actor, batch)

	return project, nil
}

func (s *projectService) FindByID(ctx context.Context, id string) (*models.InProgressProject, error) {
	var project models.InProgressProject
	err := s.db.Collection(inProgressCollection).
		FindOne(ctx, bson.M{"_id": id}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (s *projectService) List(ctx context.Context, limit int64) ([]models.InProgressProject, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := s.db.Collection(inProgressCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	projects := []models.InProgressProject{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *projectService) SaveEdit(ctx context.Context, projectID string, actor Actor, form ProjectEdit) (*models.InProgressProject, error) {
	project, err := s.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.BeingEditedBy != actor.ID {
		if project.Locked() {
			return nil, &LockHeldError{HolderID: project.BeingEditedBy, HolderName: project.BeingEditedByName}
		}
		return nil, ErrNotLockHolder
	}

	now := time.Now().UTC()
	batch := audit.NewBatch(project.ID, models.AuditCategoryInProgress, project.Client.Name)
	set := bson.M{}
	counterpartSet := bson.M{}

	quotation := utils.NormalizeQuotation(form.QuotationRaw)
	if quotation != project.Quotation {
		batch.Add("Updated Quotation", utils.FormatGrouped(project.Quotation), utils.FormatGrouped(quotation))
		set["quotation"] = quotation
		counterpartSet["quotation"] = quotation
	}
	if form.DownPaid != project.DownPaid {
		batch.Add("Updated 40% Down Payment", utils.FormatYesNo(project.DownPaid), utils.FormatYesNo(form.DownPaid))
		set["is_40_paid"] = form.DownPaid
	}
	if form.BalancePaid != project.BalancePaid {
		batch.Add("Updated 60% Balance", utils.FormatYesNo(project.BalancePaid), utils.FormatYesNo(form.BalancePaid))
		set["is_60_paid"] = form.BalancePaid
	}
	if !sameDate(form.ScheduleDate, project.ScheduleDate) {
		batch.Add("Updated Schedule Date", formatDate(project.ScheduleDate), formatDate(form.ScheduleDate))
		set["schedule_date"] = form.ScheduleDate
		counterpartSet["schedule_date"] = form.ScheduleDate
	}
	if form.IsScheduleDone != project.IsScheduleDone {
		batch.Add("Updated Schedule Completion", utils.FormatYesNo(project.IsScheduleDone), utils.FormatYesNo(form.IsScheduleDone))
		set["is_schedule_done"] = form.IsScheduleDone
		counterpartSet["is_schedule_done"] = form.IsScheduleDone
	}
	if form.Team != project.Team {
		batch.Add("Updated Assigned Team", displayOrNone(project.Team), displayOrNone(form.Team))
		set["team"] = form.Team
	}
	if form.Encroachment != project.Encroachment {
		batch.Add("Updated Encroachment Finding", utils.FormatYesNo(project.Encroachment), utils.FormatYesNo(form.Encroachment))
		set["encroachment"] = form.Encroachment
	}
	if form.NeedsResearch != project.NeedsResearch {
		batch.Add("Updated Research Finding", utils.FormatYesNo(project.NeedsResearch), utils.FormatYesNo(form.NeedsResearch))
		set["needs_research"] = form.NeedsResearch
	}
	if form.LayoutDone != project.LayoutDone {
		batch.Add("Updated Layout Status", utils.FormatYesNo(project.LayoutDone), utils.FormatYesNo(form.LayoutDone))
		set["layout_done"] = form.LayoutDone
	}
	if form.Remarks != project.Remarks {
		batch.Add("Updated Remarks", displayOrNone(project.Remarks), displayOrNone(form.Remarks))
		set["remarks"] = form.Remarks
	}

	// The save always ends the edit session, even when nothing changed.
	canonicalUpdate := bson.M{"$unset": unsetLockFields}
	if !batch.Empty() {
		set["updated_at"] = now
		canonicalUpdate["$set"] = set
	}

	if batch.Empty() || len(counterpartSet) == 0 {
		if err := s.dual.Apply(ctx,
			Ref{Collection: inProgressCollection, ID: project.ID}, canonicalUpdate,
			nil, nil); err != nil {
			return nil, err
		}
	} else {
		counterpartSet["updated_at"] = now
		if err := s.dual.Apply(ctx,
			Ref{Collection: inProgressCollection, ID: project.ID}, canonicalUpdate,
			&Ref{Collection: clientInquiriesCollection, ID: project.ClientRecordID},
			bson.M{"$set": counterpartSet}); err != nil {
			return nil, err
		}
	}

	s.audits.Commit(ctx, actor, batch)
	return s.FindByID(ctx, projectID)
}

func (s *projectService) Complete(ctx context.Context, projectID string, actor Actor, password, referenceCode string) (*models.CompletedProject, error) {
	// Step-up authentication: moving a record to the terminal stage requires
	// the actor's password again, not just a live token.
	if err := s.accounts.Reauthenticate(ctx, actor.ID, password); err != nil {
		return nil, err
	}

	project, err := s.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !project.DownPaid || !project.BalancePaid {
		return nil, ErrPaymentIncomplete
	}
	if len(project.ProjectFiles) == 0 {
		return nil, ErrNoProjectFiles
	}
	if !project.IsScheduleDone {
		return nil, ErrScheduleNotDone
	}
	if referenceCode == "" {
		return nil, ErrReferenceCodeMissing
	}

	// TODO: back this check with a unique index on reference_code so two
	// concurrent completions cannot both pass.
	count, err := s.db.Collection(completedCollection).
		CountDocuments(ctx, bson.M{"reference_code": referenceCode})
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrReferenceCodeTaken
	}

	now := time.Now().UTC()
	completed := &models.CompletedProject{
		ID:             utils.NewID(),
		ProjectID:      project.ID,
		InquiryID:      project.InquiryID,
		ClientID:       project.ClientID,
		Client:         project.Client,
		Classification: project.Classification,
		Description:    project.Description,
		Services:       project.Services,
		Quotation:      project.Quotation,
		Team:           project.Team,
		Encroachment:   project.Encroachment,
		NeedsResearch:  project.NeedsResearch,
		LayoutDone:     project.LayoutDone,
		Remarks:        project.Remarks,
		ProjectFiles:   project.ProjectFiles,
		ReferenceCode:  referenceCode,
		CompletedAt:    now,
		CreatedAt:      now,
	}
	notification := models.Notification{
		InquiryID: project.InquiryID,
		Status:    "Completed",
		Message:   fmt.Sprintf("Your project has been completed. Reference code: %s.", referenceCode),
		Unread:    true,
		CreatedAt: now,
	}

	err = db.WithTransaction(ctx, s.client, func(sc mongo.SessionContext) error {
		if _, err := s.db.Collection(completedCollection).InsertOne(sc, completed); err != nil {
			return err
		}
		res, err := s.db.Collection(clientInquiriesCollection).UpdateByID(sc, project.ClientRecordID,
			bson.M{
				"$set": bson.M{
					"status_label": "Completed",
					"bucket":       models.ClientBucketCompleted,
					"updated_at":   now,
				},
				"$push": bson.M{"notifications": notification},
			})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("client record %s not found for project %s", project.ClientRecordID, project.ID)
		}
		_, err = s.db.Collection(inProgressCollection).DeleteOne(sc, bson.M{"_id": project.ID})
		return err
	})
	if err != nil {
		return nil, err
	}

	batch := audit.NewBatch(completed.ID, models.AuditCategoryCompleted, completed.Client.Name)
	batch.Add("Moved to Completed", "In Progress", fmt.Sprintf("Completed (%s)", referenceCode))
	s.audits.Commit(ctx, actor, batch)

	if s.emailer != nil {
		if err := s.emailer.EnqueueEmail(ctx, completed.Client.Email, "Project completed", notification.Message); err != nil {
			log.Printf("ERROR: failed to enqueue completion email for project %s: %v", project.ID, err)
		}
	}

	return completed, nil
}

func (s *projectService) AddProjectFile(ctx context.Context, projectID string, doc models.Document) error {
	res, err := s.db.Collection(inProgressCollection).UpdateByID(ctx, projectID,
		bson.M{
			"$push": bson.M{"project_files": doc},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *projectService) FindCompletedByID(ctx context.Context, id string) (*models.CompletedProject, error) {
	var completed models.CompletedProject
	err := s.db.Collection(completedCollection).
		FindOne(ctx, bson.M{"_id": id}).Decode(&completed)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCompletedNotFound
		}
		return nil, err
	}
	return &completed, nil
}

func (s *projectService) ListCompleted(ctx context.Context, limit int64) ([]models.CompletedProject, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.M{"completed_at": -1}).SetLimit(limit)
	cursor, err := s.db.Collection(completedCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	completed := []models.CompletedProject{}
	if err := cursor.All(ctx, &completed); err != nil {
		return nil, err
	}
	return completed, nil
}

func (s *projectService) MarkCompletedRead(ctx context.Context, id string) error {
	res, err := s.db.Collection(completedCollection).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCompletedNotFound
	}
	return nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "None"
	}
	return t.Format("2006-01-02")
}
