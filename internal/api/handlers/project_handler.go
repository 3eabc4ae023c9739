package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/api/middleware"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/services"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/storage"
)

// ProjectHandler serves the in-progress and completed stages, including the
// edit-lock endpoints the staff UI drives.
type ProjectHandler struct {
	projects services.IProjectService
	locks    services.IEditLockService
	storage  storage.IDocumentStorage
}

func NewProjectHandler(projects services.IProjectService, locks services.IEditLockService, docStorage storage.IDocumentStorage) *ProjectHandler {
	return &ProjectHandler{projects: projects, locks: locks, storage: docStorage}
}

// respondLockError maps lock failures to HTTP statuses shared by the lock
// endpoints.
func respondLockError(c *gin.Context, err error) {
	var held *services.LockHeldError
	switch {
	case errors.As(err, &held):
		c.JSON(http.StatusConflict, gin.H{
			"error":       "Record is being edited by " + held.HolderName,
			"held_by":     held.HolderID,
			"holder_name": held.HolderName,
		})
	case errors.Is(err, services.ErrNotLockHolder):
		c.JSON(http.StatusConflict, gin.H{"error": "Edit session expired, please re-open the record"})
	case errors.Is(err, services.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lock operation failed"})
	}
}

// Promote handles POST /v1/staff/inquiries/:id/promote
func (h *ProjectHandler) Promote(c *gin.Context) {
	project, err := h.projects.Promote(c.Request.Context(), c.Param("id"), middleware.ActorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInquiryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
		case errors.Is(err, services.ErrInquiryNotApproved):
			c.JSON(http.StatusConflict, gin.H{"error": "Inquiry must be approved before moving to in progress"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to promote inquiry"})
		}
		return
	}
	c.JSON(http.StatusCreated, project)
}

// List handles GET /v1/staff/projects
func (h *ProjectHandler) List(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	projects, err := h.projects.List(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

// Get handles GET /v1/staff/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		return
	}
	c.JSON(http.StatusOK, project)
}

// AcquireLock handles POST /v1/staff/projects/:id/lock
func (h *ProjectHandler) AcquireLock(c *gin.Context) {
	if err := h.locks.Acquire(c.Request.Context(), c.Param("id"), middleware.ActorFromContext(c)); err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lock acquired"})
}

// RenewLock handles POST /v1/staff/projects/:id/lock/renew. The staff UI
// calls this on a heartbeat while the edit form stays open.
func (h *ProjectHandler) RenewLock(c *gin.Context) {
	if err := h.locks.Renew(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextKeyAccountID)); err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lock renewed"})
}

// ReleaseLock handles DELETE /v1/staff/projects/:id/lock
func (h *ProjectHandler) ReleaseLock(c *gin.Context) {
	if err := h.locks.Release(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextKeyAccountID)); err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lock released"})
}

type projectEditRequest struct {
	Quotation      string     `json:"quotation"`
	DownPaid       bool       `json:"is_40_paid"`
	BalancePaid    bool       `json:"is_60_paid"`
	ScheduleDate   *time.Time `json:"schedule_date"`
	IsScheduleDone bool       `json:"is_schedule_done"`
	Team           string     `json:"team"`
	Encroachment   bool       `json:"encroachment"`
	NeedsResearch  bool       `json:"needs_research"`
	LayoutDone     bool       `json:"layout_done"`
	Remarks        string     `json:"remarks"`
}

// SaveEdit handles PUT /v1/staff/projects/:id
func (h *ProjectHandler) SaveEdit(c *gin.Context) {
	var req projectEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	project, err := h.projects.SaveEdit(c.Request.Context(), c.Param("id"),
		middleware.ActorFromContext(c), services.ProjectEdit{
			QuotationRaw:   req.Quotation,
			DownPaid:       req.DownPaid,
			BalancePaid:    req.BalancePaid,
			ScheduleDate:   req.ScheduleDate,
			IsScheduleDone: req.IsScheduleDone,
			Team:           req.Team,
			Encroachment:   req.Encroachment,
			NeedsResearch:  req.NeedsResearch,
			LayoutDone:     req.LayoutDone,
			Remarks:        req.Remarks,
		})
	if err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

type completeRequest struct {
	Password      string `json:"password" binding:"required"`
	ReferenceCode string `json:"reference_code" binding:"required"`
}

// Complete handles POST /v1/staff/projects/:id/complete
func (h *ProjectHandler) Complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	completed, err := h.projects.Complete(c.Request.Context(), c.Param("id"),
		middleware.ActorFromContext(c), req.Password, req.ReferenceCode)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReauthFailed):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Password confirmation failed"})
		case errors.Is(err, services.ErrProjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		case errors.Is(err, services.ErrPaymentIncomplete):
			c.JSON(http.StatusConflict, gin.H{"error": "Both the down payment and the balance must be settled"})
		case errors.Is(err, services.ErrNoProjectFiles):
			c.JSON(http.StatusConflict, gin.H{"error": "At least one project file must be uploaded"})
		case errors.Is(err, services.ErrScheduleNotDone):
			c.JSON(http.StatusConflict, gin.H{"error": "The survey schedule must be marked done"})
		case errors.Is(err, services.ErrReferenceCodeMissing):
			c.JSON(http.StatusBadRequest, gin.H{"error": "A reference code is required"})
		case errors.Is(err, services.ErrReferenceCodeTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Reference code is already in use"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete project"})
		}
		return
	}
	c.JSON(http.StatusCreated, completed)
}

type attachFileRequest struct {
	Name string `json:"name" binding:"required"`
	Size int64  `json:"size"`
	URL  string `json:"url" binding:"required"`
}

// AttachProjectFile handles POST /v1/staff/projects/:id/files, recording
// metadata for a PDF already uploaded via a presigned URL.
func (h *ProjectHandler) AttachProjectFile(c *gin.Context) {
	var req attachFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	err := h.projects.AddProjectFile(c.Request.Context(), c.Param("id"), models.Document{
		Name:       req.Name,
		Size:       req.Size,
		URL:        req.URL,
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to attach project file"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Project file attached"})
}

// RequestUploadURL handles POST /v1/staff/projects/:id/files/upload-url
func (h *ProjectHandler) RequestUploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	url, key, err := h.storage.GeneratePresignedPutURL(c.Request.Context(),
		c.GetString(middleware.ContextKeyAccountID), c.Param("id"), req.Filename)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": url, "key": key})
}

// ListCompleted handles GET /v1/staff/completed
func (h *ProjectHandler) ListCompleted(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	completed, err := h.projects.ListCompleted(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list completed projects"})
		return
	}
	c.JSON(http.StatusOK, completed)
}

// GetCompleted handles GET /v1/staff/completed/:id
func (h *ProjectHandler) GetCompleted(c *gin.Context) {
	completed, err := h.projects.FindCompletedByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrCompletedNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Completed project not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve completed project"})
		return
	}
	c.JSON(http.StatusOK, completed)
}

// MarkCompletedRead handles POST /v1/staff/completed/:id/read
func (h *ProjectHandler) MarkCompletedRead(c *gin.Context) {
	if err := h.projects.MarkCompletedRead(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrCompletedNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Completed project not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark completed project read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Completed project marked read"})
}
