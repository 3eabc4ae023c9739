package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/api/middleware"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/services"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/storage"
)

// InquiryHandler serves both sides of the inquiry pipeline: client intake and
// staff triage.
type InquiryHandler struct {
	accounts  services.IAccountService
	inquiries services.IInquiryService
	storage   storage.IDocumentStorage
}

func NewInquiryHandler(accounts services.IAccountService, inquiries services.IInquiryService, docStorage storage.IDocumentStorage) *InquiryHandler {
	return &InquiryHandler{accounts: accounts, inquiries: inquiries, storage: docStorage}
}

type submitInquiryRequest struct {
	Classification string            `json:"classification" binding:"required"`
	Description    string            `json:"description" binding:"required"`
	Services       []string          `json:"services" binding:"required,min=1"`
	Documents      []models.Document `json:"documents"`
}

// Submit handles POST /v1/inquiries (client)
func (h *InquiryHandler) Submit(c *gin.Context) {
	var req submitInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	account, err := h.accounts.FindByID(c.Request.Context(), c.GetString(middleware.ContextKeyAccountID))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit inquiry"})
		return
	}

	inquiry, err := h.inquiries.Submit(c.Request.Context(), account, services.InquirySubmission{
		Classification: req.Classification,
		Description:    req.Description,
		Services:       req.Services,
		Documents:      req.Documents,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit inquiry"})
		return
	}

	c.JSON(http.StatusCreated, inquiry)
}

// ListMine handles GET /v1/inquiries/mine (client)
func (h *InquiryHandler) ListMine(c *gin.Context) {
	var bucket *models.ClientBucket
	if b := c.Query("bucket"); b != "" {
		parsed := models.ClientBucket(b)
		bucket = &parsed
	}

	records, err := h.inquiries.ListForClient(c.Request.Context(), c.GetString(middleware.ContextKeyAccountID), bucket)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list inquiries"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// MarkNotificationsRead handles POST /v1/inquiries/mine/:id/notifications/read (client)
func (h *InquiryHandler) MarkNotificationsRead(c *gin.Context) {
	err := h.inquiries.MarkNotificationsRead(c.Request.Context(), c.Param("id"),
		c.GetString(middleware.ContextKeyAccountID))
	if err != nil {
		if errors.Is(err, services.ErrInquiryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked read"})
}

// List handles GET /v1/staff/inquiries (staff)
func (h *InquiryHandler) List(c *gin.Context) {
	var status *models.InquiryStatus
	if s := c.Query("status"); s != "" {
		parsed := models.InquiryStatus(s)
		if !parsed.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		status = &parsed
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

	inquiries, err := h.inquiries.List(c.Request.Context(), status, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list inquiries"})
		return
	}
	c.JSON(http.StatusOK, inquiries)
}

// Get handles GET /v1/staff/inquiries/:id (staff)
func (h *InquiryHandler) Get(c *gin.Context) {
	inquiry, err := h.inquiries.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrInquiryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve inquiry"})
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

type triageRequest struct {
	Status   *models.InquiryStatus `json:"status"`
	Remarks  *string               `json:"remarks"`
	Services []string              `json:"services"`
}

// UpdateTriage handles PATCH /v1/staff/inquiries/:id (staff)
func (h *InquiryHandler) UpdateTriage(c *gin.Context) {
	var req triageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	inquiry, err := h.inquiries.UpdateTriage(c.Request.Context(), c.Param("id"),
		middleware.ActorFromContext(c), services.TriageUpdate{
			Status:   req.Status,
			Remarks:  req.Remarks,
			Services: req.Services,
		})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInquiryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
		case errors.Is(err, services.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry status"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update inquiry"})
		}
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

// Archive handles POST /v1/staff/inquiries/:id/archive (staff)
func (h *InquiryHandler) Archive(c *gin.Context) {
	err := h.inquiries.Archive(c.Request.Context(), c.Param("id"), middleware.ActorFromContext(c))
	if err != nil {
		if errors.Is(err, services.ErrInquiryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive inquiry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Inquiry archived"})
}

// MarkRead handles POST /v1/staff/inquiries/:id/read (staff)
func (h *InquiryHandler) MarkRead(c *gin.Context) {
	if err := h.inquiries.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrInquiryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark inquiry read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Inquiry marked read"})
}

type uploadURLRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// RequestUploadURL handles POST /v1/inquiries/:id/documents/upload-url.
// The client PUTs the PDF straight to S3, then attaches the resulting
// document metadata on submission.
func (h *InquiryHandler) RequestUploadURL(c *gin.Context) {
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
