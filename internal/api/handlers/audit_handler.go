package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/services"
)

// AuditHandler serves the admin audit-log listing.
type AuditHandler struct {
	audits services.IAuditService
}

func NewAuditHandler(audits services.IAuditService) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// List handles GET /v1/admin/audit-logs
func (h *AuditHandler) List(c *gin.Context) {
	var category *models.AuditCategory
	if cat := c.Query("category"); cat != "" {
		parsed := models.AuditCategory(cat)
		category = &parsed
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

	entries, err := h.audits.List(c.Request.Context(), category, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list audit logs"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
