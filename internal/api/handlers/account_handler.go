package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/models"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/services"
)

// AccountHandler serves the admin account-management endpoints.
type AccountHandler struct {
	accounts services.IAccountService
}

func NewAccountHandler(accounts services.IAccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type createAccountRequest struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Phone    string      `json:"phone"`
	Address  string      `json:"address"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     models.Role `json:"role" binding:"required"`
}

// Create handles POST /v1/admin/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	switch req.Role {
	case models.RoleClient, models.RoleStaff, models.RoleAdmin:
	default:
		// Super admin accounts are provisioned out of band.
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), services.AccountCreate{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}
	c.JSON(http.StatusCreated, account)
}

// List handles GET /v1/admin/accounts
func (h *AccountHandler) List(c *gin.Context) {
	var roles []models.Role
	if r := c.Query("role"); r != "" {
		roles = []models.Role{models.Role(r)}
	}

	accounts, err := h.accounts.List(c.Request.Context(), roles)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list accounts"})
		return
	}
	c.JSON(http.StatusOK, accounts)
}

type setDisabledRequest struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

// SetDisabled handles PATCH /v1/admin/accounts/:id/disabled
func (h *AccountHandler) SetDisabled(c *gin.Context) {
	var req setDisabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	err := h.accounts.SetDisabled(c.Request.Context(), c.Param("id"), *req.Disabled)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account updated"})
}
