package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keydesk/keydesk/internal/cqrs"
	"github.com/keydesk/keydesk/internal/middleware"
	"github.com/keydesk/keydesk/internal/models"
	"github.com/keydesk/keydesk/internal/repository"
	"github.com/keydesk/keydesk/internal/utils"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(cqrs.CreateAccountCommand) (*models.AccountView, error)
	UpdateAccount(cqrs.UpdateAccountCommand) (*models.AccountView, error)
	DeleteAccount(cqrs.DeleteAccountCommand) (*models.AccountSummary, error)
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	ListAccounts(cqrs.ListAccountsQuery) ([]models.AccountView, int, error)
	GetAccount(cqrs.GetAccountQuery) (*models.AccountView, error)
}

// AccountHandler routes requests to the command or query service as appropriate.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type CreateAccountRequest struct {
	Key        string          `json:"key" validate:"required"`
	PlanExpiry *time.Time      `json:"plan_expiry" validate:"required"`
	Role       string          `json:"role" validate:"required,oneof=admin super-seller seller user"`
	Credits    int64           `json:"credits" validate:"gte=0"`
	Pricing    *models.Pricing `json:"pricing"`
	CreatedBy  string          `json:"createdBy"`
}

// UpdateAccountRequest is an explicit patch: absent fields stay untouched.
type UpdateAccountRequest struct {
	Key        *string         `json:"key"`
	PlanExpiry *time.Time      `json:"plan_expiry"`
	Role       *string         `json:"role" validate:"omitempty,oneof=admin super-seller seller user"`
	Credits    *int64          `json:"credits" validate:"omitempty,gte=0"`
	Pricing    *models.Pricing `json:"pricing"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}

	accounts, total, err := h.queries.ListAccounts(cqrs.ListAccountsQuery{
		Page:      page,
		Limit:     limit,
		Search:    c.Query("search"),
		Role:      c.Query("role"),
		CreatedBy: c.Query("created_by"),
	})
	if err != nil {
		middleware.RespondWithInternalError(c, "Failed to retrieve accounts", "Server error occurred while fetching accounts", err)
		return
	}
	if accounts == nil {
		accounts = []models.AccountView{}
	}

	pages := (total + limit - 1) / limit
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"accounts": accounts,
		"pagination": gin.H{
			"page":    page,
			"limit":   limit,
			"total":   total,
			"pages":   pages,
			"hasNext": page < pages,
			"hasPrev": page > 1,
		},
		"debug": fmt.Sprintf("Retrieved %d accounts out of %d total", len(accounts), total),
	})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	if !utils.ValidateAccountID(accountID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account ID format", "The provided ID is not a valid account identifier")
		return
	}

	view, err := h.queries.GetAccount(cqrs.GetAccountQuery{AccountID: accountID})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found", "No account found with the provided ID")
			return
		}
		middleware.RespondWithInternalError(c, "Failed to retrieve account", "Server error occurred while fetching account", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"account": view,
		"debug":   "Account retrieved successfully",
	})
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body", "Request body could not be parsed")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	if req.CreatedBy != "" && !utils.ValidateAccountID(req.CreatedBy) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid creator ID format", "The provided creator ID is not a valid account identifier")
		return
	}

	cmd := cqrs.CreateAccountCommand{
		Key:        req.Key,
		PlanExpiry: *req.PlanExpiry,
		Role:       req.Role,
		Credits:    req.Credits,
		CreatedBy:  req.CreatedBy,
	}
	if req.Pricing != nil {
		cmd.Pricing = *req.Pricing
	}

	view, err := h.commands.CreateAccount(cmd)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			middleware.RespondWithError(c, http.StatusConflict, "Account with this key already exists", "An account with this key already exists in the database")
		case errors.Is(err, repository.ErrCreatorNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "Creator not found", "The specified creator does not exist")
		case errors.Is(err, repository.ErrInsufficientCredits):
			middleware.RespondWithError(c, http.StatusPaymentRequired, "Insufficient credits", "The creator does not have enough credits for this role")
		default:
			middleware.RespondWithInternalError(c, "Failed to create account", "Server error occurred while creating account", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Account created successfully",
		"account": view,
		"debug":   "Account created successfully",
	})
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	if !utils.ValidateAccountID(accountID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account ID format", "The provided ID is not a valid account identifier")
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body", "Request body could not be parsed")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.UpdateAccount(cqrs.UpdateAccountCommand{
		AccountID:  accountID,
		Key:        req.Key,
		PlanExpiry: req.PlanExpiry,
		Role:       req.Role,
		Credits:    req.Credits,
		Pricing:    req.Pricing,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found", "No account found with the provided ID")
		case errors.Is(err, repository.ErrDuplicateKey):
			middleware.RespondWithError(c, http.StatusConflict, "Account with this key already exists", "Another account already has this key")
		default:
			middleware.RespondWithInternalError(c, "Failed to update account", "Server error occurred while updating account", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Account updated successfully",
		"account": view,
		"debug":   "Account updated successfully",
	})
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	if !utils.ValidateAccountID(accountID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account ID format", "The provided ID is not a valid account identifier")
		return
	}

	summary, err := h.commands.DeleteAccount(cqrs.DeleteAccountCommand{AccountID: accountID})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found", "No account found with the provided ID")
			return
		}
		middleware.RespondWithInternalError(c, "Failed to delete account", "Server error occurred while deleting account", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Account deleted successfully",
		"deletedAccount": summary,
		"debug":          "Account deleted successfully",
	})
}
