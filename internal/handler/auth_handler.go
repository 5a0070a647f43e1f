package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keydesk/keydesk/internal/cqrs"
	"github.com/keydesk/keydesk/internal/middleware"
	"github.com/keydesk/keydesk/internal/models"
	"github.com/keydesk/keydesk/internal/query"
)

// AuthQuerier defines the read-side operations used by AuthHandler.
type AuthQuerier interface {
	Login(cqrs.LoginQuery) (*query.LoginResult, error)
	PrivilegedLogin(cqrs.PrivilegedLoginQuery) (*query.LoginResult, error)
}

// AuthHandler handles both login variants. No command service needed.
type AuthHandler struct {
	queries AuthQuerier
}

type LoginRequest struct {
	Key string `json:"key"`
}

func NewAuthHandler(queries AuthQuerier) *AuthHandler {
	return &AuthHandler{queries: queries}
}

// Login is the plain variant: any role may authenticate as long as the plan
// has not lapsed.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		middleware.RespondWithError(c, http.StatusBadRequest, "Key is required", "No key provided in request body")
		return
	}

	result, err := h.queries.Login(cqrs.LoginQuery{Key: req.Key})
	if err != nil {
		respondLoginError(c, err)
		return
	}

	v := result.Account
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   result.Token,
		"account": gin.H{
			"id":        v.ID,
			"key":       v.Key,
			"isAdmin":   v.Role == models.RoleAdmin,
			"createdAt": v.CreatedAt,
		},
		"plan_expiry":   v.PlanExpiry,
		"isActive":      true,
		"remainingDays": result.RemainingDays,
		"debug":         fmt.Sprintf("Login successful. Plan expires in %d days", result.RemainingDays),
	})
}

// PrivilegedLogin is the dashboard variant: only management roles get in,
// and the full profile comes back.
func (h *AuthHandler) PrivilegedLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		middleware.RespondWithError(c, http.StatusBadRequest, "Key is required", "No key provided in request body")
		return
	}

	result, err := h.queries.PrivilegedLogin(cqrs.PrivilegedLoginQuery{Key: req.Key})
	if err != nil {
		respondLoginError(c, err)
		return
	}

	v := result.Account
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   result.Token,
		"account": gin.H{
			"id":              v.ID,
			"key":             v.Key,
			"role":            v.Role,
			"credits":         v.Credits,
			"pricing":         v.Pricing,
			"createdBy":       v.CreatedBy,
			"createdAt":       v.CreatedAt,
			"createdAccounts": result.CreatedAccounts,
		},
		"plan_expiry":   v.PlanExpiry,
		"isActive":      true,
		"remainingDays": result.RemainingDays,
		"debug":         fmt.Sprintf("Login successful. Plan expires in %d days", result.RemainingDays),
	})
}

func respondLoginError(c *gin.Context, err error) {
	var expired *query.PlanExpiredError
	switch {
	case errors.Is(err, query.ErrInvalidKey):
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid key", "No account found with the provided key")
	case errors.As(err, &expired):
		c.JSON(http.StatusForbidden, gin.H{
			"success":          false,
			"error":            "Subscription expired",
			"debug":            fmt.Sprintf("Plan expired %d days ago", expired.Days),
			"plan_expiry":      expired.PlanExpiry,
			"expired_days_ago": expired.Days,
		})
	case errors.Is(err, query.ErrRoleNotAllowed):
		middleware.RespondWithError(c, http.StatusForbidden, "Access denied", "Account role does not have access to the dashboard")
	default:
		middleware.RespondWithInternalError(c, "Internal server error", "Server error occurred during login", err)
	}
}
