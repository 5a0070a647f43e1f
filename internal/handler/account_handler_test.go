package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keydesk/keydesk/internal/cqrs"
	"github.com/keydesk/keydesk/internal/models"
	"github.com/keydesk/keydesk/internal/repository"
)

// ---- mock implementations ----

type mockAccountCommander struct {
	createFn func(cqrs.CreateAccountCommand) (*models.AccountView, error)
	updateFn func(cqrs.UpdateAccountCommand) (*models.AccountView, error)
	deleteFn func(cqrs.DeleteAccountCommand) (*models.AccountSummary, error)
}

func (m *mockAccountCommander) CreateAccount(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) UpdateAccount(cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) DeleteAccount(cmd cqrs.DeleteAccountCommand) (*models.AccountSummary, error) {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

type mockAccountQuerier struct {
	listFn func(cqrs.ListAccountsQuery) ([]models.AccountView, int, error)
	getFn  func(cqrs.GetAccountQuery) (*models.AccountView, error)
}

func (m *mockAccountQuerier) ListAccounts(q cqrs.ListAccountsQuery) ([]models.AccountView, int, error) {
	if m.listFn != nil {
		return m.listFn(q)
	}
	return nil, 0, fmt.Errorf("not configured")
}
func (m *mockAccountQuerier) GetAccount(q cqrs.GetAccountQuery) (*models.AccountView, error) {
	if m.getFn != nil {
		return m.getFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newAccountTestRouter(cmds AccountCommander, qrys AccountQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAccountHandler(cmds, qrys)
	v1 := r.Group("/v1/accounts")
	v1.GET("", h.ListAccounts)
	v1.POST("", h.CreateAccount)
	v1.GET("/:accountId", h.GetAccount)
	v1.PUT("/:accountId", h.UpdateAccount)
	v1.DELETE("/:accountId", h.DeleteAccount)
	return r
}

func accountDoRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ---- test data ----

var testView = &models.AccountView{
	ID: "acc-0000000001", Key: "LIC-ABC-123", Role: models.RoleSeller,
	Credits: 50, PlanExpiry: time.Now().Add(72 * time.Hour),
	CreatedAt: time.Now(), Status: "active", RemainingDays: 3,
}

func validCreateBody() map[string]interface{} {
	return map[string]interface{}{
		"key":         "LIC-NEW-456",
		"plan_expiry": time.Now().Add(720 * time.Hour).Format(time.RFC3339),
		"role":        "seller",
	}
}

// ---- tests ----

func TestCreateAccount(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		createFn       func(cqrs.CreateAccountCommand) (*models.AccountView, error)
		expectedStatus int
	}{
		{
			name:           "success - creates new account",
			body:           validCreateBody(),
			createFn:       func(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) { return testView, nil },
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing required fields",
			body:           map[string]interface{}{"key": "LIC-ONLY-KEY"},
			createFn:       nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - role outside the enumeration",
			body: map[string]interface{}{
				"key":         "LIC-BAD-ROLE",
				"plan_expiry": time.Now().Add(time.Hour).Format(time.RFC3339),
				"role":        "owner",
			},
			createFn:       nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - malformed creator ID",
			body: map[string]interface{}{
				"key":         "LIC-BAD-CREATOR",
				"plan_expiry": time.Now().Add(time.Hour).Format(time.RFC3339),
				"role":        "user",
				"createdBy":   "not-an-id",
			},
			createFn:       nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "conflict - duplicate key",
			body: validCreateBody(),
			createFn: func(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
				return nil, repository.ErrDuplicateKey
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "not found - creator does not exist",
			body: func() map[string]interface{} {
				b := validCreateBody()
				b["createdBy"] = "acc-0000000009"
				return b
			}(),
			createFn: func(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
				return nil, repository.ErrCreatorNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "payment required - creator short on credits",
			body: func() map[string]interface{} {
				b := validCreateBody()
				b["createdBy"] = "acc-0000000009"
				return b
			}(),
			createFn: func(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
				return nil, repository.ErrInsufficientCredits
			},
			expectedStatus: http.StatusPaymentRequired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{createFn: tt.createFn}
			router := newAccountTestRouter(cmds, &mockAccountQuerier{})
			w := accountDoRequest(router, http.MethodPost, "/v1/accounts", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetAccount(t *testing.T) {
	tests := []struct {
		name           string
		accountID      string
		getFn          func(cqrs.GetAccountQuery) (*models.AccountView, error)
		expectedStatus int
	}{
		{
			name:           "success - fetch account",
			accountID:      "acc-0000000001",
			getFn:          func(q cqrs.GetAccountQuery) (*models.AccountView, error) { return testView, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - malformed ID",
			accountID:      "bogus",
			getFn:          nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "not found - account does not exist",
			accountID: "acc-0000000999",
			getFn: func(q cqrs.GetAccountQuery) (*models.AccountView, error) {
				return nil, repository.ErrNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountCommander{}, &mockAccountQuerier{getFn: tt.getFn})
			w := accountDoRequest(router, http.MethodGet, "/v1/accounts/"+tt.accountID, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestListAccounts(t *testing.T) {
	listFn := func(q cqrs.ListAccountsQuery) ([]models.AccountView, int, error) {
		if q.Search != "abc" || q.Role != "seller" || q.Page != 2 || q.Limit != 5 {
			return nil, 0, fmt.Errorf("unexpected query: %+v", q)
		}
		return []models.AccountView{*testView}, 11, nil
	}
	router := newAccountTestRouter(&mockAccountCommander{}, &mockAccountQuerier{listFn: listFn})
	w := accountDoRequest(router, http.MethodGet, "/v1/accounts?page=2&limit=5&search=abc&role=seller", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success    bool                 `json:"success"`
		Accounts   []models.AccountView `json:"accounts"`
		Pagination struct {
			Page    int  `json:"page"`
			Total   int  `json:"total"`
			Pages   int  `json:"pages"`
			HasNext bool `json:"hasNext"`
			HasPrev bool `json:"hasPrev"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || len(resp.Accounts) != 1 {
		t.Errorf("unexpected response payload: %s", w.Body.String())
	}
	if resp.Pagination.Pages != 3 || !resp.Pagination.HasNext || !resp.Pagination.HasPrev {
		t.Errorf("unexpected pagination block: %+v", resp.Pagination)
	}
}

func TestListAccountsDefaultsBadParams(t *testing.T) {
	listFn := func(q cqrs.ListAccountsQuery) ([]models.AccountView, int, error) {
		if q.Page != 1 || q.Limit != 10 {
			return nil, 0, fmt.Errorf("expected defaults, got %+v", q)
		}
		return nil, 0, nil
	}
	router := newAccountTestRouter(&mockAccountCommander{}, &mockAccountQuerier{listFn: listFn})
	w := accountDoRequest(router, http.MethodGet, "/v1/accounts?page=zero&limit=-3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d; body: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"accounts":[]`) {
		t.Errorf("expected empty accounts array, got: %s", w.Body.String())
	}
}

func TestUpdateAccount(t *testing.T) {
	tests := []struct {
		name           string
		accountID      string
		body           interface{}
		updateFn       func(cqrs.UpdateAccountCommand) (*models.AccountView, error)
		expectedStatus int
	}{
		{
			name:      "success - patch credits only",
			accountID: "acc-0000000001",
			body:      map[string]interface{}{"credits": 70},
			updateFn: func(cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
				if cmd.Credits == nil || *cmd.Credits != 70 {
					return nil, fmt.Errorf("credits patch missing")
				}
				if cmd.Key != nil || cmd.Role != nil || cmd.PlanExpiry != nil || cmd.Pricing != nil {
					return nil, fmt.Errorf("unexpected fields in patch")
				}
				return testView, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - malformed ID",
			accountID:      "bogus",
			body:           map[string]interface{}{"credits": 70},
			updateFn:       nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - role outside the enumeration",
			accountID:      "acc-0000000001",
			body:           map[string]interface{}{"role": "boss"},
			updateFn:       nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "not found - account does not exist",
			accountID: "acc-0000000999",
			body:      map[string]interface{}{"credits": 70},
			updateFn: func(cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
				return nil, repository.ErrNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:      "conflict - key already taken",
			accountID: "acc-0000000001",
			body:      map[string]interface{}{"key": "LIC-TAKEN"},
			updateFn: func(cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
				return nil, repository.ErrDuplicateKey
			},
			expectedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{updateFn: tt.updateFn}
			router := newAccountTestRouter(cmds, &mockAccountQuerier{})
			w := accountDoRequest(router, http.MethodPut, "/v1/accounts/"+tt.accountID, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	summary := &models.AccountSummary{ID: "acc-0000000001", Key: "LIC-ABC-123", Role: "seller", Credits: 50}
	tests := []struct {
		name           string
		accountID      string
		deleteFn       func(cqrs.DeleteAccountCommand) (*models.AccountSummary, error)
		expectedStatus int
		wantInBody     string
	}{
		{
			name:      "success - returns summary of the deleted account",
			accountID: "acc-0000000001",
			deleteFn: func(cmd cqrs.DeleteAccountCommand) (*models.AccountSummary, error) {
				return summary, nil
			},
			expectedStatus: http.StatusOK,
			wantInBody:     `"key":"LIC-ABC-123"`,
		},
		{
			name:           "bad request - malformed ID",
			accountID:      "bogus",
			deleteFn:       nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "not found - second delete of the same ID",
			accountID: "acc-0000000001",
			deleteFn: func(cmd cqrs.DeleteAccountCommand) (*models.AccountSummary, error) {
				return nil, repository.ErrNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{deleteFn: tt.deleteFn}
			router := newAccountTestRouter(cmds, &mockAccountQuerier{})
			w := accountDoRequest(router, http.MethodDelete, "/v1/accounts/"+tt.accountID, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.wantInBody != "" && !strings.Contains(w.Body.String(), tt.wantInBody) {
				t.Errorf("[%s] expected body to contain %q, got: %s", tt.name, tt.wantInBody, w.Body.String())
			}
		})
	}
}
