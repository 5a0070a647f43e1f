package middleware

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the envelope every failed request returns: a stable
// human-readable error, a diagnostic debug line, and — outside production —
// the raw internal error under details.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Debug   string            `json:"debug,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  []ValidationError `json:"fields,omitempty"`
}

// IsProduction reports whether the service runs with APP_ENV=production,
// which suppresses raw error details in responses.
func IsProduction() bool {
	return os.Getenv("APP_ENV") == "production"
}

func RespondWithError(c *gin.Context, code int, errMsg, debug string) {
	c.JSON(code, ErrorResponse{Error: errMsg, Debug: debug})
}

// RespondWithInternalError reports an unexpected failure. The underlying
// error is only exposed outside production.
func RespondWithInternalError(c *gin.Context, errMsg, debug string, err error) {
	resp := ErrorResponse{Error: errMsg, Debug: debug}
	if err != nil && !IsProduction() {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusInternalServerError, resp)
}
