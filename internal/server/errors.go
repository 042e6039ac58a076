package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	signupdomain "github.com/smallbiznis/onboard/internal/signup/domain"
	"github.com/smallbiznis/onboard/internal/validation"
)

const (
	codeNotFound    = "NOT_FOUND"
	codeRateLimited = "RATE_LIMITED"
)

type errorResponse struct {
	Error  string             `json:"error"`
	Issues []validation.Issue `json:"issues,omitempty"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return validation.NewError("body", "invalid_json", "request body must be a JSON object")
}

var statusByCode = map[string]int{
	signupdomain.CodeValidation:               http.StatusBadRequest,
	signupdomain.CodeCaptchaFailed:            http.StatusBadRequest,
	signupdomain.CodeInvalidRecoveryToken:     http.StatusBadRequest,
	signupdomain.CodePlanNotFound:             http.StatusNotFound,
	signupdomain.CodePlanNotAvailable:         http.StatusForbidden,
	signupdomain.CodeConfigMissingPlatform:    http.StatusServiceUnavailable,
	signupdomain.CodeCredentialScopeViolation: http.StatusServiceUnavailable,
	signupdomain.CodeSubscriptionCreateFailed: http.StatusBadGateway,
	signupdomain.CodeInternal:                 http.StatusInternalServerError,
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: signupdomain.CodeInternal}
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound, errorResponse{Error: codeNotFound}
	}
	if errors.Is(err, ErrRateLimited) {
		return http.StatusTooManyRequests, errorResponse{Error: codeRateLimited}
	}
	if errors.Is(err, ErrInvalidRequest) {
		err = invalidRequestError()
	}

	code := signupdomain.ErrorCode(err)
	resp := errorResponse{Error: code}

	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Issues = verr.Issues
	}

	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return status, resp
}

// classifyErrorForLog feeds the request logger: client mistakes are logged
// quietly, dependency and internal failures loudly.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status == http.StatusBadRequest:
		return "validation_error", payload.Error
	case status < http.StatusInternalServerError:
		return "client_error", payload.Error
	case status == http.StatusInternalServerError:
		return "internal_error", payload.Error
	default:
		return "dependency_error", payload.Error
	}
}
