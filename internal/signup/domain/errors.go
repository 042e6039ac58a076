package domain

import (
	"errors"

	credentialdomain "github.com/smallbiznis/onboard/internal/credential/domain"
	recoverydomain "github.com/smallbiznis/onboard/internal/recovery/domain"
	"github.com/smallbiznis/onboard/internal/validation"
)

const (
	CodeValidation               = "VALIDATION"
	CodeCaptchaFailed            = "CAPTCHA_FAILED"
	CodeInvalidRecoveryToken     = "INVALID_RECOVERY_TOKEN"
	CodePlanNotFound             = "PLAN_NOT_FOUND"
	CodePlanNotAvailable         = "PLAN_NOT_AVAILABLE"
	CodeConfigMissingPlatform    = "CONFIG_MISSING_PLATFORM"
	CodeCredentialScopeViolation = "CREDENTIAL_SCOPE_VIOLATION"
	CodeSubscriptionCreateFailed = "SUBSCRIPTION_CREATE_FAILED"
	CodeInternal                 = "INTERNAL_ERROR"
)

var (
	ErrCaptchaFailed            = errors.New("captcha verification failed")
	ErrPlanNotFound             = errors.New("plan not found")
	ErrPlanNotAvailable         = errors.New("plan not available for signup")
	ErrSubscriptionCreateFailed = errors.New("subscription create failed")
)

// ErrorCode maps a signup failure to its stable client-facing code.
func ErrorCode(err error) string {
	var verr *validation.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return CodeValidation
	case errors.Is(err, ErrCaptchaFailed):
		return CodeCaptchaFailed
	case errors.Is(err, recoverydomain.ErrInvalidToken):
		return CodeInvalidRecoveryToken
	case errors.Is(err, ErrPlanNotFound):
		return CodePlanNotFound
	case errors.Is(err, ErrPlanNotAvailable):
		return CodePlanNotAvailable
	case errors.Is(err, credentialdomain.ErrConfigMissing):
		return CodeConfigMissingPlatform
	case errors.Is(err, credentialdomain.ErrScopeViolation):
		return CodeCredentialScopeViolation
	case errors.Is(err, ErrSubscriptionCreateFailed):
		return CodeSubscriptionCreateFailed
	default:
		return CodeInternal
	}
}
