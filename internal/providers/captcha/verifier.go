package captcha

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var ErrMissingToken = errors.New("captcha token is required")

type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// NoopVerifier accepts every request. Used when captcha is disabled.
type NoopVerifier struct{}

func (NoopVerifier) Verify(context.Context, string, string) (bool, error) {
	return true, nil
}

// TurnstileVerifier calls a siteverify endpoint compatible with Cloudflare
// Turnstile and reCAPTCHA.
type TurnstileVerifier struct {
	client *resty.Client
	secret string
	url    string
	log    *zap.Logger
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func NewTurnstileVerifier(verifyURL, secret string, timeout time.Duration, log *zap.Logger) *TurnstileVerifier {
	return &TurnstileVerifier{
		client: resty.New().SetTimeout(timeout).SetRetryCount(1),
		secret: secret,
		url:    verifyURL,
		log:    log.Named("captcha"),
	}
}

func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, ErrMissingToken
	}

	form := map[string]string{
		"secret":   v.secret,
		"response": token,
	}
	if remoteIP != "" {
		form["remoteip"] = remoteIP
	}

	var out siteverifyResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		Post(v.url)
	if err != nil {
		return false, err
	}
	if resp.IsError() {
		return false, errors.New("captcha verify status " + resp.Status())
	}
	if !out.Success {
		v.log.Debug("captcha rejected", zap.Strings("error_codes", out.ErrorCodes))
	}
	return out.Success, nil
}
