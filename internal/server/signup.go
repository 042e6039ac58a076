package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	signupdomain "github.com/smallbiznis/onboard/internal/signup/domain"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// flexibleID accepts a JSON string or number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type SignupRequest struct {
	CompanyName string     `json:"companyName"`
	OwnerEmail  string     `json:"ownerEmail"`
	Password    string     `json:"password"`
	PlanID      flexibleID `json:"planId"`
	Currency    string     `json:"currency"`
	CouponCode  string     `json:"couponCode"`
	Captcha     string     `json:"captcha"`
	Recovery    string     `json:"recovery"`
}

type signupResponse struct {
	TenantID       string `json:"tenantId"`
	OwnerUserID    string `json:"ownerUserId"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	CheckoutURL    string `json:"checkoutUrl,omitempty"`
	Idempotent     bool   `json:"idempotent,omitempty"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.signupsvc.Signup(c.Request.Context(), signupdomain.Request{
		CompanyName:    req.CompanyName,
		OwnerEmail:     req.OwnerEmail,
		Password:       req.Password,
		PlanID:         string(req.PlanID),
		Currency:       req.Currency,
		CouponCode:     req.CouponCode,
		Captcha:        req.Captcha,
		Recovery:       req.Recovery,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
		RemoteIP:       c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, signupResponse{
		TenantID:       result.TenantID,
		OwnerUserID:    result.OwnerUserID,
		SubscriptionID: result.SubscriptionID,
		CheckoutURL:    result.CheckoutURL,
		Idempotent:     result.Replayed,
	})
}
