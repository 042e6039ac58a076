package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/config"
	"github.com/smallbiznis/onboard/internal/events"
	eventdomain "github.com/smallbiznis/onboard/internal/events/domain"
	"github.com/smallbiznis/onboard/internal/observability/logger"
	"github.com/smallbiznis/onboard/internal/observability/metrics"
	"github.com/smallbiznis/onboard/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// SignupCompleted carries what the post-commit side effects need. It never
// includes the plaintext password.
type SignupCompleted struct {
	TenantID          snowflake.ID
	TenantName        string
	TenantCode        string
	PlanID            string
	SubscriptionID    string
	Currency          string
	OwnerUserID       snowflake.ID
	OwnerEmail        string
	OwnerRole         string
	VerificationToken string
}

type ServiceParams struct {
	fx.In

	Config    config.Config
	Policy    *config.SignupPolicyHolder
	Mailer    email.Provider
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Clock     clock.Clock
	Log       *zap.Logger
}

type Service struct {
	policy    *config.SignupPolicyHolder
	mailer    email.Provider
	publisher events.Publisher
	metrics   *metrics.Metrics
	clock     clock.Clock
	verifyURL string
	appName   string
	timeout   time.Duration
	log       *zap.Logger

	wg sync.WaitGroup
}

func NewService(p ServiceParams) *Service {
	return &Service{
		policy:    p.Policy,
		mailer:    p.Mailer,
		publisher: p.Publisher,
		metrics:   p.Metrics,
		clock:     p.Clock,
		verifyURL: p.Config.Email.VerifyURL,
		appName:   p.Config.AppName,
		timeout:   defaultTimeout,
		log:       p.Log.Named("notification"),
	}
}

// SignupCompleted sends the verification email and publishes the completion
// events in the background. It returns immediately and never fails.
func (s *Service) SignupCompleted(ctx context.Context, evt SignupCompleted) {
	detached := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(detached, s.timeout)
		defer cancel()

		log := logger.WithTenant(logger.WithContext(ctx, s.log), evt.TenantID.Int64())
		s.sendVerification(ctx, log, evt)
		s.publishEvents(ctx, log, evt)
	}()
}

// Wait blocks until all in-flight notifications have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) sendVerification(ctx context.Context, log *zap.Logger, evt SignupCompleted) {
	msg := email.Message{
		To:      evt.OwnerEmail,
		Subject: fmt.Sprintf("Verify your %s account", s.appName),
		Text:    s.verificationText(evt),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Warn("verification email failed", zap.Error(err))
		s.metrics.RecordNotification(ctx, "email", "failure")
		return
	}
	s.metrics.RecordNotification(ctx, "email", "success")
}

func (s *Service) verificationText(evt SignupCompleted) string {
	link := s.verifyURL
	if u, err := url.Parse(s.verifyURL); err == nil {
		q := u.Query()
		q.Set("token", evt.VerificationToken)
		u.RawQuery = q.Encode()
		link = u.String()
	}
	return fmt.Sprintf(
		"Welcome to %s.\n\nYour workspace %q is ready. Confirm your email address within %s:\n\n%s\n",
		s.appName, evt.TenantName, humanizeTTL(s.policy.Get().VerificationTokenTTL), link,
	)
}

// humanizeTTL renders whole hours or minutes in words and falls back to
// Duration.String for anything finer.
func humanizeTTL(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func (s *Service) publishEvents(ctx context.Context, log *zap.Logger, evt SignupCompleted) {
	now := s.clock.Now().UTC()

	s.publish(ctx, log, eventdomain.TopicTenantSignupCompleted, eventdomain.TenantSignupCompleted{
		TenantID:       evt.TenantID.String(),
		TenantCode:     evt.TenantCode,
		TenantName:     evt.TenantName,
		PlanID:         evt.PlanID,
		SubscriptionID: evt.SubscriptionID,
		Currency:       evt.Currency,
		CompletedAt:    now,
	})
	s.publish(ctx, log, eventdomain.TopicUserSignupCompleted, eventdomain.UserSignupCompleted{
		TenantID:    evt.TenantID.String(),
		UserID:      evt.OwnerUserID.String(),
		Email:       evt.OwnerEmail,
		Role:        evt.OwnerRole,
		CompletedAt: now,
	})
}

func (s *Service) publish(ctx context.Context, log *zap.Logger, topic string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error("encode event failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, topic, raw); err != nil {
		log.Warn("publish event failed", zap.String("topic", topic), zap.Error(err))
		s.metrics.RecordNotification(ctx, "event", "failure")
		return
	}
	s.metrics.RecordNotification(ctx, "event", "success")
}
