package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/config"
	eventdomain "github.com/smallbiznis/onboard/internal/events/domain"
	"github.com/smallbiznis/onboard/internal/observability/metrics"
	"github.com/smallbiznis/onboard/internal/providers/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	bodies [][]byte
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.bodies = append(p.bodies, payload)
	return nil
}

func newTestService(t *testing.T, mailer email.Provider, pub *fakePublisher) *Service {
	return newTestServiceWithPolicy(t, mailer, pub, config.DefaultSignupPolicy())
}

func newTestServiceWithPolicy(t *testing.T, mailer email.Provider, pub *fakePublisher, policy config.SignupPolicy) *Service {
	cfg := config.Config{AppName: "onboard"}
	cfg.Email.VerifyURL = "https://app.onboard.test/verify-email"
	return NewService(ServiceParams{
		Config:    cfg,
		Policy:    config.NewStaticSignupPolicy(policy),
		Mailer:    mailer,
		Publisher: pub,
		Metrics:   metrics.NewNoop(),
		Clock:     clock.NewFakeClock(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)),
		Log:       zaptest.NewLogger(t),
	})
}

func sampleEvent() SignupCompleted {
	return SignupCompleted{
		TenantID:          11,
		TenantName:        "Acme Inc",
		TenantCode:        "ACMEINC",
		PlanID:            "3",
		OwnerUserID:       22,
		OwnerEmail:        "owner@acme.test",
		OwnerRole:         "OWNER",
		VerificationToken: "11.abc",
	}
}

func TestSignupCompletedSendsEmailAndEvents(t *testing.T) {
	mailer := &fakeMailer{}
	pub := &fakePublisher{}
	svc := newTestService(t, mailer, pub)

	svc.SignupCompleted(context.Background(), sampleEvent())
	svc.Wait()

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "owner@acme.test", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Text, "https://app.onboard.test/verify-email?token=11.abc")
	assert.Contains(t, mailer.sent[0].Text, "within 24 hours")

	assert.Equal(t, []string{eventdomain.TopicTenantSignupCompleted, eventdomain.TopicUserSignupCompleted}, pub.topics)
	var tenantEvt eventdomain.TenantSignupCompleted
	require.NoError(t, json.Unmarshal(pub.bodies[0], &tenantEvt))
	assert.Equal(t, "11", tenantEvt.TenantID)
	assert.NotContains(t, string(pub.bodies[1]), "password")
}

func TestSignupCompletedSurvivesCancelledRequest(t *testing.T) {
	mailer := &fakeMailer{}
	pub := &fakePublisher{}
	svc := newTestService(t, mailer, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.SignupCompleted(ctx, sampleEvent())
	svc.Wait()

	assert.Len(t, mailer.sent, 1)
	assert.Len(t, pub.topics, 2)
}

func TestEmailFailureStillPublishes(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	pub := &fakePublisher{}
	svc := newTestService(t, mailer, pub)

	svc.SignupCompleted(context.Background(), sampleEvent())
	svc.Wait()

	assert.Len(t, pub.topics, 2)
}

func TestVerificationEmailUsesPolicyTTL(t *testing.T) {
	mailer := &fakeMailer{}
	policy := config.DefaultSignupPolicy()
	policy.VerificationTokenTTL = 90 * time.Minute
	svc := newTestServiceWithPolicy(t, mailer, &fakePublisher{}, policy)

	svc.SignupCompleted(context.Background(), sampleEvent())
	svc.Wait()

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Text, "within 90 minutes")
	assert.NotContains(t, mailer.sent[0].Text, "24 hours")
}

func TestHumanizeTTL(t *testing.T) {
	cases := map[time.Duration]string{
		24 * time.Hour:   "24 hours",
		time.Hour:        "1 hour",
		45 * time.Minute: "45 minutes",
		90 * time.Second: "1m30s",
	}
	for in, want := range cases {
		assert.Equal(t, want, humanizeTTL(in), in.String())
	}
}
