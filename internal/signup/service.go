package signup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/onboard/internal/audit/domain"
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/config"
	"github.com/smallbiznis/onboard/internal/credential"
	credentialdomain "github.com/smallbiznis/onboard/internal/credential/domain"
	"github.com/smallbiznis/onboard/internal/idempotency"
	idempotencydomain "github.com/smallbiznis/onboard/internal/idempotency/domain"
	"github.com/smallbiznis/onboard/internal/notification"
	obsctx "github.com/smallbiznis/onboard/internal/observability/context"
	"github.com/smallbiznis/onboard/internal/observability/logger"
	"github.com/smallbiznis/onboard/internal/observability/metrics"
	"github.com/smallbiznis/onboard/internal/observability/tracing"
	plandomain "github.com/smallbiznis/onboard/internal/plan/domain"
	"github.com/smallbiznis/onboard/internal/providers/captcha"
	"github.com/smallbiznis/onboard/internal/recovery"
	"github.com/smallbiznis/onboard/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/onboard/internal/subscription/domain"
	"github.com/smallbiznis/onboard/internal/tenant"
	tenantdomain "github.com/smallbiznis/onboard/internal/tenant/domain"
	"github.com/smallbiznis/onboard/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	outcomeCreated  = "created"
	outcomeReplayed = "replayed"
)

// Notifier receives completed signups for best-effort follow-up work.
type Notifier interface {
	SignupCompleted(ctx context.Context, evt notification.SignupCompleted)
}

type ServiceParams struct {
	fx.In

	Validator   *validation.Validator
	Captcha     captcha.Verifier
	Ledger      *idempotency.Ledger
	Plans       plandomain.Repository
	Recovery    *recovery.Service
	Guard       *credential.Guard
	Provisioner *tenant.Provisioner
	Activator   subscriptiondomain.Activator
	Notifier    Notifier
	Audit       auditdomain.Recorder `optional:"true"`
	Policy      *config.SignupPolicyHolder
	Metrics     *metrics.Metrics
	Clock       clock.Clock
	Log         *zap.Logger
}

// service runs the self-service signup saga.
type service struct {
	validator   *validation.Validator
	captcha     captcha.Verifier
	ledger      *idempotency.Ledger
	plans       plandomain.Repository
	recovery    *recovery.Service
	guard       *credential.Guard
	provisioner *tenant.Provisioner
	activator   subscriptiondomain.Activator
	notifier    Notifier
	audit       auditdomain.Recorder
	policy      *config.SignupPolicyHolder
	metrics     *metrics.Metrics
	clock       clock.Clock
	log         *zap.Logger
}

func NewService(p ServiceParams) domain.Service {
	return &service{
		validator:   p.Validator,
		captcha:     p.Captcha,
		ledger:      p.Ledger,
		plans:       p.Plans,
		recovery:    p.Recovery,
		guard:       p.Guard,
		provisioner: p.Provisioner,
		activator:   p.Activator,
		notifier:    p.Notifier,
		audit:       p.Audit,
		policy:      p.Policy,
		metrics:     p.Metrics,
		clock:       p.Clock,
		log:         p.Log.Named("signup"),
	}
}

// saga holds the state of one signup run.
type saga struct {
	req     domain.Request
	key     idempotencydomain.Key
	code    string
	plan    *plandomain.Plan
	token   *recovery.Token
	creds   *credentialdomain.Credentials
	tenant  *tenantdomain.Tenant
	owner   *tenantdomain.User
	sub     *subscriptiondomain.Activation
	undo    *Compensator
	timeout time.Duration
	log     *zap.Logger
}

// Signup provisions a tenant, its owner and subscription, or replays the
// outcome already recorded for the same idempotency key. The saga is
// detached from ctx cancellation so a disconnecting client cannot leave
// uncompensated state behind.
func (s *service) Signup(ctx context.Context, req domain.Request) (*domain.Result, error) {
	started := s.clock.Now()
	ctx = context.WithoutCancel(ctx)

	ctx, span := tracing.StartSpan(ctx, "signup.saga")
	defer span.End()

	req = req.Normalize()
	res, err := s.run(ctx, req)
	s.recordAudit(ctx, req, res, err)

	outcome := domain.ErrorCode(err)
	switch {
	case err != nil:
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, outcome)
	case res.Replayed:
		outcome = outcomeReplayed
	default:
		outcome = outcomeCreated
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	s.metrics.RecordSignup(ctx, outcome, s.clock.Now().Sub(started))

	return res, err
}

func (s *service) run(ctx context.Context, req domain.Request) (*domain.Result, error) {
	policy := s.policy.Get()
	sg := &saga{
		req:     req,
		timeout: policy.StepTimeout,
		log:     logger.WithContext(ctx, s.log),
	}
	sg.undo = NewCompensator(policy.StepTimeout, s.metrics, sg.log)

	if err := s.validate(sg, policy); err != nil {
		return nil, err
	}
	ctx = obsctx.WithIdempotencyKind(ctx, sg.key.Kind())
	sg.log = sg.log.With(zap.String("idempotency_kind", sg.key.Kind()), zap.String("tenant_code", sg.code))

	if err := s.step(ctx, sg, "captcha", func(ctx context.Context) error {
		ok, err := s.captcha.Verify(ctx, req.Captcha, req.RemoteIP)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCaptchaFailed, err)
		}
		if !ok {
			return domain.ErrCaptchaFailed
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var replay *idempotencydomain.Replay
	if err := s.step(ctx, sg, "ledger_lookup", func(ctx context.Context) (err error) {
		replay, err = s.ledger.Lookup(ctx, sg.key)
		return err
	}); err != nil {
		return nil, err
	}
	if replay != nil {
		return s.replay(sg, replay), nil
	}

	// Everything up to here is read-only. The preflight steps below must
	// also stay free of writes.
	if err := s.preflight(ctx, sg); err != nil {
		return nil, err
	}

	if err := s.provision(ctx, sg, policy); err != nil {
		sg.undo.Run(ctx)
		return nil, err
	}

	outcome := idempotencydomain.Outcome{
		TenantID:       sg.tenant.ID.String(),
		OwnerUserID:    sg.owner.ID.String(),
		SubscriptionID: sg.sub.ID,
		CheckoutURL:    sg.sub.CheckoutURL,
	}
	err := s.step(ctx, sg, "ledger_commit", func(ctx context.Context) error {
		return s.ledger.Commit(ctx, sg.key, idempotencydomain.CommitRequest{
			TenantID:    sg.tenant.ID,
			RequestHash: fingerprint(sg),
			Outcome:     outcome,
		})
	})
	if err != nil && !errors.Is(err, idempotencydomain.ErrAlreadyCommitted) {
		err = s.confirmCommit(ctx, sg, err)
	}
	if errors.Is(err, idempotencydomain.ErrAlreadyCommitted) {
		return s.reconcile(ctx, sg)
	}
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, sg)

	sg.log.Info("signup completed", zap.Int64("tenant_id", sg.tenant.ID.Int64()))
	return &domain.Result{
		TenantID:       outcome.TenantID,
		OwnerUserID:    outcome.OwnerUserID,
		SubscriptionID: outcome.SubscriptionID,
		CheckoutURL:    outcome.CheckoutURL,
	}, nil
}

func (s *service) validate(sg *saga, policy config.SignupPolicy) error {
	if err := s.validator.Struct(sg.req); err != nil {
		return err
	}
	if sg.req.Currency != "" && !policy.CurrencyAllowed(sg.req.Currency) {
		return validation.NewError("currency", "currency", "is not supported")
	}

	sg.code = tenantdomain.DeriveCode(sg.req.CompanyName)
	if sg.code == "" {
		return validation.NewError("companyName", "code", "must contain at least one letter or digit")
	}

	sg.key = idempotencydomain.NewKey(sg.req.IdempotencyKey, sg.req.OwnerEmail, sg.code)
	if err := sg.key.Validate(); err != nil {
		return validation.NewError("Idempotency-Key", "max", err.Error())
	}
	return nil
}

// preflight runs every check that can reject the request before any row is
// written: plan gating, recovery token and platform credentials.
func (s *service) preflight(ctx context.Context, sg *saga) error {
	if err := s.step(ctx, sg, "plan", func(ctx context.Context) error {
		plan, err := s.plans.FindByID(ctx, sg.req.PlanID)
		if err != nil {
			return err
		}
		if plan == nil {
			return domain.ErrPlanNotFound
		}
		if !plan.Available() {
			return domain.ErrPlanNotAvailable
		}
		sg.plan = plan
		return nil
	}); err != nil {
		return err
	}

	if sg.req.Recovery != "" {
		if err := s.step(ctx, sg, "recovery_validate", func(ctx context.Context) (err error) {
			sg.token, err = s.recovery.Validate(ctx, sg.req.Recovery)
			return err
		}); err != nil {
			return err
		}
	}

	return s.step(ctx, sg, "credential_preflight", func(ctx context.Context) (err error) {
		sg.creds, err = s.guard.Check(ctx)
		return err
	})
}

// provision performs every write of the saga. The caller unwinds sg.undo
// when it returns an error.
func (s *service) provision(ctx context.Context, sg *saga, policy config.SignupPolicy) error {
	if err := s.step(ctx, sg, "create_tenant", func(ctx context.Context) (err error) {
		sg.tenant, err = s.provisioner.CreateTenant(ctx, sg.req.CompanyName, sg.code)
		return err
	}); err != nil {
		return err
	}
	tenantID := sg.tenant.ID
	sg.undo.Push(stepDeleteTenant, func(ctx context.Context) error {
		return s.provisioner.DeleteTenant(ctx, tenantID)
	})
	sg.log = logger.WithTenant(sg.log, tenantID.Int64())

	if err := s.step(ctx, sg, "create_owner", func(ctx context.Context) (err error) {
		sg.owner, err = s.provisioner.CreateOwner(ctx, tenantID, sg.req.OwnerEmail, sg.req.Password)
		return err
	}); err != nil {
		return err
	}

	trialDays := policy.TrialDays
	if sg.plan.TrialDays != nil {
		trialDays = *sg.plan.TrialDays
	}
	currency := currencyFor(sg.req, sg.plan, policy)

	if err := s.step(ctx, sg, "activate_subscription", func(ctx context.Context) (err error) {
		sg.sub, err = s.activator.CreateSubscription(ctx, tenantID, sg.plan.ID, subscriptiondomain.CreateOptions{
			CouponCode:  sg.req.CouponCode,
			TrialDays:   trialDays,
			Currency:    currency,
			Credentials: sg.creds,
		})
		return err
	}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSubscriptionCreateFailed, err)
	}
	subscriptionID := sg.sub.ID
	creds := sg.creds
	sg.undo.Push(stepCancelSubscription, func(ctx context.Context) error {
		return s.activator.CancelSubscription(ctx, subscriptionID, creds)
	})

	return s.step(ctx, sg, "record_subscription", func(ctx context.Context) error {
		return s.provisioner.RecordSubscription(ctx, &tenantdomain.Subscription{
			TenantID:    tenantID,
			PlanID:      sg.plan.ID,
			ExternalID:  sg.sub.ID,
			Status:      sg.sub.Status,
			Currency:    currency,
			CheckoutURL: sg.sub.CheckoutURL,
			TrialEndsAt: s.provisioner.TrialEnd(trialDays),
		})
	})
}

// confirmCommit resolves a commit that failed without a clear answer. The
// row may have landed even though the driver reported an error, so the
// ledger is re-read before anything is undone. It returns nil when this run's
// outcome is stored, ErrAlreadyCommitted when another run's is, and
// commitErr after compensating when the key is confirmed absent. When the
// re-read fails too, the provisioned state is left in place: deleting it
// could orphan a committed ledger entry.
func (s *service) confirmCommit(ctx context.Context, sg *saga, commitErr error) error {
	var stored *idempotencydomain.Replay
	if err := s.step(ctx, sg, "ledger_confirm", func(ctx context.Context) (err error) {
		stored, err = s.ledger.Lookup(ctx, sg.key)
		return err
	}); err != nil {
		sg.log.Error("idempotency commit outcome unknown, keeping provisioned tenant",
			zap.NamedError("commit_error", commitErr),
			zap.Error(err),
		)
		return commitErr
	}

	switch {
	case stored == nil:
		sg.undo.Run(ctx)
		return commitErr
	case stored.Outcome.TenantID == sg.tenant.ID.String():
		sg.log.Warn("idempotency commit reported an error but was stored", zap.Error(commitErr))
		return nil
	default:
		return idempotencydomain.ErrAlreadyCommitted
	}
}

// reconcile handles a lost commit race: another request with the same key
// committed first, so this run's tenant is rolled back and the winner's
// outcome is replayed.
func (s *service) reconcile(ctx context.Context, sg *saga) (*domain.Result, error) {
	sg.log.Info("idempotency race lost, rolling back and replaying")
	sg.undo.Run(ctx)

	var replay *idempotencydomain.Replay
	if err := s.step(ctx, sg, "ledger_reread", func(ctx context.Context) (err error) {
		replay, err = s.ledger.Lookup(ctx, sg.key)
		return err
	}); err != nil {
		return nil, err
	}
	if replay == nil {
		return nil, errors.New("committed idempotency entry not readable")
	}
	return s.replay(sg, replay), nil
}

func (s *service) replay(sg *saga, replay *idempotencydomain.Replay) *domain.Result {
	if replay.RequestHash != fingerprint(sg) {
		sg.log.Warn("idempotent replay for a different request body",
			zap.String("stored_kind", replay.KeyKind),
			zap.Time("committed_at", replay.CreatedAt),
		)
	}
	return &domain.Result{
		TenantID:       replay.Outcome.TenantID,
		OwnerUserID:    replay.Outcome.OwnerUserID,
		SubscriptionID: replay.Outcome.SubscriptionID,
		CheckoutURL:    replay.Outcome.CheckoutURL,
		Replayed:       true,
	}
}

// afterCommit runs the best-effort tail. Nothing here can fail the signup.
func (s *service) afterCommit(ctx context.Context, sg *saga) {
	s.notifier.SignupCompleted(ctx, notification.SignupCompleted{
		TenantID:          sg.tenant.ID,
		TenantName:        sg.tenant.Name,
		TenantCode:        sg.tenant.Code,
		PlanID:            sg.plan.ID.String(),
		SubscriptionID:    sg.sub.ID,
		Currency:          currencyFor(sg.req, sg.plan, s.policy.Get()),
		OwnerUserID:       sg.owner.ID,
		OwnerEmail:        sg.owner.Email,
		OwnerRole:         sg.owner.Role,
		VerificationToken: sg.owner.VerificationToken,
	})

	if sg.token != nil {
		stepCtx, cancel := context.WithTimeout(ctx, sg.timeout)
		defer cancel()
		s.recovery.Consume(stepCtx, sg.token, sg.tenant.ID.Int64())
	}
}

// recordAudit writes the audit trail for fresh outcomes. Replays and requests
// rejected before any lookup are not recorded.
func (s *service) recordAudit(ctx context.Context, req domain.Request, res *domain.Result, err error) {
	if s.audit == nil {
		return
	}
	switch {
	case err == nil && res.Replayed:
		return
	case err != nil:
		if code := domain.ErrorCode(err); code == domain.CodeValidation || code == domain.CodeCaptchaFailed {
			return
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.policy.Get().StepTimeout)
	defer cancel()

	entry := auditdomain.Entry{
		TargetType: auditdomain.TargetTenant,
		IPAddress:  req.RemoteIP,
		Metadata:   map[string]any{"plan_id": req.PlanID},
	}
	if err != nil {
		entry.Action = auditdomain.ActionSignupFailed
		entry.ActorType = auditdomain.ActorAnonymous
		entry.Metadata["code"] = domain.ErrorCode(err)
		entry.Sensitive = map[string]any{"owner_email": req.OwnerEmail}
	} else {
		if tenantID, perr := snowflake.ParseString(res.TenantID); perr == nil {
			entry.TenantID = &tenantID
		}
		entry.Action = auditdomain.ActionSignupCompleted
		entry.ActorType = auditdomain.ActorUser
		entry.ActorID = res.OwnerUserID
		entry.TargetID = res.TenantID
		if res.SubscriptionID != "" {
			entry.Sensitive = map[string]any{"subscription_id": res.SubscriptionID}
		}
	}

	// Record logs its own failures; an audit miss never fails the signup.
	_ = s.audit.Record(ctx, entry)
}

// step runs fn in a child span bounded by the per-step timeout.
func (s *service) step(ctx context.Context, sg *saga, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "signup."+name)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, sg.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, name)
		sg.log.Debug("signup step failed", zap.String("step", name), zap.Error(err))
		return err
	}
	return nil
}

func currencyFor(req domain.Request, plan *plandomain.Plan, policy config.SignupPolicy) string {
	if req.Currency != "" {
		return req.Currency
	}
	if plan != nil && plan.Currency != "" {
		return plan.Currency
	}
	return policy.DefaultCurrency
}

func fingerprint(sg *saga) string {
	return idempotencydomain.RequestFingerprint(sg.req.OwnerEmail, sg.code, sg.req.PlanID)
}
