// AngelaMos | 2026
// service.go

package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/copystudio/internal/completion"
	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/credit"
	"github.com/carterperez-dev/copystudio/internal/events"
	"github.com/carterperez-dev/copystudio/internal/metrics"
	"github.com/carterperez-dev/copystudio/internal/prompt"
	"github.com/carterperez-dev/copystudio/internal/ratelimit"
)

const (
	OutcomeSuccess             = "success"
	OutcomeRateLimited         = "rate_limited"
	OutcomeInsufficientCredits = "insufficient_credits"
	OutcomeModelError          = "model_error"
	OutcomeStorageError        = "storage_error"
	OutcomeReplayed            = "replayed"

	maxPageSize = 50
)

type RateLimiter interface {
	Allow(ctx context.Context, userID string) (ratelimit.Result, error)
}

type Ledger interface {
	TryDebit(ctx context.Context, userID string, amount int, reference string) (int, error)
	Refund(ctx context.Context, userID string, amount int, reference string) (int, error)
}

// RateLimitError carries how long the caller should wait before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("generation rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return core.ErrRateLimited
}

type Deps struct {
	Repo        Repository
	Ledger      Ledger
	Limiter     RateLimiter
	Model       completion.Generator
	Idempotency IdempotencyStore
	Events      events.Publisher
	Metrics     metrics.Recorder
	Tracer      trace.Tracer
}

type Options struct {
	CreditCost            int
	RequireIdempotencyKey bool
}

type Service struct {
	repo        Repository
	ledger      Ledger
	limiter     RateLimiter
	model       completion.Generator
	idempotency IdempotencyStore
	events      events.Publisher
	metrics     metrics.Recorder
	tracer      trace.Tracer
	opts        Options
	newID       func() string
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(d Deps, opts Options) *Service {
	if opts.CreditCost < 1 {
		opts.CreditCost = 1
	}
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Noop{}
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer(core.TracerGeneration)
	}

	return &Service{
		repo:        d.Repo,
		ledger:      d.Ledger,
		limiter:     d.Limiter,
		model:       d.Model,
		idempotency: d.Idempotency,
		events:      d.Events,
		metrics:     d.Metrics,
		tracer:      d.Tracer,
		opts:        opts,
		newID:       func() string { return uuid.New().String() },
		now:         time.Now,
		logger:      slog.Default(),
	}
}

// Generate runs one paid generation. Side effects happen strictly in this
// order: idempotency claim, rate check, debit, model call, persist, event.
// Any failure after the debit refunds it before the error is returned.
//
//nolint:gocyclo // linear state machine
func (s *Service) Generate(
	ctx context.Context,
	userID, idempotencyKey string,
	brief prompt.Brief,
) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, core.SpanGenerate,
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if userID == "" {
		return nil, fmt.Errorf("generate: %w", core.ErrUnauthorized)
	}

	if strings.TrimSpace(brief.ScreenshotURL) == "" {
		return nil, fmt.Errorf("brief screenshot_url is required: %w", core.ErrInvalidInput)
	}

	instruction, err := prompt.Build(brief)
	if err != nil {
		return nil, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" && s.opts.RequireIdempotencyKey {
		return nil, fmt.Errorf("idempotency key header is required: %w", core.ErrInvalidInput)
	}

	if idempotencyKey != "" && s.idempotency != nil {
		prior, beginErr := s.idempotency.Begin(ctx, userID, idempotencyKey)
		if beginErr != nil {
			return nil, beginErr
		}
		if prior != nil {
			prior.Replayed = true
			span.AddEvent("idempotent_replay")
			s.metrics.RecordGeneration(OutcomeReplayed)
			return prior, nil
		}
		// err is the named result, so every failure below frees the key.
		defer func() {
			if err != nil {
				s.idempotency.Release(context.WithoutCancel(ctx), userID, idempotencyKey)
			}
		}()
	}

	rl, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("rate check: %w", err)
	}
	if !rl.Allowed {
		s.metrics.RecordGeneration(OutcomeRateLimited)
		return nil, &RateLimitError{RetryAfter: rl.RetryAfter}
	}
	span.AddEvent("rate_checked")

	genID := s.newID()
	span.SetAttributes(attribute.String("generation.id", genID))

	balance, err := s.ledger.TryDebit(ctx, userID, s.opts.CreditCost, credit.DebitReference(genID))
	if err != nil {
		if errors.Is(err, core.ErrInsufficientCredits) {
			s.metrics.RecordGeneration(OutcomeInsufficientCredits)
		}
		return nil, err
	}
	span.AddEvent("debited", trace.WithAttributes(attribute.Int("balance", balance)))

	// Credits are spent; a client hang-up must not skip the refund path.
	ctx = context.WithoutCancel(ctx)

	start := s.now()
	copies, err := s.model.Generate(ctx, instruction, brief.ScreenshotURL)
	if err != nil {
		s.metrics.ObserveModelLatency("error", s.now().Sub(start))
		s.metrics.RecordGeneration(OutcomeModelError)
		s.refund(ctx, userID, genID, "model_error")
		if !errors.Is(err, core.ErrModel) {
			err = fmt.Errorf("%w: %w", core.ErrModel, err)
		}
		return nil, err
	}
	s.metrics.ObserveModelLatency("ok", s.now().Sub(start))
	span.AddEvent("completed", trace.WithAttributes(attribute.Int("copies", len(copies))))

	g := &Generation{
		ID:             genID,
		UserID:         userID,
		ScreenshotURL:  brief.ScreenshotURL,
		BriefSummary:   brief.Summary(),
		TargetAudience: AudienceColumn(brief.Audience),
		Copies:         copies,
		CreditsUsed:    s.opts.CreditCost,
		PromptVersion:  prompt.Version,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		s.logger.Error("persist generation failed",
			"user_id", userID,
			"generation_id", genID,
			"error", err,
		)
		s.metrics.RecordGeneration(OutcomeStorageError)
		s.refund(ctx, userID, genID, "storage_error")
		return nil, fmt.Errorf("persist generation: %w", core.StorageError())
	}
	span.AddEvent("persisted")

	s.publish(ctx, events.New(events.TypeGenerationCompleted, userID, map[string]any{
		"generation_id": genID,
		"credits_used":  s.opts.CreditCost,
		"copies":        len(copies),
	}))

	res = &Result{
		GenerationID: genID,
		Copies:       copies,
		CreditsUsed:  s.opts.CreditCost,
		Balance:      balance,
		CreatedAt:    g.CreatedAt,
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.Complete(ctx, userID, idempotencyKey, res); err != nil {
			s.logger.Warn("remember idempotent result failed",
				"user_id", userID,
				"generation_id", genID,
				"error", err,
			)
		}
	}

	s.metrics.RecordGeneration(OutcomeSuccess)
	s.logger.Info("generation completed",
		"user_id", userID,
		"generation_id", genID,
		"balance", balance,
	)

	return res, nil
}

func (s *Service) refund(ctx context.Context, userID, genID, reason string) {
	balance, err := s.ledger.Refund(ctx, userID, s.opts.CreditCost, credit.RefundReference(genID))
	if err != nil {
		s.metrics.RecordRefundFailure()
		s.logger.Error("refund failed, credits owed to user",
			"user_id", userID,
			"generation_id", genID,
			"credits", s.opts.CreditCost,
			"reason", reason,
			"error", err,
		)
		return
	}

	s.logger.Warn("generation refunded",
		"user_id", userID,
		"generation_id", genID,
		"reason", reason,
		"balance", balance,
	)

	s.publish(ctx, events.New(events.TypeGenerationRefunded, userID, map[string]any{
		"generation_id": genID,
		"credits":       s.opts.CreditCost,
		"reason":        reason,
	}))
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("publish event failed",
			"event_type", e.Type,
			"user_id", e.UserID,
			"error", err,
		)
	}
}

// Get returns a generation owned by userID. Other users' generations are
// reported as not found.
func (s *Service) Get(ctx context.Context, userID, id string) (*Generation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get generation %q: %w", id, core.ErrNotFound)
	}

	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.UserID != userID {
		return nil, fmt.Errorf("get generation %s: %w", id, core.ErrNotFound)
	}
	return g, nil
}

func (s *Service) List(
	ctx context.Context,
	userID string,
	page, pageSize int,
) ([]Generation, int, error) {
	page, pageSize = normalizePage(page, pageSize)

	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	gens, err := s.repo.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}

	return gens, total, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}
	return page, pageSize
}
