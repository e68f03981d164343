// AngelaMos | 2026
// service.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/copystudio/internal/config"
	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/credit"
	"github.com/carterperez-dev/copystudio/internal/events"
	"github.com/carterperez-dev/copystudio/internal/metrics"
)

const (
	OutcomeCredited         = "credited"
	OutcomeIgnored          = "ignored"
	OutcomeNotPaid          = "not_paid"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeDataIncomplete   = "data_incomplete"
	OutcomeUnmappedPrice    = "unmapped_price"
	OutcomeSignatureInvalid = "signature_invalid"
	OutcomeError            = "error"
)

type Ledger interface {
	Credit(ctx context.Context, userID string, p credit.Purchase) (int, error)
}

type Service struct {
	processor  Processor
	pricing    *Pricing
	ledger     Ledger
	events     events.Publisher
	metrics    metrics.Recorder
	successURL string
	cancelURL  string
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewService(
	processor Processor,
	pricing *Pricing,
	ledger Ledger,
	pub events.Publisher,
	rec metrics.Recorder,
	cfg config.BillingConfig,
) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{
		processor:  processor,
		pricing:    pricing,
		ledger:     ledger,
		events:     pub,
		metrics:    rec,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		tracer:     otel.Tracer(core.TracerBilling),
		logger:     slog.Default(),
	}
}

func (s *Service) Packages() []Package {
	return s.pricing.Packages()
}

// CreateCheckout starts a hosted checkout for one configured package. The
// user id travels in the session metadata so the webhook can credit them.
func (s *Service) CreateCheckout(ctx context.Context, userID, priceID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("create checkout: %w", core.ErrUnauthorized)
	}
	if _, ok := s.pricing.Lookup(priceID); !ok {
		return "", fmt.Errorf("unknown price id %q: %w", priceID, core.ErrInvalidInput)
	}

	url, err := s.processor.CreateCheckout(ctx, CheckoutRequest{
		UserID:         userID,
		PriceID:        priceID,
		PricingVersion: s.pricing.Version(),
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("checkout session created",
		"user_id", userID,
		"price_id", priceID,
	)
	return url, nil
}

// HandleWebhook provisions credits for a paid checkout. A nil error means
// the event should be acknowledged even when nothing was credited; bad
// data is logged rather than retried. A returned error is either
// core.ErrSignatureInvalid or an infrastructure failure worth retrying.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	ctx, span := s.tracer.Start(ctx, core.SpanWebhook,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.Int("webhook.payload_bytes", len(payload))),
	)
	defer span.End()

	outcome, err := s.handleWebhook(ctx, payload, signature)
	s.metrics.RecordWebhook(outcome)

	span.SetAttributes(attribute.String("webhook.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return outcome, err
}

//nolint:gocyclo // one branch per acknowledged outcome
func (s *Service) handleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	evt, err := s.processor.ConstructEvent(payload, signature)
	if err != nil {
		if errors.Is(err, core.ErrSignatureInvalid) {
			s.logger.Warn("webhook signature rejected", "error", err)
			return OutcomeSignatureInvalid, err
		}
		s.logger.Warn("webhook payload unusable", "error", err)
		return OutcomeDataIncomplete, nil
	}

	if evt.Type != EventCheckoutCompleted && evt.Type != EventAsyncPaymentSucceeded {
		return OutcomeIgnored, nil
	}

	sess := evt.Session
	if sess == nil || sess.ID == "" {
		s.logger.Warn("webhook event without checkout session", "event_id", evt.ID)
		return OutcomeDataIncomplete, nil
	}

	log := s.logger.With("event_id", evt.ID, "session_id", sess.ID)

	userID := sess.UserID
	if userID == "" {
		userID = sess.ClientReferenceID
	}
	if userID == "" {
		log.Warn("checkout session has no user id")
		return OutcomeDataIncomplete, nil
	}
	log = log.With("user_id", userID)

	if sess.PaymentStatus != PaymentStatusPaid {
		log.Info("checkout session not paid yet", "payment_status", sess.PaymentStatus)
		return OutcomeNotPaid, nil
	}

	priceID, quantity := sess.PriceID, sess.Quantity
	if priceID == "" {
		priceID, quantity, err = s.processor.SessionLineItem(ctx, sess.ID)
		if errors.Is(err, core.ErrDataIncomplete) {
			log.Warn("checkout session has no price", "error", err)
			return OutcomeDataIncomplete, nil
		}
		if err != nil {
			log.Error("fetch checkout line items failed", "error", err)
			return OutcomeError, err
		}
	}

	pkg, ok := s.pricing.Lookup(priceID)
	if !ok {
		log.Warn("price not mapped to credits",
			"price_id", priceID,
			"pricing_version", s.pricing.Version(),
			"error", core.ErrUnmappedPrice,
		)
		return OutcomeUnmappedPrice, nil
	}

	credits := pkg.Credits * int(max(quantity, 1))

	balance, err := s.ledger.Credit(ctx, userID, credit.Purchase{
		Credits:          credits,
		AmountPaidCents:  sess.AmountTotal,
		Currency:         sess.Currency,
		PaymentReference: sess.ID,
		PriceID:          priceID,
	})
	switch {
	case errors.Is(err, core.ErrAlreadyProcessed):
		log.Info("checkout session already credited")
		return OutcomeAlreadyProcessed, nil
	case errors.Is(err, core.ErrDataIncomplete):
		log.Warn("credit purchase rejected", "error", err)
		return OutcomeDataIncomplete, nil
	case err != nil:
		log.Error("credit purchase failed", "error", err)
		return OutcomeError, err
	}

	log.Info("credits provisioned",
		"credits", credits,
		"price_id", priceID,
		"balance", balance,
	)

	if err := s.events.Publish(ctx, events.New(events.TypeCreditsProvisioned, userID, map[string]any{
		"session_id":        sess.ID,
		"price_id":          priceID,
		"credits":           credits,
		"amount_paid_cents": sess.AmountTotal,
		"currency":          sess.Currency,
	})); err != nil {
		log.Warn("publish event failed", "event_type", events.TypeCreditsProvisioned, "error", err)
	}

	return OutcomeCredited, nil
}
