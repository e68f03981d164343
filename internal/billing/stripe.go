// AngelaMos | 2026
// stripe.go

package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/carterperez-dev/copystudio/internal/core"
)

const (
	metadataUserID       = "user_id"
	legacyMetadataUserID = "userId"
	metadataPricing      = "pricing_version"
)

type StripeProcessor struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProcessor uses a client scoped to key rather than the package
// level stripe.Key. backends may be nil.
func NewStripeProcessor(key, webhookSecret string, backends *stripe.Backends) *StripeProcessor {
	return &StripeProcessor{
		api:           client.New(key, backends),
		webhookSecret: webhookSecret,
	}
}

func (p *StripeProcessor) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataUserID, req.UserID)
	params.AddMetadata(metadataPricing, req.PricingVersion)

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	return sess.URL, nil
}

func (p *StripeProcessor) ConstructEvent(payload []byte, signature string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		p.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %w", core.ErrSignatureInvalid, err)
		}
		return nil, fmt.Errorf("decode event: %w: %w", core.ErrDataIncomplete, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if out.Type != EventCheckoutCompleted && out.Type != EventAsyncPaymentSucceeded {
		return out, nil
	}

	if evt.Data == nil {
		return nil, fmt.Errorf("event %s has no data: %w", evt.ID, core.ErrDataIncomplete)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w: %w", core.ErrDataIncomplete, err)
	}

	out.Session = toSession(&sess)
	return out, nil
}

func (p *StripeProcessor) SessionLineItem(ctx context.Context, sessionID string) (string, int64, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	sess, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return "", 0, fmt.Errorf("retrieve checkout session %s: %w", sessionID, err)
	}

	s := toSession(sess)
	if s.PriceID == "" {
		return "", 0, fmt.Errorf("session %s has no priced line item: %w", sessionID, core.ErrDataIncomplete)
	}
	return s.PriceID, s.Quantity, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func toSession(sess *stripe.CheckoutSession) *Session {
	s := &Session{
		ID:                sess.ID,
		ClientReferenceID: sess.ClientReferenceID,
		PaymentStatus:     string(sess.PaymentStatus),
		AmountTotal:       sess.AmountTotal,
		Currency:          string(sess.Currency),
	}

	if sess.Metadata != nil {
		s.UserID = sess.Metadata[metadataUserID]
		if s.UserID == "" {
			s.UserID = sess.Metadata[legacyMetadataUserID]
		}
	}

	if sess.LineItems != nil && len(sess.LineItems.Data) > 0 {
		item := sess.LineItems.Data[0]
		if item.Price != nil {
			s.PriceID = item.Price.ID
		}
		s.Quantity = item.Quantity
	}

	return s
}
