// AngelaMos | 2026
// processor.go

package billing

import "context"

const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	PaymentStatusPaid          = "paid"
)

type CheckoutRequest struct {
	UserID         string
	PriceID        string
	PricingVersion string
	SuccessURL     string
	CancelURL      string
}

// Session is the part of a checkout session the webhook needs.
type Session struct {
	ID                string
	UserID            string
	ClientReferenceID string
	PaymentStatus     string
	AmountTotal       int64
	Currency          string
	PriceID           string
	Quantity          int64
}

type Event struct {
	ID      string
	Type    string
	Session *Session
}

// Processor is the payment provider seen from this service.
type Processor interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error)
	ConstructEvent(payload []byte, signature string) (*Event, error)
	SessionLineItem(ctx context.Context, sessionID string) (priceID string, quantity int64, err error)
}
