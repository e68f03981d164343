// AngelaMos | 2026
// dto.go

package billing

type CreateCheckoutRequest struct {
	PriceID string `json:"price_id" validate:"required,max=255"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}
