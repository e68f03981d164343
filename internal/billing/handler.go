// AngelaMos | 2026
// handler.go

package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/middleware"
)

const (
	SignatureHeader = "Stripe-Signature"
	WebhookPath     = "/webhooks/stripe"
	maxWebhookBody  = int64(65536)
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes expects r to already sit behind the authenticator.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.Get("/packages", h.Packages)
		r.Post("/checkout", h.Checkout)
	})
}

// RegisterWebhookRoutes mounts the provider callback, which authenticates by
// signature instead of a bearer token.
func (h *Handler) RegisterWebhookRoutes(r chi.Router) {
	r.Post(WebhookPath, h.Webhook)
}

func (h *Handler) Packages(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.service.Packages())
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	url, err := h.service.CreateCheckout(r.Context(), userID, req.PriceID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, CheckoutResponse{URL: url})
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		core.BadRequest(w, "invalid payload")
		return
	}

	outcome, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, core.ErrSignatureInvalid) {
			core.JSONError(w, core.SignatureInvalidError())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, WebhookResponse{Received: true, Outcome: outcome})
}
