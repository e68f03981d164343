// AngelaMos | 2026
// handler.go

package feedback

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/middleware"
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

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/feedback", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/{generationID}", h.List)
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	f, err := h.service.Submit(r.Context(), userID, req.GenerationID, *req.CopyIndex, req.Rating)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "generation")
			return
		}
		core.JSONError(w, err)
		return
	}

	if f.Inserted {
		core.Created(w, ToFeedbackResponse(f))
		return
	}
	core.OK(w, ToFeedbackResponse(f))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	items, err := h.service.List(r.Context(), userID, chi.URLParam(r, "generationID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "generation")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToFeedbackResponseList(items))
}
