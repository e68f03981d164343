// AngelaMos | 2026
// handler.go

package upload

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/middleware"
)

const maxRequestBody = 16 * 1024

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
	r.Route("/uploads", func(r chi.Router) {
		r.Post("/", h.RequestSlot)
		r.Post("/finalize", h.Finalize)
	})
}

func (h *Handler) RequestSlot(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SlotRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	slot, err := h.service.RequestUploadSlot(r.Context(), userID, req.Filename, req.ContentType, req.Size)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, SlotResponse{
		UploadURL: slot.UploadURL,
		FileKey:   slot.FileKey,
		PublicURL: slot.PublicURL,
	})
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req FinalizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	u, publicURL, err := h.service.FinalizeUpload(r.Context(), userID, req.FileKey, req.ContentType, req.Size)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("file_key"))
			return
		}
		writeError(w, err)
		return
	}

	core.Created(w, FinalizeResponse{
		ID:        u.ID,
		FileKey:   u.FileKey,
		PublicURL: publicURL,
	})
}

func writeError(w http.ResponseWriter, err error) {
	if IsInvalidUpload(err) {
		core.BadRequest(w, err.Error())
		return
	}
	core.JSONError(w, err)
}
