// AngelaMos | 2026
// handler.go

package generation

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/middleware"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxBriefBody = 32 * 1024
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
	r.Route("/generations", func(r chi.Router) {
		r.Post("/", h.Generate)
		r.Get("/", h.List)
		r.Get("/{generationID}", h.Get)
		r.Get("/{generationID}/export", h.Export)
	})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBriefBody)).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	res, err := h.service.Generate(
		r.Context(),
		userID,
		r.Header.Get(IdempotencyKeyHeader),
		req.ToBrief(),
	)
	if err != nil {
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			secs := int(math.Ceil(rlErr.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
		}
		core.JSONError(w, err)
		return
	}

	if res.Replayed {
		w.Header().Set(ReplayedHeader, "true")
		core.OK(w, ToGenerateResponse(res))
		return
	}

	core.Created(w, ToGenerateResponse(res))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	g, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "generationID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "generation")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToGenerationResponse(g))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	page, pageSize := normalizePage(
		core.QueryInt(r, "page", 1),
		core.QueryInt(r, "page_size", 20),
	)

	gens, total, err := h.service.List(r.Context(), userID, page, pageSize)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Paginated(w, ToGenerationResponseList(gens), page, pageSize, total)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	exp, err := h.service.Export(
		r.Context(),
		userID,
		chi.URLParam(r, "generationID"),
		r.URL.Query().Get("format"),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "generation")
			return
		}
		core.JSONError(w, err)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exp.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // best-effort response write
	_, _ = w.Write(exp.Body)
}
