package students

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/arcadia-sms/arcadia/internal/authz"
	"github.com/arcadia-sms/arcadia/internal/platform/httpx"
)

// Handler wires HTTP endpoints for student records.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers student routes on the provided router. Callers are
// expected to have attached the principal already.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{studentID}", h.handleGet)
	r.Put("/{studentID}", h.handleUpdate)
	r.Delete("/{studentID}", h.handleDelete)
}

// MountImportRoutes registers the bulk-import route separately so the router
// can wrap it in a stricter rate-limit class.
func (h *Handler) MountImportRoutes(r chi.Router) {
	r.Post("/", h.handleImport)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}
	var fields []string
	if raw := r.URL.Query().Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	doc, err := h.service.Get(r.Context(), principal, chi.URLParam(r, "studentID"), fields)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type listResponse struct {
	Students []studentSummary `json:"students"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

type studentSummary struct {
	ID       string  `json:"id"`
	BranchID string  `json:"branch_id"`
	Number   string  `json:"number"`
	FullName string  `json:"full_name"`
	ClassID  *string `json:"class_id,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.service.List(r.Context(), principal, q.Get("branch_id"), q.Get("class_id"), page, pageSize)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}
	summaries := make([]studentSummary, 0, len(result.Students))
	for _, s := range result.Students {
		summaries = append(summaries, studentSummary{
			ID:       s.ID,
			BranchID: s.BranchID,
			Number:   s.Number,
			FullName: s.FullName,
			ClassID:  s.ClassID,
		})
	}
	httpx.JSON(w, http.StatusOK, listResponse{Students: summaries, Total: result.Total, Page: page, PageSize: pageSize})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}
	var input CreateStudentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.service.Create(r.Context(), principal, input)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}
	var input UpdateStudentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.Update(r.Context(), principal, chi.URLParam(r, "studentID"), input); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}
	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "studentID")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}
	var inputs []CreateStudentInput
	if err := httpx.DecodeJSON(r, &inputs); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if len(inputs) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "empty import batch")
		return
	}
	result, err := h.service.Import(r.Context(), principal, inputs)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "student not found")
	default:
		httpx.RespondError(w, err)
	}
}
