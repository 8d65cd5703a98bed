package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/arcadia-sms/arcadia/internal/authz"
	"github.com/arcadia-sms/arcadia/internal/platform/httpx"
)

// Handler wires HTTP endpoints for authentication and account administration.
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
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountPublicRoutes registers unauthenticated auth routes.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

// MountProtectedRoutes registers routes that require a resolved principal.
func (h *Handler) MountProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.handleLogout)
	r.Put("/users/{userID}/role", h.handleChangeRole)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	BranchID string `json:"branch_id,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	principal, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.logger.Error("login failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		Token:    token,
		UserID:   principal.ID,
		Role:     string(principal.Role),
		BranchID: principal.BranchID,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), TokenFromRequest(r)); err != nil {
		h.logger.Warn("logout failed", slog.Any("error", err))
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}

	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	err := h.service.ChangeRole(r.Context(), principal, chi.URLParam(r, "userID"), req.Role)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ErrNotAllowed):
		httpx.Forbidden(w, authz.ReasonRoleEscalation)
	case errors.Is(err, ErrUnknownRole):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "user not found")
	default:
		h.logger.Error("change role failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
