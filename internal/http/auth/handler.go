package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	"github.com/MrJamesThe3rd/receivables/internal/http/httpio"
)

type Handler struct {
	svc *auth.Service
	ttl time.Duration
}

func NewHandler(svc *auth.Service, ttl time.Duration) *Handler {
	return &Handler{svc: svc, ttl: ttl}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.login)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Role           auth.Role `json:"role"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        userResponse `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpio.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpio.Error(w, err)
		return
	}

	httpio.JSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.ttl.Seconds()),
		User: userResponse{
			ID:             u.ID,
			OrganizationID: u.OrganizationID,
			Email:          u.Email,
			FullName:       u.FullName,
			Role:           u.Role,
		},
	})
}
