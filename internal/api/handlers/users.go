package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"scamlens/internal/domain/models"
	"scamlens/internal/domain/services"
	"scamlens/pkg/logger"
)

// UsersHandler handles user administration and flagged emails
type UsersHandler struct {
	accounts *services.AccountService
	logger   *logger.Logger
}

// NewUsersHandler creates a new UsersHandler
func NewUsersHandler(accounts *services.AccountService, log *logger.Logger) *UsersHandler {
	return &UsersHandler{
		accounts: accounts,
		logger:   log.WithComponent("users-handler"),
	}
}

// CreateUserRequest is the body of POST /api/users
type CreateUserRequest struct {
	ID    string `json:"id,omitempty" validate:"max=128"`
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name,omitempty" validate:"max=200"`
	Image string `json:"image,omitempty" validate:"omitempty,url"`
	Tier  string `json:"tier,omitempty" validate:"omitempty,oneof=free basic paid"`
}

// UpdateUserRequest is the body of PUT /api/users/{id}
type UpdateUserRequest struct {
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Tier  *string `json:"tier,omitempty" validate:"omitempty,oneof=free basic paid"`
}

// List handles GET /api/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list users")
		respondError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Create handles POST /api/users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.accounts.CreateUser(r.Context(), &models.User{
		ID:    req.ID,
		Email: req.Email,
		Name:  req.Name,
		Image: req.Image,
		Tier:  req.Tier,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

// Get handles GET /api/users/{id}
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.accounts.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

// Update handles PUT /api/users/{id}
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.accounts.UpdateUser(r.Context(), chi.URLParam(r, "id"), models.UserUpdate{
		Email: req.Email,
		Tier:  req.Tier,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

// Delete handles DELETE /api/users/{id}
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FlaggedEmailRequest is the body of POST and PUT /api/flagged-emails
type FlaggedEmailRequest struct {
	UserID   string   `json:"userId,omitempty" validate:"max=128"`
	Sender   string   `json:"sender" validate:"max=320"`
	Subject  string   `json:"subject,omitempty" validate:"max=998"`
	Content  string   `json:"content" validate:"max=50000"`
	RedFlags []string `json:"redFlags,omitempty" validate:"max=100"`
	Notes    string   `json:"notes,omitempty" validate:"max=5000"`
}

// ListFlagged handles GET /api/flagged-emails?userId=
func (h *UsersHandler) ListFlagged(w http.ResponseWriter, r *http.Request) {
	emails, err := h.accounts.ListFlaggedEmails(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list flagged emails")
		respondError(w, http.StatusInternalServerError, "Failed to read flagged emails")
		return
	}
	respondJSON(w, http.StatusOK, emails)
}

// CreateFlagged handles POST /api/flagged-emails
func (h *UsersHandler) CreateFlagged(w http.ResponseWriter, r *http.Request) {
	var req FlaggedEmailRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.accounts.FlagEmail(r.Context(), &models.FlaggedEmail{
		UserID:   req.UserID,
		Sender:   req.Sender,
		Subject:  req.Subject,
		Content:  req.Content,
		RedFlags: req.RedFlags,
		Notes:    req.Notes,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

// UpdateFlagged handles PUT /api/flagged-emails/{id}
func (h *UsersHandler) UpdateFlagged(w http.ResponseWriter, r *http.Request) {
	id, ok := flaggedID(w, r)
	if !ok {
		return
	}
	var req FlaggedEmailRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.accounts.UpdateFlaggedEmail(r.Context(), &models.FlaggedEmail{
		ID:       id,
		Sender:   req.Sender,
		Subject:  req.Subject,
		Content:  req.Content,
		RedFlags: req.RedFlags,
		Notes:    req.Notes,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// DeleteFlagged handles DELETE /api/flagged-emails/{id}
func (h *UsersHandler) DeleteFlagged(w http.ResponseWriter, r *http.Request) {
	id, ok := flaggedID(w, r)
	if !ok {
		return
	}
	if err := h.accounts.DeleteFlaggedEmail(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func flaggedID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid flagged email id.")
		return uuid.Nil, false
	}
	return id, true
}
