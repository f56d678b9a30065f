package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/exzly/exzly/internal/auth"
	"github.com/exzly/exzly/internal/models"
	"github.com/exzly/exzly/internal/repositories"
	"github.com/exzly/exzly/internal/services"
	pkghttp "github.com/exzly/exzly/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserServiceInterface defines the interface for account management
type UserServiceInterface interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, params repositories.ListParams) ([]*models.User, int64, int64, error)
	Create(ctx context.Context, input services.CreateUserInput) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, input services.UpdateProfileInput) (*models.User, error)
	UpdateCredentials(ctx context.Context, id int64, input services.UpdateCredentialsInput) (*models.User, error)
	UpdatePhoto(ctx context.Context, id int64, photo string) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id int64, force bool) error
	Restore(ctx context.Context, actor *models.User, id int64) (*models.User, error)
}

// UsersHandler handles the account management endpoints
type UsersHandler struct {
	service UserServiceInterface
	env     string
}

// NewUsersHandler creates a new UsersHandler
func NewUsersHandler(service UserServiceInterface, env string) *UsersHandler {
	return &UsersHandler{
		service: service,
		env:     env,
	}
}

const (
	defaultListSize = 10
	maxListSize     = 100
)

// CreateUserRequest represents the admin-create request body
type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Username string  `json:"username" validate:"required,username"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	FullName string  `json:"fullName" validate:"required,min=2,max=80"`
	Gender   *string `json:"gender" validate:"omitempty,oneof=male female"`
	IsAdmin  bool    `json:"isAdmin"`
}

// UpdateProfileRequest represents the profile update request body
type UpdateProfileRequest struct {
	FullName string  `json:"fullName" validate:"required,min=2,max=80"`
	Gender   *string `json:"gender" validate:"omitempty,oneof=male female"`
}

// UpdateCredentialsRequest represents the credentials update request
// body. NewPassword is optional but must be confirmed when present.
type UpdateCredentialsRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"required,username"`
	NewPassword     string `json:"newPassword" validate:"omitempty,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=NewPassword"`
}

// UpdatePhotoRequest carries the stored photo reference. Upload and
// resizing happen in collaborating middleware; only the reference is
// persisted here.
type UpdatePhotoRequest struct {
	Photo string `json:"photo" validate:"required"`
}

// List handles the admin user listing with pagination and trash view
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	params := repositories.ListParams{
		Skip:    queryInt(r, "skip", 0),
		Size:    queryInt(r, "size", defaultListSize),
		Search:  r.URL.Query().Get("search"),
		InTrash: r.URL.Query().Get("in-trash") == "true",
	}
	if params.Skip < 0 {
		params.Skip = 0
	}
	if params.Size < 1 || params.Size > maxListSize {
		params.Size = defaultListSize
	}

	users, total, filtered, err := h.service.List(r.Context(), params)
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	out := make([]*services.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, services.UserToResponse(user, true))
	}

	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	w.Header().Set("X-Filtered-Count", strconv.FormatInt(filtered, 10))
	writeJSON(w, http.StatusOK, out)
}

// Create handles admin account creation
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	user, err := h.service.Create(r.Context(), services.CreateUserInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Gender:   req.Gender,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	writeJSON(w, http.StatusCreated, services.UserToResponse(user, true))
}

// GetProfile returns one user. The email field is only included when
// the viewer is the target or an admin.
func (h *UsersHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	targetID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), targetID)
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	includeEmail := actor.IsAdmin || actor.ID == user.ID
	writeJSON(w, http.StatusOK, services.UserToResponse(user, includeEmail))
}

// UpdateProfile handles fullName/gender updates for self or admin
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	targetID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if !canManage(actor, targetID) {
		pkghttp.WriteForbidden(w, "you may only modify your own profile")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), targetID, services.UpdateProfileInput{
		FullName: req.FullName,
		Gender:   req.Gender,
	})
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, services.UserToResponse(user, true))
}

// UpdateCredentials handles email/username/password updates
func (h *UsersHandler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	targetID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if !canManage(actor, targetID) {
		pkghttp.WriteForbidden(w, "you may only modify your own credentials")
		return
	}

	var req UpdateCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	user, err := h.service.UpdateCredentials(r.Context(), targetID, services.UpdateCredentialsInput{
		Email:       req.Email,
		Username:    req.Username,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, services.UserToResponse(user, true))
}

// UpdatePhoto stores a new photo reference for self or admin
func (h *UsersHandler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	targetID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if !canManage(actor, targetID) {
		pkghttp.WriteForbidden(w, "you may only modify your own profile")
		return
	}

	var req UpdatePhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		pkghttp.WriteValidationError(w, verr)
		return
	}

	user, err := h.service.UpdatePhoto(r.Context(), targetID, req.Photo)
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, services.UserToResponse(user, true))
}

// Delete trashes an account, or purges an already-trashed account when
// ?in-trash=true is set
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	targetID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if !canManage(actor, targetID) {
		pkghttp.WriteForbidden(w, "you may only delete your own account")
		return
	}

	force := r.URL.Query().Get("in-trash") == "true"

	if err := h.service.Delete(r.Context(), actor, targetID, force); err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Restore brings a trashed account back (admin only, guarded at the route)
func (h *UsersHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	targetID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.service.Restore(r.Context(), actor, targetID)
	if err != nil {
		pkghttp.WriteDomainError(w, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, services.UserToResponse(user, true))
}

// canManage reports whether the actor may act on the target account.
func canManage(actor *models.User, targetID int64) bool {
	return actor.IsAdmin || actor.ID == targetID
}

// userIDParam parses the {userId} route parameter, writing a 400 on
// malformed input.
func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || id < 1 {
		pkghttp.WriteBadRequest(w, "invalid user id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
