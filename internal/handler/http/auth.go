package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/utafrali/SocialGo/internal/domain"
	"github.com/utafrali/SocialGo/internal/service"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
	"github.com/utafrali/SocialGo/pkg/httputil"
	"github.com/utafrali/SocialGo/pkg/middleware"
	"github.com/utafrali/SocialGo/pkg/validator"
)

// AuthHandler handles registration and session endpoints.
type AuthHandler struct {
	users          *service.UserService
	sessions       *service.SessionManager
	cookies        cookieWriter
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(
	users *service.UserService,
	sessions *service.SessionManager,
	cookies cookieWriter,
	maxUploadBytes int64,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:          users,
		sessions:       sessions,
		cookies:        cookies,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// --- Request DTOs ---

// RegisterForm holds the text fields of the multipart registration form.
type RegisterForm struct {
	FullName string `form:"fullName" validate:"notblank,max=100"`
	Email    string `form:"email" validate:"required,email"`
	Username string `form:"username" validate:"notblank,alphanum,max=50"`
	Password string `form:"password" validate:"required,min=8"`
}

// LoginRequest is the JSON request body for login. Either email or username
// identifies the account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required_without=Username,omitempty,email"`
	Username string `json:"username" validate:"required_without=Email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the optional JSON body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,nefield=CurrentPassword"`
}

// --- Response types ---

// AuthResponse wraps user data with tokens.
type AuthResponse struct {
	User   *domain.User      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// --- Handlers ---

// Register handles POST /api/v1/users/register (multipart/form-data).
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, 2, h.maxUploadBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := RegisterForm{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	avatar, avatarFile, err := formFile(r, "avatar")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if avatarFile != nil {
		defer avatarFile.Close()
	}

	cover, coverFile, err := formFile(r, "coverImage")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if coverFile != nil {
		defer coverFile.Close()
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		FullName:   form.FullName,
		Email:      form.Email,
		Username:   form.Username,
		Password:   form.Password,
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: user})
}

// Login handles POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	user, tokens, err := h.users.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.set(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AuthResponse{User: user, Tokens: tokens},
	})
}

// RefreshToken handles POST /api/v1/users/refresh-token. The refresh token
// comes from the refreshToken cookie, or from the JSON body when no cookie is sent.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" && r.Body != nil {
		var req RefreshTokenRequest
		if err := validator.DecodeAndValidate(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			httputil.WriteValidationError(w, r, err)
			return
		}
		token = req.RefreshToken
	}

	tokens, err := h.sessions.Renew(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.set(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tokens})
}

// Logout handles POST /api/v1/users/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.users.Logout(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.clear(w)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "logged out"},
	})
}

// ChangePassword handles POST /api/v1/users/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.sessions.ChangeCredential(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "password changed"},
	})
}

// currentUser returns the authenticated caller or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request, l *slog.Logger) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthenticated("user not authenticated"), l)
		return uuid.Nil, false
	}
	return userID, true
}
