package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/utafrali/SocialGo/internal/domain"
	"github.com/utafrali/SocialGo/internal/service"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
	"github.com/utafrali/SocialGo/pkg/httputil"
)

// UserHandler handles HTTP requests for the caller's profile.
type UserHandler struct {
	service        *service.UserService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, maxUploadBytes int64, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// GetProfile handles GET /api/v1/users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

// UpdateAvatar handles PATCH /api/v1/users/me/avatar (multipart field "avatar").
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.service.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/me/cover-image (multipart field "coverImage").
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.service.UpdateCoverImage)
}

type imageUpdater func(ctx context.Context, userID uuid.UUID, file service.FileInput) (*domain.User, error)

func (h *UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	if err := parseMultipart(w, r, 1, h.maxUploadBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	input, file, err := formFile(r, field)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if file == nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(field+" file is required"), h.logger)
		return
	}
	defer file.Close()

	user, err := update(r.Context(), userID, *input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}
