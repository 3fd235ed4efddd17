package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/SocialGo/internal/service"
	"github.com/utafrali/SocialGo/pkg/httputil"
	"github.com/utafrali/SocialGo/pkg/validator"
)

// TweetHandler handles HTTP requests for tweets.
type TweetHandler struct {
	service *service.TweetService
	logger  *slog.Logger
}

// NewTweetHandler creates a new tweet HTTP handler.
func NewTweetHandler(svc *service.TweetService, logger *slog.Logger) *TweetHandler {
	return &TweetHandler{service: svc, logger: logger}
}

// TweetRequest is the JSON body for creating or updating a tweet.
type TweetRequest struct {
	Content string `json:"content" validate:"notblank,max=280"`
}

// Create handles POST /api/v1/tweets
func (h *TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req TweetRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	tweet, err := h.service.Create(r.Context(), userID, req.Content)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: tweet})
}

// ListByUser handles GET /api/v1/tweets/user/{userId}
func (h *TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ownerID, err := httputil.ParseUUID("user id", chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	tweets, err := h.service.ListByOwner(r.Context(), ownerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tweets})
}

// Get handles GET /api/v1/tweets/{tweetId}
func (h *TweetHandler) Get(w http.ResponseWriter, r *http.Request) {
	tweetID, err := httputil.ParseUUID("tweet id", chi.URLParam(r, "tweetId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	tweet, err := h.service.Get(r.Context(), tweetID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tweet})
}

// Update handles PATCH /api/v1/tweets/{tweetId}
func (h *TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	tweetID, err := httputil.ParseUUID("tweet id", chi.URLParam(r, "tweetId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req TweetRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	tweet, err := h.service.Update(r.Context(), userID, tweetID, req.Content)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tweet})
}

// Delete handles DELETE /api/v1/tweets/{tweetId}
func (h *TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	tweetID, err := httputil.ParseUUID("tweet id", chi.URLParam(r, "tweetId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), userID, tweetID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"id": tweetID.String(), "status": "deleted"},
	})
}
