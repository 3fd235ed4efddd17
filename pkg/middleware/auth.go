package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/SocialGo/pkg/errors"
	"github.com/utafrali/SocialGo/pkg/httputil"
	"github.com/utafrali/SocialGo/pkg/logger"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// AccessTokenCookie is the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

// AccessVerifier checks an access token and returns the user it was issued to.
type AccessVerifier func(ctx context.Context, token string) (uuid.UUID, error)

// AccessTokenFromRequest returns the access token from the accessToken cookie,
// falling back to an "Authorization: Bearer" header. Empty when neither is set.
func AccessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate rejects requests without a valid access token and stores the
// caller's user ID in the request context.
func Authenticate(verify AccessVerifier, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := AccessTokenFromRequest(r)
			if token == "" {
				httputil.WriteError(w, r, apperrors.Unauthenticated("access token is required"), l)
				return
			}

			userID, err := verify(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, err, l)
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("enduser.id", userID.String()))

			ctx := WithUserID(r.Context(), userID)
			ctx = logger.WithUserID(ctx, userID.String())
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", userID.String())))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID stores the authenticated user ID in ctx.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the user ID set by Authenticate.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}
