package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/SocialGo/internal/auth"
	"github.com/utafrali/SocialGo/internal/event"
	"github.com/utafrali/SocialGo/internal/media"
	"github.com/utafrali/SocialGo/internal/service"
	"github.com/utafrali/SocialGo/pkg/health"
	"github.com/utafrali/SocialGo/pkg/httputil"
	"github.com/utafrali/SocialGo/pkg/logger"
	"github.com/utafrali/SocialGo/pkg/middleware"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type testServer struct {
	handler  http.Handler
	store    *memStore
	uploader *media.MemoryUploader
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	l := logger.Discard()
	store := newMemStore()
	tokens := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  "access-secret-for-handler-tests-0123",
		RefreshSecret: "refresh-secret-for-handler-tests-0123",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    240 * time.Hour,
	})
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	stager, err := media.NewStager(t.TempDir(), 1<<20)
	require.NoError(t, err)
	uploader := media.NewMemoryUploader("http://media.test")
	mediaSvc := media.NewService(stager, uploader, l)

	// A nil publisher turns event publishing into a no-op.
	events := event.NewProducer(nil, l)

	sessions := service.NewSessionManager(memUsers{store}, memSessions{store}, tokens, hasher, l)
	users := service.NewUserService(memUsers{store}, sessions, hasher, mediaSvc, events, l)
	tweets := service.NewTweetService(memTweets{store}, events, l)

	h := NewRouter(users, sessions, tweets, health.NewHandler(), l, RouterConfig{
		CORS:           middleware.DefaultCORSConfig(),
		CookieSecure:   true,
		MaxUploadBytes: 1 << 20,
		MediaFiles:     uploader,
	})
	return &testServer{handler: h, store: store, uploader: uploader}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type filePart struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", "application/octet-stream")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func registrationFields(username string) map[string]string {
	return map[string]string{
		"fullName": "Test " + username,
		"email":    username + "@example.com",
		"username": username,
		"password": "password-1",
	}
}

// envelope mirrors httputil.Response with the data left raw.
type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type loginResult struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	} `json:"tokens"`
}

// registerAndLogin creates a user through the API and returns its login result.
func (s *testServer) registerAndLogin(t *testing.T, username string) loginResult {
	t.Helper()
	rec := s.do(multipartRequest(t, http.MethodPost, "/api/v1/users/register",
		registrationFields(username), filePart{"avatar", "a.png", pngImage}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login",
		map[string]string{"username": username, "password": "password-1"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res loginResult
	decode(t, rec, &res)
	return res
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
