package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/luire/url-shortener/internal/auth"
	"github.com/luire/url-shortener/internal/database"
	"github.com/luire/url-shortener/internal/models"
	"github.com/luire/url-shortener/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errUnknown = errors.New("unknown error")

type MockURLService struct {
	mock.Mock
}

func (s *MockURLService) Shorten(ctx context.Context, originalURL, customCode string) (*models.URL, error) {
	args := s.Called(ctx, originalURL, customCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (s *MockURLService) Resolve(ctx context.Context, shortCode string) (string, error) {
	args := s.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

func (s *MockURLService) Stats(ctx context.Context, shortCode string) (*models.URL, error) {
	args := s.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (s *MockURLService) List(ctx context.Context) ([]models.URL, error) {
	args := s.Called(ctx)
	urls, _ := args.Get(0).([]models.URL)
	return urls, args.Error(1)
}

func (s *MockURLService) Update(ctx context.Context, id int64, newShortCode, newOriginalURL string) (*models.URL, error) {
	args := s.Called(ctx, id, newShortCode, newOriginalURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (s *MockURLService) Delete(ctx context.Context, id int64) error {
	args := s.Called(ctx, id)
	return args.Error(0)
}

func setupRouter(t testing.TB) (http.Handler, *MockURLService, *auth.SessionStore) {
	t.Helper()

	svc := new(MockURLService)
	sessions := auth.NewSessionStore("secret", time.Hour)

	logger := httplog.NewLogger("test", httplog.Options{Writer: testWriter{}})
	r := NewRouter(logger, svc, sessions, Config{
		BaseURL:         "https://sho.rt",
		AdminHostPrefix: "admin.",
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
	})

	return r, svc, sessions
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func doJSON(t testing.TB, handler http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func decodeBody(t testing.TB, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestHandleShorten(t *testing.T) {
	const path = "/api/shorten"

	t.Run("empty request body", func(t *testing.T) {
		r, _, _ := setupRouter(t)

		rec := doJSON(t, r, http.MethodPost, path, "", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing url", func(t *testing.T) {
		r, _, _ := setupRouter(t)

		rec := doJSON(t, r, http.MethodPost, path, `{}`, "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "URL is required", decodeBody(t, rec)["error"])
	})

	t.Run("invalid url", func(t *testing.T) {
		r, svc, _ := setupRouter(t)

		svc.On("Shorten", mock.Anything, "not a url", "").
			Return(nil, service.ErrInvalidURL).
			Once()

		rec := doJSON(t, r, http.MethodPost, path, `{"url":"not a url"}`, "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid URL format", decodeBody(t, rec)["error"])
	})

	t.Run("custom code taken", func(t *testing.T) {
		r, svc, _ := setupRouter(t)

		svc.On("Shorten", mock.Anything, "https://example.com", "taken").
			Return(nil, service.ErrCodeTaken).
			Once()

		rec := doJSON(t, r, http.MethodPost, path, `{"url":"https://example.com","customCode":"taken"}`, "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Custom code already in use", decodeBody(t, rec)["error"])
	})

	t.Run("retry exhausted", func(t *testing.T) {
		r, svc, _ := setupRouter(t)

		svc.On("Shorten", mock.Anything, "https://example.com", "").
			Return(nil, service.ErrRetryExhausted).
			Once()

		rec := doJSON(t, r, http.MethodPost, path, `{"url":"https://example.com"}`, "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to create short URL", decodeBody(t, rec)["error"])
	})

	t.Run("success", func(t *testing.T) {
		r, svc, _ := setupRouter(t)

		svc.On("Shorten", mock.Anything, "https://example.com", "").
			Return(&models.URL{ID: 1, ShortCode: "abc123", OriginalURL: "https://example.com"}, nil).
			Once()

		rec := doJSON(t, r, http.MethodPost, path, `{"url":"https://example.com"}`, "")

		assert.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "https://sho.rt/abc123", body["shortUrl"])
		assert.Equal(t, "abc123", body["shortCode"])
		svc.AssertExpectations(t)
	})
}

func TestHandleStats(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		r, svc, _ := setupRouter(t)

		svc.On("Stats", mock.Anything, "missing").
			Return(nil, database.ErrURLNotFound).
			Once()

		rec := doJSON(t, r, http.MethodGet, "/api/stats/missing", "", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Short URL not found", decodeBody(t, rec)["error"])
	})

	t.Run("success", func(t *testing.T) {
		r, svc, _ := setupRouter(t)

		createdAt := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
		svc.On("Stats", mock.Anything, "abc123").
			Return(&models.URL{
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
				ClickCount:  7,
				CreatedAt:   createdAt,
			}, nil).
			Once()

		rec := doJSON(t, r, http.MethodGet, "/api/stats/abc123", "", "")

		assert.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "https://example.com", body["original_url"])
		assert.Equal(t, float64(7), body["click_count"])
		assert.Contains(t, body, "created_at")
	})
}

func TestHandleRedirect(t *testing.T) {
	t.Run("reserved names", func(t *testing.T) {
		r, svc, _ := setupRouter(t)

		for _, path := range []string{"/apifoo", "/favicon.ico", "/style.css"} {
			rec := doJSON(t, r, http.MethodGet, path, "", "")

			assert.Equal(t, http.StatusNotFound, rec.Code, "path %s", path)
		}

		svc.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		r, svc, _ := setupRouter(t)

		svc.On("Resolve", mock.Anything, "missing").
			Return("", database.ErrURLNotFound).
			Once()

		rec := doJSON(t, r, http.MethodGet, "/missing", "", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("storage error", func(t *testing.T) {
		r, svc, _ := setupRouter(t)

		svc.On("Resolve", mock.Anything, "abc123").
			Return("", errUnknown).
			Once()

		rec := doJSON(t, r, http.MethodGet, "/abc123", "", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		r, svc, _ := setupRouter(t)

		svc.On("Resolve", mock.Anything, "abc123").
			Return("https://example.com", nil).
			Once()

		rec := doJSON(t, r, http.MethodGet, "/abc123", "", "")

		assert.Equal(t, http.StatusMovedPermanently, rec.Code)
		assert.Equal(t, "https://example.com", rec.Header().Get("Location"))
	})
}

func TestHandleLogin(t *testing.T) {
	const path = "/api/admin/login"

	t.Run("wrong password", func(t *testing.T) {
		r, _, _ := setupRouter(t)

		rec := doJSON(t, r, http.MethodPost, path, `{"password":"wrong"}`, "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid password", decodeBody(t, rec)["error"])
	})

	t.Run("missing password", func(t *testing.T) {
		r, _, _ := setupRouter(t)

		rec := doJSON(t, r, http.MethodPost, path, `{}`, "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		r, _, sessions := setupRouter(t)

		rec := doJSON(t, r, http.MethodPost, path, `{"password":"secret"}`, "")

		assert.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])

		token, ok := body["token"].(string)
		require.True(t, ok)
		assert.True(t, sessions.Check(token))
	})
}

func TestHandleLogoutAndCheck(t *testing.T) {
	r, _, sessions := setupRouter(t)

	token, err := sessions.Login("secret")
	require.NoError(t, err)

	rec := doJSON(t, r, http.MethodGet, "/api/admin/check", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["authenticated"])

	rec = doJSON(t, r, http.MethodPost, "/api/admin/logout", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])

	rec = doJSON(t, r, http.MethodGet, "/api/admin/check", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["authenticated"])
}

func TestAdminGate(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		r, _, _ := setupRouter(t)

		rec := doJSON(t, r, http.MethodGet, "/api/admin/urls", "", "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authentication required", decodeBody(t, rec)["error"])
	})

	t.Run("invalid token", func(t *testing.T) {
		r, _, _ := setupRouter(t)

		rec := doJSON(t, r, http.MethodGet, "/api/admin/urls", "", "deadbeef")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleListURLs(t *testing.T) {
	r, svc, sessions := setupRouter(t)

	token, err := sessions.Login("secret")
	require.NoError(t, err)

	svc.On("List", mock.Anything).
		Return([]models.URL{
			{ID: 2, ShortCode: "newer", OriginalURL: "https://example.org"},
			{ID: 1, ShortCode: "older", OriginalURL: "https://example.com", ClickCount: 4},
		}, nil).
		Once()

	rec := doJSON(t, r, http.MethodGet, "/api/admin/urls", "", token)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, float64(2), body[0]["id"])
	assert.Equal(t, "newer", body[0]["short_code"])
	assert.Equal(t, float64(4), body[1]["click_count"])
}

func TestHandleUpdateURL(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		r, _, sessions := setupRouter(t)

		token, err := sessions.Login("secret")
		require.NoError(t, err)

		rec := doJSON(t, r, http.MethodPut, "/api/admin/urls/1", `{"short_code":"abc"}`, token)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Short code and URL are required", decodeBody(t, rec)["error"])
	})

	t.Run("code taken", func(t *testing.T) {
		r, svc, sessions := setupRouter(t)

		token, err := sessions.Login("secret")
		require.NoError(t, err)

		svc.On("Update", mock.Anything, int64(1), "taken", "https://example.com").
			Return(nil, service.ErrCodeTaken).
			Once()

		rec := doJSON(t, r, http.MethodPut, "/api/admin/urls/1",
			`{"short_code":"taken","original_url":"https://example.com"}`, token)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Short code already in use", decodeBody(t, rec)["error"])
	})

	t.Run("not found", func(t *testing.T) {
		r, svc, sessions := setupRouter(t)

		token, err := sessions.Login("secret")
		require.NoError(t, err)

		svc.On("Update", mock.Anything, int64(42), "abc", "https://example.com").
			Return(nil, database.ErrURLNotFound).
			Once()

		rec := doJSON(t, r, http.MethodPut, "/api/admin/urls/42",
			`{"short_code":"abc","original_url":"https://example.com"}`, token)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "URL not found", decodeBody(t, rec)["error"])
	})

	t.Run("success", func(t *testing.T) {
		r, svc, sessions := setupRouter(t)

		token, err := sessions.Login("secret")
		require.NoError(t, err)

		svc.On("Update", mock.Anything, int64(1), "abc", "https://example.com").
			Return(&models.URL{ID: 1, ShortCode: "abc", OriginalURL: "https://example.com"}, nil).
			Once()

		rec := doJSON(t, r, http.MethodPut, "/api/admin/urls/1",
			`{"short_code":"abc","original_url":"https://example.com"}`, token)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["success"])
	})
}

func TestHandleDeleteURL(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		r, svc, sessions := setupRouter(t)

		token, err := sessions.Login("secret")
		require.NoError(t, err)

		svc.On("Delete", mock.Anything, int64(42)).
			Return(database.ErrURLNotFound).
			Once()

		rec := doJSON(t, r, http.MethodDelete, "/api/admin/urls/42", "", token)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "URL not found", decodeBody(t, rec)["error"])
	})

	t.Run("success", func(t *testing.T) {
		r, svc, sessions := setupRouter(t)

		token, err := sessions.Login("secret")
		require.NoError(t, err)

		svc.On("Delete", mock.Anything, int64(1)).
			Return(nil).
			Once()

		rec := doJSON(t, r, http.MethodDelete, "/api/admin/urls/1", "", token)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["success"])
	})
}

func TestRateLimit(t *testing.T) {
	svc := new(MockURLService)
	sessions := auth.NewSessionStore("secret", time.Hour)

	logger := httplog.NewLogger("test", httplog.Options{Writer: testWriter{}})
	r := NewRouter(logger, svc, sessions, Config{
		BaseURL:        "https://sho.rt",
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	})

	first := doJSON(t, r, http.MethodPost, "/api/admin/login", `{"password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, first.Code)

	second := doJSON(t, r, http.MethodPost, "/api/admin/login", `{"password":"wrong"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
