package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/luire/url-shortener/internal/auth"
	"github.com/luire/url-shortener/internal/database"
	"github.com/luire/url-shortener/internal/service"
)

type shortenRequest struct {
	URL        string `json:"url" validate:"required"`
	CustomCode string `json:"customCode"`
}

func handleShorten(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleShorten"

	baseURL = strings.TrimSuffix(baseURL, "/")

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, emptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidRequestBodyResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, urlRequiredResponse)
			return
		}

		url, err := svc.Shorten(r.Context(), req.URL, req.CustomCode)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, invalidURLResponse)
			case errors.Is(err, service.ErrInvalidCustomCode):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, invalidCustomCodeResponse)
			case errors.Is(err, service.ErrCodeTaken):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, customCodeTakenResponse)
			case errors.Is(err, service.ErrRetryExhausted):
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, createFailedResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, serverErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, shortenResponse{
			ShortURL:  fmt.Sprintf("%s/%s", baseURL, url.ShortCode),
			ShortCode: url.ShortCode,
		})
	}
}

func handleStats(svc URLService) http.HandlerFunc {
	const op = "api.http.handleStats"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.Stats(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, shortURLNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, statsResponse{
			OriginalURL: url.OriginalURL,
			CreatedAt:   url.CreatedAt,
			ClickCount:  url.ClickCount,
		})
	}
}

// handleRedirect resolves a short code and issues a permanent redirect.
// Reserved names are never treated as short codes: anything starting with the
// API prefix or containing a dot (a static file name) yields 404.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		if strings.HasPrefix(shortCode, "api") || strings.Contains(shortCode, ".") {
			http.NotFound(w, r)
			return
		}

		originalURL, err := svc.Resolve(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				http.Error(w, "Short URL not found", http.StatusNotFound)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			http.Error(w, "Server error", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, originalURL, http.StatusMovedPermanently)
	}
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

func handleLogin(authSvc AuthService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleLogin"

	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidRequestBodyResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, invalidPasswordResponse)
			return
		}

		token, err := authSvc.Login(req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidPassword) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, invalidPasswordResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, successResponse{Success: true, Token: token})
	}
}

func handleLogout(authSvc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			authSvc.Logout(token)
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, successResponse{Success: true})
	}
}

func handleCheck(authSvc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, checkResponse{
			Authenticated: authSvc.Check(bearerToken(r)),
		})
	}
}

func handleListURLs(svc URLService) http.HandlerFunc {
	const op = "api.http.handleListURLs"

	return func(w http.ResponseWriter, r *http.Request) {
		urls, err := svc.List(r.Context())
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
			return
		}

		resp := make([]adminURLResponse, 0, len(urls))
		for i := range urls {
			resp = append(resp, toAdminURLResponse(&urls[i]))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, resp)
	}
}

type updateURLRequest struct {
	ShortCode   string `json:"short_code" validate:"required"`
	OriginalURL string `json:"original_url" validate:"required"`
}

func handleUpdateURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleUpdateURL"

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		var req updateURLRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidRequestBodyResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, fieldsRequiredResponse)
			return
		}

		if _, err := svc.Update(r.Context(), id, req.ShortCode, req.OriginalURL); err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, invalidURLResponse)
			case errors.Is(err, service.ErrInvalidCustomCode):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, invalidShortCodeResponse)
			case errors.Is(err, service.ErrCodeTaken):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, shortCodeTakenResponse)
			case errors.Is(err, database.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, urlNotFoundResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, serverErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, successResponse{Success: true})
	}
}

func handleDeleteURL(svc URLService) http.HandlerFunc {
	const op = "api.http.handleDeleteURL"

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, urlNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, successResponse{Success: true})
	}
}
