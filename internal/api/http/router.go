// Package http wires the URL shortening and admin APIs onto a chi router.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/luire/url-shortener/internal/models"
)

// URLService is the business layer the handlers delegate to.
type URLService interface {
	Shorten(ctx context.Context, originalURL, customCode string) (*models.URL, error)
	Resolve(ctx context.Context, shortCode string) (string, error)
	Stats(ctx context.Context, shortCode string) (*models.URL, error)
	List(ctx context.Context) ([]models.URL, error)
	Update(ctx context.Context, id int64, newShortCode, newOriginalURL string) (*models.URL, error)
	Delete(ctx context.Context, id int64) error
}

// AuthService gates the admin routes.
type AuthService interface {
	Login(password string) (string, error)
	Logout(token string)
	Check(token string) bool
}

// Config carries the router-level settings.
type Config struct {
	// BaseURL is the public base used to build returned short URLs.
	BaseURL string
	// AdminHostPrefix marks requests addressed to the admin hostname.
	AdminHostPrefix string
	// PublicDir is where the admin page lives; empty disables the
	// hostname branch.
	PublicDir string
	// RateLimitRPS/RateLimitBurst bound the per-IP rate on the shorten and
	// login endpoints.
	RateLimitRPS   float64
	RateLimitBurst int
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

func NewRouter(logger *httplog.Logger, urlSvc URLService, authSvc AuthService, cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	if cfg.PublicDir != "" {
		r.Use(adminHost(cfg.AdminHostPrefix, cfg.PublicDir))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*", "http://*"},
			AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
			AllowCredentials: false,
			MaxAge:           84600,
		}))
		r.Use(middleware.AllowContentType("application/json"))

		validate := getValidate()
		limiter := newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

		r.With(limiter.Handler).Post("/shorten", handleShorten(urlSvc, validate, cfg.BaseURL))
		r.Get("/stats/{shortCode}", handleStats(urlSvc))

		r.Route("/admin", func(r chi.Router) {
			r.With(limiter.Handler).Post("/login", handleLogin(authSvc, validate))
			r.Post("/logout", handleLogout(authSvc))
			r.Get("/check", handleCheck(authSvc))

			r.Route("/urls", func(r chi.Router) {
				r.Use(requireAdmin(authSvc))

				r.Get("/", handleListURLs(urlSvc))
				r.Put("/{id}", handleUpdateURL(urlSvc, validate))
				r.Delete("/{id}", handleDeleteURL(urlSvc))
			})
		})
	})

	r.Get("/{shortCode}", handleRedirect(urlSvc))

	return r
}
