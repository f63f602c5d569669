package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/luire/url-shortener/internal/database"
	"github.com/luire/url-shortener/internal/models"
	"github.com/luire/url-shortener/internal/shortcode"
)

var (
	// ErrInvalidURL is returned when the original URL doesn't parse as an
	// absolute URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidCustomCode is returned when a custom short code contains
	// characters outside [a-zA-Z0-9_-].
	ErrInvalidCustomCode = errors.New("invalid custom code")
	// ErrCodeTaken is returned when the requested short code is already in use.
	ErrCodeTaken = errors.New("short code already in use")
	// ErrRetryExhausted is returned when a generated short code collided and
	// the single retry collided as well.
	ErrRetryExhausted = errors.New("retries exhausted for generating short code")
)

// Generated-code collisions are retried exactly once. Two attempts bound the
// worst case to two write round-trips; with a 6-character code over 62 symbols
// a second collision is statistically negligible.
const maxCreateAttempts = 2

const clickWriteTimeout = 5 * time.Second

// URLRepository defines the interface for working with URLs at the business
// logic layer.
type URLRepository interface {
	// Create inserts a new shortened URL. Returns database.ErrShortCodeExists
	// on a short code collision.
	Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error)

	// GetByShortCode retrieves a URL by its short code without side effects.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// IncrementClickCount bumps the click counter for the given short code.
	IncrementClickCount(ctx context.Context, shortCode string) error

	// List retrieves all URL records, newest first.
	List(ctx context.Context) ([]models.URL, error)

	// UpdateByID replaces the short code and original URL of the record with
	// the given id.
	UpdateByID(ctx context.Context, id int64, shortCode, originalURL string) (*models.URL, error)

	// DeleteByID removes the record with the given id.
	DeleteByID(ctx context.Context, id int64) error
}

// URLService implements the URL shortening operations on top of a repository
// and an optional resolve cache.
type URLService struct {
	logger          *slog.Logger
	repo            URLRepository
	shortCodeLength int
	cache           *ResolveCache
}

// NewURLService creates a URLService. cache may be nil, which disables the
// resolve cache.
func NewURLService(logger *slog.Logger, repo URLRepository, shortCodeLength int, cache *ResolveCache) *URLService {
	if shortCodeLength < 1 {
		shortCodeLength = shortcode.DefaultLength
	}

	return &URLService{
		logger:          logger,
		repo:            repo,
		shortCodeLength: shortCodeLength,
		cache:           cache,
	}
}

func validateOriginalURL(originalURL string) error {
	u, err := url.ParseRequestURI(originalURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// Shorten stores originalURL under customCode when one is given, or under a
// freshly generated code otherwise. A collision on a custom code fails with
// ErrCodeTaken; a collision on a generated code is retried once with a fresh
// code before failing with ErrRetryExhausted.
func (s *URLService) Shorten(ctx context.Context, originalURL, customCode string) (*models.URL, error) {
	const op = "service.URLService.Shorten"

	if err := validateOriginalURL(originalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if customCode != "" {
		if !shortcode.ValidCustom(customCode) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCustomCode)
		}

		u, err := s.repo.Create(ctx, customCode, originalURL)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				return nil, fmt.Errorf("%s: %w", op, ErrCodeTaken)
			}
			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return u, nil
	}

	for i := 0; i < maxCreateAttempts; i++ {
		code, err := shortcode.Generate(s.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		u, err := s.repo.Create(ctx, code, originalURL)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}
			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return u, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrRetryExhausted)
}

// Resolve returns the original URL stored under shortCode and records the
// click. The click write is fire-and-forget: it runs in its own goroutine
// with a detached context and a failure is only logged.
func (s *URLService) Resolve(ctx context.Context, shortCode string) (string, error) {
	const op = "service.URLService.Resolve"

	if s.cache != nil {
		if originalURL, ok := s.cache.Get(shortCode); ok {
			s.recordClick(ctx, shortCode)
			return originalURL, nil
		}
	}

	u, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if s.cache != nil {
		s.cache.Set(shortCode, u.OriginalURL)
	}

	s.recordClick(ctx, shortCode)

	return u.OriginalURL, nil
}

func (s *URLService) recordClick(ctx context.Context, shortCode string) {
	ctx = context.WithoutCancel(ctx)

	go func() {
		ctx, cancel := context.WithTimeout(ctx, clickWriteTimeout)
		defer cancel()

		if err := s.repo.IncrementClickCount(ctx, shortCode); err != nil {
			s.logger.Error("failed to record click",
				slog.String("short_code", shortCode),
				slog.Any("err", err),
			)
		}
	}()
}

// Stats retrieves the record stored under shortCode without touching the
// click counter.
func (s *URLService) Stats(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.Stats"

	u, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return u, nil
}

// List returns all stored records, newest first.
func (s *URLService) List(ctx context.Context) ([]models.URL, error) {
	const op = "service.URLService.List"

	urls, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return urls, nil
}

// Update replaces the short code and original URL of the record with the
// given id, applying the same validation rules as Shorten.
func (s *URLService) Update(ctx context.Context, id int64, newShortCode, newOriginalURL string) (*models.URL, error) {
	const op = "service.URLService.Update"

	if err := validateOriginalURL(newOriginalURL); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !shortcode.ValidCustom(newShortCode) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCustomCode)
	}

	u, err := s.repo.UpdateByID(ctx, id, newShortCode, newOriginalURL)
	if err != nil {
		if errors.Is(err, database.ErrShortCodeExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrCodeTaken)
		}
		return nil, fmt.Errorf("%s: failed to update url: %w", op, err)
	}

	if s.cache != nil {
		s.cache.Clear()
	}

	return u, nil
}

// Delete removes the record with the given id.
func (s *URLService) Delete(ctx context.Context, id int64) error {
	const op = "service.URLService.Delete"

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("%s: failed to delete url: %w", op, err)
	}

	if s.cache != nil {
		s.cache.Clear()
	}

	return nil
}
