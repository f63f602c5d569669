package http

import (
	"time"

	"github.com/luire/url-shortener/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

var (
	emptyRequestBodyResponse   = errorResponse{Error: "Request body is empty"}
	invalidRequestBodyResponse = errorResponse{Error: "Invalid request body"}
	urlRequiredResponse        = errorResponse{Error: "URL is required"}
	invalidURLResponse         = errorResponse{Error: "Invalid URL format"}
	invalidCustomCodeResponse  = errorResponse{Error: "Custom code can only contain letters, numbers, hyphens, and underscores"}
	customCodeTakenResponse    = errorResponse{Error: "Custom code already in use"}
	createFailedResponse       = errorResponse{Error: "Failed to create short URL"}
	shortURLNotFoundResponse   = errorResponse{Error: "Short URL not found"}
	urlNotFoundResponse        = errorResponse{Error: "URL not found"}
	invalidPasswordResponse    = errorResponse{Error: "Invalid password"}
	authRequiredResponse       = errorResponse{Error: "Authentication required"}
	fieldsRequiredResponse     = errorResponse{Error: "Short code and URL are required"}
	invalidShortCodeResponse   = errorResponse{Error: "Invalid short code format"}
	shortCodeTakenResponse     = errorResponse{Error: "Short code already in use"}
	rateLimitedResponse        = errorResponse{Error: "Too many requests"}
	serverErrorResponse        = errorResponse{Error: "Database error"}
)

type successResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
}

type shortenResponse struct {
	ShortURL  string `json:"shortUrl"`
	ShortCode string `json:"shortCode"`
}

type statsResponse struct {
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
	ClickCount  int64     `json:"click_count"`
}

type checkResponse struct {
	Authenticated bool `json:"authenticated"`
}

type adminURLResponse struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
	ClickCount  int64     `json:"click_count"`
}

func toAdminURLResponse(u *models.URL) adminURLResponse {
	return adminURLResponse{
		ID:          u.ID,
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		CreatedAt:   u.CreatedAt,
		ClickCount:  u.ClickCount,
	}
}
