package service

import (
	"context"

	"github.com/luire/url-shortener/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	args := r.Called(ctx, shortCode, originalURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) IncrementClickCount(ctx context.Context, shortCode string) error {
	args := r.Called(ctx, shortCode)
	return args.Error(0)
}

func (r *MockURLRepository) List(ctx context.Context) ([]models.URL, error) {
	args := r.Called(ctx)
	urls, _ := args.Get(0).([]models.URL)
	return urls, args.Error(1)
}

func (r *MockURLRepository) UpdateByID(ctx context.Context, id int64, shortCode, originalURL string) (*models.URL, error) {
	args := r.Called(ctx, id, shortCode, originalURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) DeleteByID(ctx context.Context, id int64) error {
	args := r.Called(ctx, id)
	return args.Error(0)
}
