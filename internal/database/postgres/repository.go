package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/luire/url-shortener/internal/database"
	"github.com/luire/url-shortener/internal/models"
)

type urlRecord struct {
	ID          int64     `db:"id"`
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	ClickCount  int64     `db:"click_count"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	return &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		ClickCount:  r.ClickCount,
		CreatedAt:   r.CreatedAt,
	}
}

// URLRepository persists URL records in the urls table. Short code uniqueness
// is enforced by the table's unique constraint, which is what keeps concurrent
// inserts of the same code safe.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url)
		VALUES ($1, $2)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// IncrementClickCount bumps the click counter for shortCode. Callers on the
// redirect path treat this as best-effort and must not let a failure here
// block the response.
func (r *URLRepository) IncrementClickCount(ctx context.Context, shortCode string) error {
	const op = "database.postgres.URLRepository.IncrementClickCount"

	query := `UPDATE urls
		SET click_count = click_count + 1
		WHERE short_code = $1`

	res, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to increment click count: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}

func (r *URLRepository) List(ctx context.Context) ([]models.URL, error) {
	const op = "database.postgres.URLRepository.List"

	var recs []urlRecord
	query := `SELECT * FROM urls ORDER BY created_at DESC, id DESC`

	err := r.db.SelectContext(ctx, &recs, query)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list url records: %w", op, err)
	}

	urls := make([]models.URL, 0, len(recs))
	for i := range recs {
		urls = append(urls, *recs[i].ToURL())
	}

	return urls, nil
}

func (r *URLRepository) UpdateByID(ctx context.Context, id int64, shortCode, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.UpdateByID"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET short_code = $1, original_url = $2
		WHERE id = $3
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to update url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) DeleteByID(ctx context.Context, id int64) error {
	const op = "database.postgres.URLRepository.DeleteByID"

	query := `DELETE FROM urls WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}
