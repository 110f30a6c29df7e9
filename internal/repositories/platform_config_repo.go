package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"mercaplaza/internal/models"

	"github.com/jackc/pgx/v5"
)

type PlatformConfigRepository interface {
	Get(ctx context.Context, key string) (*models.PlatformConfig, error)
	List(ctx context.Context, category *string) ([]*models.PlatformConfig, error)
	Create(ctx context.Context, config *models.PlatformConfig) error
	Update(ctx context.Context, config *models.PlatformConfig) error
	Delete(ctx context.Context, key string) error
	// NextSequenceNumber advances the numbering counter stored in the JSONB
	// value of key in a single UPDATE .. RETURNING, so concurrent issuers
	// never observe the same value and the stream stays gapless. The returned
	// sequence carries the prefix and padding read from that same row, with
	// Current set to the drawn number.
	NextSequenceNumber(ctx context.Context, key string) (*models.InvoiceSequence, error)
}

type platformConfigRepo struct {
	db DB
}

func NewPlatformConfigRepo(db DB) PlatformConfigRepository {
	return &platformConfigRepo{db: db}
}

func (r *platformConfigRepo) Get(ctx context.Context, key string) (*models.PlatformConfig, error) {
	config := &models.PlatformConfig{}
	var value []byte
	query := `SELECT key, value, category, updated_by, updated_at, created_at FROM platform_config WHERE key = $1`
	err := r.db.QueryRow(ctx, query, key).Scan(&config.Key, &value, &config.Category,
		&config.UpdatedBy, &config.UpdatedAt, &config.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	config.Value = json.RawMessage(value)
	return config, nil
}

func (r *platformConfigRepo) List(ctx context.Context, category *string) ([]*models.PlatformConfig, error) {
	query := `SELECT key, value, category, updated_by, updated_at, created_at FROM platform_config
		WHERE ($1::text IS NULL OR category = $1) ORDER BY key`
	rows, err := r.db.Query(ctx, query, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.PlatformConfig
	for rows.Next() {
		config := &models.PlatformConfig{}
		var value []byte
		if err := rows.Scan(&config.Key, &value, &config.Category, &config.UpdatedBy,
			&config.UpdatedAt, &config.CreatedAt); err != nil {
			return nil, err
		}
		config.Value = json.RawMessage(value)
		configs = append(configs, config)
	}
	return configs, rows.Err()
}

func (r *platformConfigRepo) Create(ctx context.Context, config *models.PlatformConfig) error {
	query := `
		INSERT INTO platform_config (key, value, category, updated_by, updated_at, created_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, config.Key, []byte(config.Value), config.Category, config.UpdatedBy)
	return err
}

func (r *platformConfigRepo) Update(ctx context.Context, config *models.PlatformConfig) error {
	query := `UPDATE platform_config SET value = $1, updated_by = $2, updated_at = NOW() WHERE key = $3`
	tag, err := r.db.Exec(ctx, query, []byte(config.Value), config.UpdatedBy, config.Key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *platformConfigRepo) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM platform_config WHERE key = $1`
	tag, err := r.db.Exec(ctx, query, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// NextSequenceNumber hands out the pre-increment value of `current`, so a
// sequence seeded with current=1 issues 1, 2, 3, ... and `current` always
// holds the next number to assign. Prefix and padding come back from the
// same RETURNING row as the drawn number, so a concurrent change to either
// cannot pair stale formatting with a fresh number.
func (r *platformConfigRepo) NextSequenceNumber(ctx context.Context, key string) (*models.InvoiceSequence, error) {
	query := `
		UPDATE platform_config
		SET value = jsonb_set(value, '{current}', to_jsonb((value->>'current')::int + 1)),
			updated_at = NOW()
		WHERE key = $1
		RETURNING value->>'prefix', (value->>'current')::int - 1, (value->>'padding')::int
	`
	seq := &models.InvoiceSequence{}
	if err := r.db.QueryRow(ctx, query, key).Scan(&seq.Prefix, &seq.Current, &seq.Padding); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, err
	}
	return seq, nil
}
