package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/repository"
)

type settingRepository struct {
	pool *pgxpool.Pool
}

// NewSettingRepository returns the app_settings accessor.
func NewSettingRepository(pool *pgxpool.Pool) repository.SettingRepository {
	return &settingRepository{pool: pool}
}

func (r *settingRepository) List(ctx context.Context) ([]domain.Setting, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM app_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make([]domain.Setting, 0)
	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *settingRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	var s domain.Setting
	err := r.pool.QueryRow(ctx, `SELECT key, value FROM app_settings WHERE key = $1`, key).Scan(&s.Key, &s.Value)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSettingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *settingRepository) Upsert(ctx context.Context, setting domain.Setting) error {
	if setting.Key == "" {
		return domain.ErrInvalidPayload
	}
	const query = `
	INSERT INTO app_settings (key, value, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value,
		updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query, setting.Key, setting.Value)
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
