package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/repository"
)

type scanRepository struct {
	pool *pgxpool.Pool
}

// NewScanRepository returns a Postgres-backed implementation of ScanRepository.
func NewScanRepository(pool *pgxpool.Pool) repository.ScanRepository {
	return &scanRepository{pool: pool}
}

func (r *scanRepository) Create(ctx context.Context, scan *domain.ScanRecord) error {
	if scan == nil || scan.UserID == "" {
		return domain.ErrInvalidPayload
	}
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}

	// Replayed buffer items keep their original id and timestamp.
	const query = `
	INSERT INTO scans (id, user_id, confidence, verdict, created_at)
	VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
	ON CONFLICT (id) DO NOTHING
	RETURNING created_at
	`

	var createdAt time.Time
	err := r.pool.QueryRow(ctx, query,
		scan.ID,
		scan.UserID,
		scan.Confidence,
		scan.Verdict,
		nullTime(scan.CreatedAt),
	).Scan(&createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil
		}
		return err
	}
	scan.CreatedAt = createdAt
	return nil
}

func (r *scanRepository) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM scans WHERE user_id = $1 AND created_at >= $2`
	var count int
	err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count)
	return count, err
}

func (r *scanRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scans`).Scan(&count)
	return count, err
}

func (r *scanRepository) CountActiveUsersSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(DISTINCT user_id) FROM scans WHERE created_at >= $1`
	var count int
	err := r.pool.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}

func (r *scanRepository) TopUsers(ctx context.Context, limit int) ([]domain.UserScanCount, error) {
	const query = `
	SELECT COALESCE(p.email, ''), COUNT(s.id) AS scan_count
	FROM scans s
	LEFT JOIN profiles p ON p.id = s.user_id
	GROUP BY s.user_id, p.email
	ORDER BY scan_count DESC, 1 ASC
	LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	top := make([]domain.UserScanCount, 0)
	for rows.Next() {
		var entry domain.UserScanCount
		if err := rows.Scan(&entry.Email, &entry.ScanCount); err != nil {
			return nil, err
		}
		top = append(top, entry)
	}
	return top, rows.Err()
}
