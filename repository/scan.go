package repository

import (
	"context"
	"time"

	"github.com/fastygo/satyalens/domain"
)

type ScanRepository interface {
	Create(ctx context.Context, scan *domain.ScanRecord) error
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
	Count(ctx context.Context) (int, error)
	CountActiveUsersSince(ctx context.Context, since time.Time) (int, error)
	TopUsers(ctx context.Context, limit int) ([]domain.UserScanCount, error)
}
