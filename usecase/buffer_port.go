package usecase

import (
	"context"

	"github.com/fastygo/satyalens/domain"
)

// ScanBuffer abstracts the buffer processor so use cases stay storage-agnostic.
type ScanBuffer interface {
	BufferScan(ctx context.Context, user *domain.User, scan *domain.ScanRecord) error
}
