package repository

import "context"

// UsageRepository tracks whether an anonymous device has spent its free scan.
type UsageRepository interface {
	IsUsed(ctx context.Context, deviceID string) (bool, error)
	MarkUsed(ctx context.Context, deviceID string) error
	Reset(ctx context.Context, deviceID string) error
}
