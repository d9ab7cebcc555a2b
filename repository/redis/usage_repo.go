package redis

import (
	"context"
	"fmt"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/repository"
)

type usageRepository struct {
	client *redislib.Client
	prefix string
}

// NewUsageRepository creates a Redis-backed store for the anonymous free-scan flag.
// Flags are stored without expiry.
func NewUsageRepository(client *redislib.Client) repository.UsageRepository {
	return &usageRepository{
		client: client,
		prefix: "guest_used:",
	}
}

func (r *usageRepository) IsUsed(ctx context.Context, deviceID string) (bool, error) {
	if deviceID == "" {
		return false, nil
	}
	result, err := r.client.Get(ctx, r.key(deviceID)).Result()
	if err != nil {
		if err == redislib.Nil {
			return false, nil
		}
		return false, err
	}
	return result == "true", nil
}

func (r *usageRepository) MarkUsed(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return domain.ErrInvalidPayload
	}
	return r.client.Set(ctx, r.key(deviceID), "true", 0).Err()
}

func (r *usageRepository) Reset(ctx context.Context, deviceID string) error {
	return r.client.Del(ctx, r.key(deviceID)).Err()
}

func (r *usageRepository) key(deviceID string) string {
	return fmt.Sprintf("%s%s", r.prefix, deviceID)
}
