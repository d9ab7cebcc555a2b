package repository

import (
	"context"

	"github.com/fastygo/satyalens/domain"
)

type SettingRepository interface {
	List(ctx context.Context) ([]domain.Setting, error)
	Get(ctx context.Context, key string) (*domain.Setting, error)
	Upsert(ctx context.Context, setting domain.Setting) error
}
