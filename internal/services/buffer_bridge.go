package services

import (
	"context"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/internal/infrastructure/buffer"
	"github.com/fastygo/satyalens/usecase"
)

// BufferBridge adapts the processor to the use case port.
type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

func (b *BufferBridge) BufferScan(ctx context.Context, user *domain.User, scan *domain.ScanRecord) error {
	if b.processor == nil {
		return domain.ErrInvalidPayload
	}
	item, err := buffer.NewScanItem(user, scan)
	if err != nil {
		return err
	}
	return b.processor.Buffer(ctx, item)
}

var _ usecase.ScanBuffer = (*BufferBridge)(nil)
