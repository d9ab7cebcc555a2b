package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/pkg/httpcontext"
)

// SettingsReader lists the current toggles.
type SettingsReader interface {
	List(ctx context.Context) ([]domain.Setting, error)
}

type SettingsHandler struct {
	baseHandler
	settings SettingsReader
}

func NewSettingsHandler(settings SettingsReader, adapter *httpcontext.Adapter, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		settings:    settings,
	}
}

// @Summary Public settings
// @Tags settings
// @Router /api/v1/settings [get]
func (h *SettingsHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, _, cancel := h.requestContext(ctx)
	defer cancel()

	settings, err := h.settings.List(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if settings == nil {
		settings = []domain.Setting{}
	}
	h.respondSuccess(ctx, http.StatusOK, settings)
}
