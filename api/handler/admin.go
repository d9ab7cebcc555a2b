package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/satyalens/api/transport"
	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/pkg/httpcontext"
	adminUC "github.com/fastygo/satyalens/usecase/admin"
)

type AdminHandler struct {
	baseHandler
	uc *adminUC.UseCase
}

func NewAdminHandler(uc *adminUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Dashboard statistics
// @Tags admin
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) Stats(ctx *fasthttp.RequestCtx) {
	stdCtx, actor, cancel := h.requestContext(ctx)
	defer cancel()

	stats, err := h.uc.Stats(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, stats)
}

// @Summary Update an admin toggle
// @Tags admin
// @Router /api/v1/admin/stats [post]
func (h *AdminHandler) UpdateSetting(ctx *fasthttp.RequestCtx) {
	stdCtx, actor, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.Authorize(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.SettingRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Key == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}
	value, ok := req.ValueText()
	if !ok {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	if err := h.uc.ApplySetting(stdCtx, session, req.Key, value); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.SettingUpdated{Success: true})
}
