package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/satyalens/api/transport"
	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/internal/middleware"
	"github.com/fastygo/satyalens/pkg/httpcontext"
	"github.com/fastygo/satyalens/pkg/logger"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

// requestContext derives the use case context and tags it with the calling actor.
func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, domain.Actor, context.CancelFunc) {
	var (
		stdCtx context.Context
		cancel context.CancelFunc
	)
	if h.adapter != nil {
		stdCtx, cancel = h.adapter.Attach(ctx)
	} else {
		stdCtx, cancel = context.WithCancel(context.Background())
	}

	actor := middleware.ActorFrom(ctx)
	label := "anonymous:" + actor.DeviceID
	if actor.IsIdentified() {
		label = "user:" + actor.ID
	}
	return logger.ContextWithActor(stdCtx, label), actor, cancel
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	message := err.Error()
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		message = dErr.Message
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", string(ctx.Path())),
			zap.String("request_id", httpcontext.RequestID(ctx)),
			zap.Error(err))
	}
	h.respondJSON(ctx, status, transport.NewError(code, message, nil))
}

func mapError(err error) (int, string) {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized, string(domain.ErrCodeUnauthorized)
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		return http.StatusForbidden, string(domain.ErrCodeForbidden)
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return http.StatusBadRequest, string(domain.ErrCodeInvalid)
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, string(domain.ErrCodeNotFound)
	case domain.IsDomainError(err, domain.ErrCodeQuotaExceeded):
		return http.StatusTooManyRequests, string(domain.ErrCodeQuotaExceeded)
	case domain.IsDomainError(err, domain.ErrCodeUnsupportedMedia):
		return http.StatusUnsupportedMediaType, string(domain.ErrCodeUnsupportedMedia)
	case domain.IsDomainError(err, domain.ErrCodeOracleFailure):
		return http.StatusBadGateway, string(domain.ErrCodeOracleFailure)
	case domain.IsDomainError(err, domain.ErrCodeDisabled):
		return http.StatusServiceUnavailable, string(domain.ErrCodeDisabled)
	case domain.IsDomainError(err, domain.ErrCodeSettingsUpdate):
		return http.StatusInternalServerError, string(domain.ErrCodeSettingsUpdate)
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}
