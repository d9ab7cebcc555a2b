package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/satyalens/api/transport"
	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/pkg/httpcontext"
	"github.com/fastygo/satyalens/pkg/logger"
	analysisUC "github.com/fastygo/satyalens/usecase/analysis"
)

type AnalysisHandler struct {
	baseHandler
	uc       *analysisUC.UseCase
	maxBytes int64
}

func NewAnalysisHandler(uc *analysisUC.UseCase, maxBytes int, adapter *httpcontext.Adapter, logger *zap.Logger) *AnalysisHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &AnalysisHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		maxBytes:    int64(maxBytes),
	}
}

// @Summary Remaining scans for the caller
// @Tags analysis
// @Router /api/v1/quota [get]
func (h *AnalysisHandler) Quota(ctx *fasthttp.RequestCtx) {
	stdCtx, actor, cancel := h.requestContext(ctx)
	defer cancel()

	allowance, err := h.uc.Allowance(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewQuotaResponse(actor, allowance))
}

// @Summary Score an uploaded image
// @Tags analysis
// @Accept multipart/form-data
// @Router /api/v1/analyze [post]
func (h *AnalysisHandler) Analyze(ctx *fasthttp.RequestCtx) {
	image, err := h.readImage(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, actor, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.Analyze(stdCtx, actor, image)
	if err != nil {
		if !errors.Is(err, domain.ErrUnsupportedMedia) {
			logger.WithRequestID(stdCtx, h.logger).Info("analyze rejected", zap.Error(err))
		}
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

func (h *AnalysisHandler) readImage(ctx *fasthttp.RequestCtx) (domain.Image, error) {
	header, err := ctx.FormFile(transport.ImageField)
	if err != nil {
		return domain.Image{}, domain.WrapError(domain.ErrCodeInvalid, "please select an image file", err)
	}
	if header.Size > h.maxBytes {
		return domain.Image{}, domain.NewError(domain.ErrCodeInvalid, "image is too large")
	}

	mediaType := header.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}

	file, err := header.Open()
	if err != nil {
		return domain.Image{}, domain.WrapError(domain.ErrCodeInvalid, "unreadable upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes))
	if err != nil {
		return domain.Image{}, domain.WrapError(domain.ErrCodeInvalid, "unreadable upload", err)
	}
	return domain.Image{Name: header.Filename, MediaType: mediaType, Data: data}, nil
}
