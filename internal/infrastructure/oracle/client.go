package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/internal/metrics"
	"github.com/fastygo/satyalens/pkg/logger"
)

const analyzePath = "/analyze-image"

type analyzeRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

type analyzeResponse struct {
	Confidence *float64 `json:"confidence"`
	Verdict    string   `json:"verdict"`
	Error      string   `json:"error"`
}

// Doer is the subset of fasthttp.Client used by the oracle client.
type Doer interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
}

// Client calls the external image scoring function.
type Client struct {
	baseURL string
	http    Doer
	logger  *zap.Logger
}

// NewClient builds a client. A nil doer uses a fasthttp.Client with no explicit timeout.
func NewClient(baseURL string, doer Doer, logger *zap.Logger) *Client {
	if doer == nil {
		doer = &fasthttp.Client{
			Name:                "satyalens",
			MaxResponseBodySize: 1 << 20,
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		logger:  logger,
	}
}

// Score posts the encoded image and parses the verdict. If ctx ends first, the
// request keeps running in the background and its result is dropped.
func (c *Client) Score(ctx context.Context, credential, imageBase64 string) (domain.Verdict, error) {
	body, err := json.Marshal(analyzeRequest{ImageBase64: imageBase64})
	if err != nil {
		return domain.Verdict{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	req.SetRequestURI(c.baseURL + analyzePath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if credential != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+credential)
	}
	req.SetBodyRaw(body)

	type outcome struct {
		status int
		body   []byte
		err    error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)
		err := c.http.Do(req, resp)
		done <- outcome{
			status: resp.StatusCode(),
			body:   append([]byte(nil), resp.Body()...),
			err:    err,
		}
	}()

	log := logger.WithRequestID(ctx, c.logger)

	select {
	case <-ctx.Done():
		metrics.ObserveOracle("abandoned", time.Since(start))
		log.Warn("oracle call abandoned", zap.Error(ctx.Err()))
		return domain.Verdict{}, domain.WrapError(domain.ErrCodeOracleFailure, "analysis failed", ctx.Err())
	case out := <-done:
		if out.err != nil {
			metrics.ObserveOracle("transport_error", time.Since(start))
			return domain.Verdict{}, domain.WrapError(domain.ErrCodeOracleFailure, "analysis failed", out.err)
		}
		verdict, err := decode(out.status, out.body)
		if err != nil {
			metrics.ObserveOracle("error", time.Since(start))
			log.Warn("oracle rejected image", zap.Int("status", out.status), zap.Error(err))
			return domain.Verdict{}, err
		}
		metrics.ObserveOracle("ok", time.Since(start))
		return verdict, nil
	}
}

func decode(status int, body []byte) (domain.Verdict, error) {
	var payload analyzeResponse
	parseErr := json.Unmarshal(body, &payload)

	if status < 200 || status >= 300 {
		if parseErr == nil && payload.Error != "" {
			return domain.Verdict{}, domain.NewError(domain.ErrCodeOracleFailure, payload.Error)
		}
		return domain.Verdict{}, domain.WrapError(domain.ErrCodeOracleFailure, "analysis failed", fmt.Errorf("oracle status %d", status))
	}
	if parseErr != nil {
		return domain.Verdict{}, domain.WrapError(domain.ErrCodeOracleFailure, "analysis failed", parseErr)
	}
	if payload.Confidence == nil || payload.Verdict == "" {
		return domain.Verdict{}, domain.WrapError(domain.ErrCodeOracleFailure, "analysis failed", fmt.Errorf("incomplete oracle response"))
	}
	confidence := math.Max(0, math.Min(100, *payload.Confidence))
	return domain.Verdict{Confidence: int(math.Round(confidence)), Label: payload.Verdict}, nil
}
