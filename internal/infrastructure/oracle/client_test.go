package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/satyalens/domain"
)

type doerFunc func(req *fasthttp.Request, resp *fasthttp.Response) error

func (f doerFunc) Do(req *fasthttp.Request, resp *fasthttp.Response) error { return f(req, resp) }

func TestScore_PostsImageWithCredential(t *testing.T) {
	var (
		gotURI  string
		gotAuth string
		gotBody analyzeRequest
	)
	client := NewClient("http://oracle.local/functions/v1/", doerFunc(func(req *fasthttp.Request, resp *fasthttp.Response) error {
		gotURI = string(req.URI().Path())
		gotAuth = string(req.Header.Peek(fasthttp.HeaderAuthorization))
		_ = json.Unmarshal(req.Body(), &gotBody)
		resp.SetStatusCode(fasthttp.StatusOK)
		resp.SetBodyString(`{"confidence": 86.6, "verdict": "Likely AI-Generated"}`)
		return nil
	}), nil)

	verdict, err := client.Score(context.Background(), "user-token", "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, 87, verdict.Confidence)
	assert.Equal(t, "Likely AI-Generated", verdict.Label)
	assert.Equal(t, "/functions/v1/analyze-image", gotURI)
	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, "aGVsbG8=", gotBody.ImageBase64)
}

func TestScore_ClampsConfidence(t *testing.T) {
	cases := map[string]int{
		`1e300`: 100,
		`100.4`: 100,
		`-5`:    0,
		`0.4`:   0,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			client := NewClient("http://oracle.local", doerFunc(func(_ *fasthttp.Request, resp *fasthttp.Response) error {
				resp.SetStatusCode(fasthttp.StatusOK)
				resp.SetBodyString(`{"confidence": ` + raw + `, "verdict": "Uncertain"}`)
				return nil
			}), nil)

			verdict, err := client.Score(context.Background(), "", "x")
			require.NoError(t, err)
			assert.Equal(t, want, verdict.Confidence)
		})
	}
}

func TestScore_ErrorResponses(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "error field", status: fasthttp.StatusInternalServerError, body: `{"error":"model overloaded"}`, message: "model overloaded"},
		{name: "bare failure", status: fasthttp.StatusBadGateway, body: `upstream down`, message: "analysis failed"},
		{name: "malformed body", status: fasthttp.StatusOK, body: `{not json`, message: "analysis failed"},
		{name: "missing confidence", status: fasthttp.StatusOK, body: `{"verdict":"Likely Real"}`, message: "analysis failed"},
		{name: "missing verdict", status: fasthttp.StatusOK, body: `{"confidence":12}`, message: "analysis failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := NewClient("http://oracle.local", doerFunc(func(_ *fasthttp.Request, resp *fasthttp.Response) error {
				resp.SetStatusCode(tc.status)
				resp.SetBodyString(tc.body)
				return nil
			}), nil)

			_, err := client.Score(context.Background(), "", "x")
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeOracleFailure))
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestScore_TransportError(t *testing.T) {
	client := NewClient("http://oracle.local", doerFunc(func(*fasthttp.Request, *fasthttp.Response) error {
		return errors.New("dial tcp: connection refused")
	}), nil)

	_, err := client.Score(context.Background(), "", "x")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeOracleFailure))
}

func TestScore_AbandonsOnContextEnd(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	client := NewClient("http://oracle.local", doerFunc(func(_ *fasthttp.Request, resp *fasthttp.Response) error {
		<-release
		resp.SetStatusCode(fasthttp.StatusOK)
		return nil
	}), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Score(ctx, "", "x")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeOracleFailure))
	assert.Less(t, time.Since(start), time.Second)
}
