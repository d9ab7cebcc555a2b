package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/satyalens/api/handler"
	"github.com/fastygo/satyalens/internal/metrics"
)

type Handlers struct {
	Health   *apiHandler.HealthHandler
	Analysis *apiHandler.AnalysisHandler
	Admin    *apiHandler.AdminHandler
	Settings *apiHandler.SettingsHandler
	// Metrics is mounted at /metrics when set.
	Metrics fasthttp.RequestHandler
}

// New registers every route. actor resolves the caller on all /api routes.
func New(handlers Handlers, actor func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	route := func(method, path string, h fasthttp.RequestHandler) {
		r.Handle(method, path, metrics.Instrument(path, h))
	}

	route(fasthttp.MethodGet, "/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		r.GET("/metrics", handlers.Metrics)
	}

	route(fasthttp.MethodGet, "/api/v1/settings", actor(handlers.Settings.List))
	route(fasthttp.MethodGet, "/api/v1/quota", actor(handlers.Analysis.Quota))
	route(fasthttp.MethodPost, "/api/v1/analyze", actor(handlers.Analysis.Analyze))

	route(fasthttp.MethodGet, "/api/v1/admin/stats", actor(handlers.Admin.Stats))
	route(fasthttp.MethodPost, "/api/v1/admin/stats", actor(handlers.Admin.UpdateSetting))

	return r
}
