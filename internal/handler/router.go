package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RouterConfig holds what the HTTP surface is built from. A nil Metrics handler leaves
// /metrics unrouted.
type RouterConfig struct {
	Jobs        JobEngine
	Tokens      TokenVerifier
	Metrics     http.Handler
	FrontendURL string
}

// NewRouter builds the echo instance with middleware and every route.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewAppValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())
	if cfg.FrontendURL != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{cfg.FrontendURL},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
			ExposeHeaders:    []string{echo.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics))
	}

	jobs := NewJobHandler(cfg.Jobs)
	api := e.Group("/api/v1", JWTAuth(cfg.Tokens))

	api.POST("/jobs/gathering", jobs.StartGathering)
	api.POST("/jobs/building", jobs.StartBuilding)
	api.POST("/jobs/upgrade", jobs.StartUpgrade)
	api.POST("/jobs/crafting", jobs.StartCrafting)
	api.POST("/jobs/collection", jobs.StartCollection)
	api.GET("/jobs/current", jobs.Current)
	api.POST("/jobs/current/collect", jobs.Collect)
	api.POST("/jobs/current/cancel", jobs.Cancel)

	api.GET("/nodes/:id", jobs.Node)
	api.GET("/inventory", jobs.Inventory)

	return e
}
