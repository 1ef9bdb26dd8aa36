package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zen-systems/routerd/pkg/adapter"
	"github.com/zen-systems/routerd/pkg/classifier"
	"github.com/zen-systems/routerd/pkg/registry"
	"github.com/zen-systems/routerd/pkg/router"
	"go.uber.org/zap"
)

// RouterHandler serves the router admin endpoints.
type RouterHandler struct {
	registry *registry.Registry
	metrics  *Metrics
	limiter  gin.HandlerFunc
	logger   *zap.Logger
}

// NewRouterHandler creates the router handler. limiter guards the route
// endpoint and may be nil.
func NewRouterHandler(reg *registry.Registry, metrics *Metrics, limiter gin.HandlerFunc, logger *zap.Logger) *RouterHandler {
	return &RouterHandler{
		registry: reg,
		metrics:  metrics,
		limiter:  limiter,
		logger:   logger,
	}
}

// RegisterRoutes registers the /routers endpoints on r.
func (h *RouterHandler) RegisterRoutes(r *gin.RouterGroup) {
	routers := r.Group("/routers")
	{
		routers.GET("", h.ListRouters)
		routers.POST("", h.CreateRouter)
		routers.POST("/initialize", h.InitializeRouters)
		routers.GET("/initialize/report", h.GetInitReport)
		routers.GET("/:id", h.GetRouter)
		routers.PUT("/:id", h.UpdateRouter)
		routers.DELETE("/:id", h.DeleteRouter)

		route := []gin.HandlerFunc{h.RouteQuery}
		if h.limiter != nil {
			route = append([]gin.HandlerFunc{h.limiter}, route...)
		}
		routers.POST("/:id/route", route...)
	}
}

// ListRouters returns every router configuration.
//
// GET /routers
func (h *RouterHandler) ListRouters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"routers": h.registry.List()})
}

// GetRouter returns one router configuration.
//
// GET /routers/:id
func (h *RouterHandler) GetRouter(c *gin.Context) {
	cfg, err := h.registry.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// UpdateRouter replaces a router's settings. Fields the body omits take
// their default values.
//
// PUT /routers/:id
func (h *RouterHandler) UpdateRouter(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_BODY", err.Error()))
		return
	}
	settings, ok := h.decodeSettings(c, body)
	if !ok {
		return
	}

	if err := h.registry.Update(c.Param("id"), settings); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, true)
}

type createRequest struct {
	Name     string          `json:"name"`
	Kind     string          `json:"kind"`
	Settings json.RawMessage `json:"settings"`
}

// CreateRouter adds a router.
//
// POST /routers
func (h *RouterHandler) CreateRouter(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_BODY", err.Error()))
		return
	}

	settings := registry.DefaultSettings()
	if len(req.Settings) > 0 && string(req.Settings) != "null" {
		var ok bool
		if settings, ok = h.decodeSettings(c, req.Settings); !ok {
			return
		}
	}

	cfg, err := h.registry.Create(req.Name, router.Kind(strings.ToLower(strings.TrimSpace(req.Kind))), settings)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

// DeleteRouter removes a router and its live instance.
//
// DELETE /routers/:id
func (h *RouterHandler) DeleteRouter(c *gin.Context) {
	if err := h.registry.Delete(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, true)
}

// InitializeRouters rebuilds every enabled router. Failure details are
// logged and never returned to the client.
//
// POST /routers/initialize
func (h *RouterHandler) InitializeRouters(c *gin.Context) {
	report, err := h.registry.InitializeAll(c.Request.Context())
	h.metrics.observeInit(err == nil, h.registry.LiveCount())
	if err != nil {
		h.logger.Error("router initialization failed",
			zap.String("request_id", GetRequestID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, errorBody("INITIALIZATION_FAILED", "failed to initialize routers"))
		return
	}
	h.logger.Info("routers initialized",
		zap.String("request_id", GetRequestID(c)),
		zap.Int("results", len(report.Results)),
	)
	c.JSON(http.StatusOK, true)
}

// GetInitReport returns the last initialization report.
//
// GET /routers/initialize/report
func (h *RouterHandler) GetInitReport(c *gin.Context) {
	report := h.registry.Report()
	if report == nil {
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "routers have not been initialized"))
		return
	}
	c.JSON(http.StatusOK, report)
}

type routeRequest struct {
	Query string `json:"query" binding:"required"`
}

// RouteQuery ranks a router's candidates for a query.
//
// POST /routers/:id/route
func (h *RouterHandler) RouteQuery(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_BODY", "body must be {\"query\": string}"))
		return
	}

	inst, err := h.registry.Router(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	start := time.Now()
	decision, err := inst.RouteWithDecision(c.Request.Context(), req.Query)
	kind := string(inst.Kind())
	if err != nil {
		h.metrics.observeRoute(kind, "error", time.Since(start))
		h.writeError(c, err)
		return
	}

	outcome := "selected"
	if decision.Selected == "" {
		outcome = "empty"
	}
	h.metrics.observeRoute(kind, outcome, time.Since(start))
	c.JSON(http.StatusOK, decision)
}

// decodeSettings validates body against the settings schema and decodes it
// over the default settings. It writes a 400 and returns false on failure.
func (h *RouterHandler) decodeSettings(c *gin.Context, body []byte) (registry.Settings, bool) {
	settings := registry.DefaultSettings()
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_BODY", "settings must be a JSON object"))
		return settings, false
	}
	violations, err := registry.ValidateSettingsJSON(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_BODY", err.Error()))
		return settings, false
	}
	if len(violations) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": "settings failed validation",
				"details": violations,
			},
		})
		return settings, false
	}
	if err := json.Unmarshal(body, &settings); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_BODY", err.Error()))
		return settings, false
	}
	return settings, true
}

// writeError maps err onto a status code and JSON error body.
func (h *RouterHandler) writeError(c *gin.Context, err error) {
	var (
		cfgErr *router.ConfigurationError
		invErr *classifier.InvocationError
	)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", err.Error()))
	case errors.Is(err, registry.ErrNotInitialized):
		c.JSON(http.StatusConflict, errorBody("NOT_INITIALIZED", err.Error()))
	case errors.Is(err, router.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, errorBody("INVALID_QUERY", err.Error()))
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, errorBody("INVALID_CONFIGURATION", err.Error()))
	case errors.As(err, &invErr):
		h.logger.Warn("classifier invocation failed",
			zap.String("request_id", GetRequestID(c)),
			zap.String("router_id", c.Param("id")),
			zap.Error(err),
		)
		status := http.StatusBadGateway
		if adapter.IsTransient(err) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, errorBody("CLASSIFIER_ERROR", "classifier invocation failed"))
	default:
		h.logger.Error("request failed", zap.String("request_id", GetRequestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "internal error"))
	}
}
