package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/assets"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/installer"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/revalidate"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/resilience"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/tracing"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PluginService is the installer surface the handlers drive
type PluginService interface {
	List(ctx context.Context) ([]plugin.Summary, error)
	Detail(ctx context.Context, id string) (*plugin.Detail, error)
	Install(ctx context.Context, id string) (*installer.Outcome, error)
	Uninstall(ctx context.Context, id string) (*installer.Outcome, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (*installer.Outcome, error)
	ActivateTheme(ctx context.Context, id string) (*installer.Outcome, error)
	SetRevalidationPolicy(ctx context.Context, id string, patch plugin.PolicyPatch) (*plugin.Installed, error)
	SetConfig(ctx context.Context, id string, config map[string]any) (*plugin.Installed, error)
	RevalidatePlugin(ctx context.Context, id string) (*revalidate.Decision, error)
	Revalidate(ctx context.Context) *revalidate.Decision
	Feed(ctx context.Context) (*plugin.Feed, error)
	InlineStyles(ctx context.Context) (string, error)
}

// AssetProxy serves registry files to the browser
type AssetProxy interface {
	ProxyAsset(ctx context.Context, path, version string) (*assets.Asset, error)
}

// HealthReporter reports upstream state for the health endpoint
type HealthReporter interface {
	Configured() bool
	BreakerState() resilience.State
}

// Handlers contains all HTTP handlers
type Handlers struct {
	plugins PluginService
	proxy   AssetProxy
	health  HealthReporter
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(plugins PluginService, proxy AssetProxy, health HealthReporter, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		plugins: plugins,
		proxy:   proxy,
		health:  health,
		logger:  logger,
	}
}

// Health handles the liveness probe
func (h *Handlers) Health(c *gin.Context) {
	registry := gin.H{"configured": false}
	if h.health != nil {
		registry = gin.H{
			"configured": h.health.Configured(),
			"breaker":    h.health.BreakerState().String(),
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "blog-plugins",
		"registry": registry,
	})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, plugin.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, plugin.ErrAlreadyInstalled):
		return http.StatusConflict
	case errors.Is(err, plugin.ErrInvalidPath),
		errors.Is(err, plugin.ErrInvalidConfig),
		errors.Is(err, plugin.ErrInvalidPolicy),
		errors.Is(err, plugin.ErrNotTheme):
		return http.StatusBadRequest
	case plugin.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": msg}. Internal errors are logged and
// replaced with a generic message.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			tracing.Field(c.Request.Context()),
			zap.Error(err))
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// Register mounts the health, public and admin routes on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	public := r.Group("/api/plugins")
	{
		public.GET("/active", h.ActivePlugins)
		public.GET("/styles.css", h.Styles)
		public.GET("/asset", h.Asset)
	}

	admin := r.Group("/api/admin")
	{
		admin.GET("/plugins", h.ListPlugins)
		admin.GET("/plugins/:id", h.GetPlugin)
		admin.POST("/plugins/:id/install", h.InstallPlugin)
		admin.DELETE("/plugins/:id", h.UninstallPlugin)
		admin.PATCH("/plugins/:id", h.PatchPlugin)
		admin.POST("/revalidate", h.Revalidate)
	}
}
