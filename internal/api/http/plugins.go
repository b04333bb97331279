package http

import (
	"errors"
	"net/http"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/revalidate"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/shared/utils"
	"github.com/gin-gonic/gin"
)

// PatchPluginRequest is a partial update of an installed plugin.
// Fields are applied in order: config, revalidation, then enabled/activate.
type PatchPluginRequest struct {
	Enabled      *bool               `json:"enabled,omitempty"`
	Activate     bool                `json:"activate,omitempty"`
	Revalidation *plugin.PolicyPatch `json:"revalidation,omitempty"`
	Config       map[string]any      `json:"config,omitempty"`
}

func (r *PatchPluginRequest) empty() bool {
	return r.Enabled == nil && !r.Activate && r.Revalidation == nil && r.Config == nil
}

// ListPlugins handles GET /api/admin/plugins
func (h *Handlers) ListPlugins(c *gin.Context) {
	plugins, err := h.plugins.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plugins": plugins,
		"count":   len(plugins),
	})
}

// GetPlugin handles GET /api/admin/plugins/:id
func (h *Handlers) GetPlugin(c *gin.Context) {
	detail, err := h.plugins.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// InstallPlugin handles POST /api/admin/plugins/:id/install
func (h *Handlers) InstallPlugin(c *gin.Context) {
	out, err := h.plugins.Install(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// UninstallPlugin handles DELETE /api/admin/plugins/:id
func (h *Handlers) UninstallPlugin(c *gin.Context) {
	out, err := h.plugins.Uninstall(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// PatchPlugin handles PATCH /api/admin/plugins/:id
func (h *Handlers) PatchPlugin(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxJSONSize)

	var req PatchPluginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	if req.Config != nil {
		if _, err := h.plugins.SetConfig(ctx, id, req.Config); err != nil {
			h.respondError(c, err)
			return
		}
	}
	if req.Revalidation != nil {
		if _, err := h.plugins.SetRevalidationPolicy(ctx, id, *req.Revalidation); err != nil {
			h.respondError(c, err)
			return
		}
	}

	var decision *revalidate.Decision
	switch {
	case req.Activate:
		out, err := h.plugins.ActivateTheme(ctx, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		decision = out.Revalidation
	case req.Enabled != nil:
		out, err := h.plugins.SetEnabled(ctx, id, *req.Enabled)
		if err != nil {
			h.respondError(c, err)
			return
		}
		decision = out.Revalidation
	default:
		d, err := h.plugins.RevalidatePlugin(ctx, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		decision = d
	}

	detail, err := h.plugins.Detail(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plugin":       detail,
		"revalidation": decision,
	})
}

// Revalidate handles POST /api/admin/revalidate
func (h *Handlers) Revalidate(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{
		"revalidation": h.plugins.Revalidate(c.Request.Context()),
	})
}
