package http

import (
	"net/http"
	"strings"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/assets"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// minGzipSize is the smallest text body worth compressing
const minGzipSize = 512

// ActivePlugins handles GET /api/plugins/active
func (h *Handlers) ActivePlugins(c *gin.Context) {
	feed, err := h.plugins.Feed(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, feed)
}

// Styles handles GET /api/plugins/styles.css
func (h *Handlers) Styles(c *gin.Context) {
	css, err := h.plugins.InlineStyles(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/css; charset=utf-8", []byte(css))
}

// Asset handles GET /api/plugins/asset?path=&v=
func (h *Handlers) Asset(c *gin.Context) {
	assetPath := c.Query("path")
	if err := assets.ValidatePath(assetPath); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asset, err := h.proxy.ProxyAsset(c.Request.Context(), assetPath, c.Query("v"))
	if err != nil {
		if statusFor(err) == http.StatusBadRequest {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Misses stay body-less so nothing about the upstream leaks
		c.Status(http.StatusNotFound)
		return
	}

	compressible := assets.IsText(asset.ContentType) && len(asset.Body) >= minGzipSize
	c.Header("Cache-Control", asset.CacheControl)
	c.Header("ETag", asset.ETag)
	if compressible {
		c.Header("Vary", "Accept-Encoding")
	}
	if match := c.GetHeader("If-None-Match"); match != "" && etagMatches(match, asset.ETag) {
		c.Status(http.StatusNotModified)
		return
	}

	if compressible && acceptsGzip(c.Request) {
		h.writeGzip(c, asset)
		return
	}
	c.Data(http.StatusOK, asset.ContentType, asset.Body)
}

func (h *Handlers) writeGzip(c *gin.Context, asset *assets.Asset) {
	c.Header("Content-Encoding", "gzip")
	c.Header("Content-Type", asset.ContentType)
	c.Status(http.StatusOK)

	gz, err := gzip.NewWriterLevel(c.Writer, gzip.DefaultCompression)
	if err != nil {
		h.logger.Error("gzip writer", zap.Error(err))
		return
	}
	if _, err := gz.Write(asset.Body); err != nil {
		h.logger.Debug("writing compressed asset", zap.String("path", asset.Path), zap.Error(err))
	}
	if err := gz.Close(); err != nil {
		h.logger.Debug("closing compressed asset", zap.String("path", asset.Path), zap.Error(err))
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		enc, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(enc, "gzip") {
			return true
		}
	}
	return false
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
