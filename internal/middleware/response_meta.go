package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

const (
	responseMetaKey  = "response_meta"
	cacheHitKey      = "cache_hit"
	catalogSourceKey = "catalog_source"
	catalogAgeKey    = "catalog_fetched_at"
	generatedAtKey   = "generated_at"
	requestStartKey  = "request_start"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCatalogMeta records which catalog snapshot served the response.
func SetCatalogMeta(c *gin.Context, meta models.CatalogMeta) {
	m := ensureMeta(c)
	m[catalogSourceKey] = meta.Source
	m[cacheHitKey] = meta.Source == models.CatalogSourceCache
	if !meta.FetchedAt.IsZero() {
		m[catalogAgeKey] = meta.FetchedAt.UTC().Format(time.RFC3339)
	}
}

// SetGeneratedAt stamps when a response payload was produced.
func SetGeneratedAt(c *gin.Context, at time.Time) {
	ensureMeta(c)[generatedAtKey] = at.UTC().Format(time.RFC3339)
}

// ExtractMeta returns the metadata stored on the context with the elapsed
// processing time filled in.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	typed, ok := meta.(map[string]interface{})
	if !ok {
		return nil
	}
	if start, ok := c.Get(requestStartKey); ok {
		if t, ok := start.(time.Time); ok {
			typed["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return typed
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := map[string]interface{}{}
	c.Set(responseMetaKey, meta)
	return meta
}
