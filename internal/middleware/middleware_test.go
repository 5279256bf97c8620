package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/usis-routine-api/internal/models"
	"github.com/noah-isme/usis-routine-api/internal/service"
)

func TestResponseMetaCarriesCatalogProvenance(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/courses", func(c *gin.Context) {
		SetCatalogMeta(c, models.CatalogMeta{
			Source:    models.CatalogSourceMirror,
			FetchedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.FixedZone("BDT", 6*3600)),
		})
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/courses", nil)
	r.ServeHTTP(w, req)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "mirror", meta["catalog_source"])
	assert.Equal(t, false, meta["cache_hit"])
	assert.Equal(t, "2024-06-01T02:00:00Z", meta["catalog_fetched_at"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestExtractMetaWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))

	SetCatalogMeta(c, models.CatalogMeta{Source: models.CatalogSourceCache})
	meta := ExtractMeta(c)
	assert.Equal(t, true, meta["cache_hit"])
	assert.NotContains(t, meta, "catalog_fetched_at")
}

func TestMetricsMiddlewareCountsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/courses", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/courses", "/metrics", "/nowhere"} {
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}
