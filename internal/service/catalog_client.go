package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/internal/models"
	appErrors "github.com/noah-isme/usis-routine-api/pkg/errors"
	"github.com/noah-isme/usis-routine-api/pkg/middleware/requestid"
)

const maxCatalogBytes = 64 << 20

// CatalogClientConfig configures the upstream catalog fetcher.
type CatalogClientConfig struct {
	URL        string
	MaxRetries int
	RetryDelay time.Duration
}

// CatalogHTTPClient downloads the raw section catalog.
type CatalogHTTPClient struct {
	cfg        CatalogClientConfig
	httpClient *http.Client
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewCatalogHTTPClient constructs the client. A nil http.Client uses a 15s timeout.
func NewCatalogHTTPClient(cfg CatalogClientConfig, httpClient *http.Client, metrics *MetricsService, logger *zap.Logger) *CatalogHTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHTTPClient{cfg: cfg, httpClient: httpClient, metrics: metrics, logger: logger}
}

// Fetch returns the full catalog. An empty or malformed payload is an error,
// never a partial result.
func (c *CatalogHTTPClient) Fetch(ctx context.Context) ([]models.RawSection, error) {
	if strings.TrimSpace(c.cfg.URL) == "" {
		return nil, appErrors.Clone(appErrors.ErrCatalogUnavailable, "catalog url is not configured")
	}

	var sections []models.RawSection
	start := time.Now()
	err := retryFixed(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, c.logger, "catalog_fetch", func(ctx context.Context) error {
		var err error
		sections, err = c.fetchOnce(ctx)
		return err
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.ObserveUpstreamCall("catalog", outcome, time.Since(start))
	if err != nil {
		c.logger.Error("catalog fetch failed", zap.String("url", c.cfg.URL), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCatalogUnavailable.Code, appErrors.ErrCatalogUnavailable.Status, appErrors.ErrCatalogUnavailable.Message)
	}
	return sections, nil
}

func (c *CatalogHTTPClient) fetchOnce(ctx context.Context) ([]models.RawSection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog body: %w", err)
	}
	return DecodeCatalogPayload(body)
}

// DecodeCatalogPayload accepts either a bare list of sections or an object
// wrapping the list under "data".
func DecodeCatalogPayload(body []byte) ([]models.RawSection, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("catalog payload is empty")
	}

	var sections []models.RawSection
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &sections); err != nil {
			return nil, fmt.Errorf("decode catalog list: %w", err)
		}
	case '{':
		var wrapped struct {
			Data []models.RawSection `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode catalog object: %w", err)
		}
		sections = wrapped.Data
	default:
		return nil, errors.New("catalog payload is neither a list nor an object")
	}

	if len(sections) == 0 {
		return nil, errors.New("catalog payload has no sections")
	}
	return sections, nil
}
