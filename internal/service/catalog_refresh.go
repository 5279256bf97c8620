package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/pkg/jobs"
)

// JobTypeCatalogRefresh identifies catalog refresh jobs on the queue.
const JobTypeCatalogRefresh = "catalog.refresh"

// CatalogRefreshJobRetries is how often the queue reruns a failed refresh.
// The catalog client already retries each download.
const CatalogRefreshJobRetries = 1

const refreshTimeoutSlack = 5 * time.Second

// RefreshTimeout covers the catalog client's worst case: every attempt
// timing out plus the delays between them.
func RefreshTimeout(perAttempt time.Duration, attempts int, delay time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(attempts)*perAttempt + time.Duration(attempts-1)*delay + refreshTimeoutSlack
}

type catalogRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) (string, error)
}

// CatalogRefreshService refreshes the catalog in the background.
type CatalogRefreshService struct {
	catalog catalogRefresher
	queue   jobQueue
	timeout time.Duration
	logger  *zap.Logger
}

// NewCatalogRefreshService constructs the refresh service. Call AttachQueue
// once the queue backing it exists.
func NewCatalogRefreshService(catalog catalogRefresher, timeout time.Duration, logger *zap.Logger) *CatalogRefreshService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &CatalogRefreshService{catalog: catalog, timeout: timeout, logger: logger}
}

// AttachQueue wires the queue used by Enqueue.
func (s *CatalogRefreshService) AttachQueue(queue jobQueue) {
	s.queue = queue
}

// Enqueue schedules a refresh and returns the job id. Concurrent requests
// share the refresh that is already pending.
func (s *CatalogRefreshService) Enqueue(trigger string) (string, error) {
	if s.queue == nil {
		return "", fmt.Errorf("catalog refresh queue not configured")
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeCatalogRefresh, Key: JobTypeCatalogRefresh, Payload: trigger}
	id, err := s.queue.Enqueue(job)
	if err != nil {
		return "", err
	}
	if id != job.ID {
		s.logger.Info("catalog refresh already pending", zap.String("job_id", id), zap.String("trigger", trigger))
		return id, nil
	}
	s.logger.Info("catalog refresh queued", zap.String("job_id", id), zap.String("trigger", trigger))
	return id, nil
}

// Handle is the jobs.Handler processing refresh jobs.
func (s *CatalogRefreshService) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeCatalogRefresh {
		return fmt.Errorf("unexpected job type %s", job.Type)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	count, err := s.catalog.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}
	s.logger.Info("catalog refreshed",
		zap.String("job_id", job.ID),
		zap.Int("sections", count),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}
