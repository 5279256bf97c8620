package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/pkg/jobs"
)

type refresherStub struct {
	count int
	err   error
	calls int
}

func (r *refresherStub) Refresh(ctx context.Context) (int, error) {
	r.calls++
	return r.count, r.err
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	for _, queued := range q.jobs {
		if job.Key != "" && queued.Key == job.Key {
			return queued.ID, nil
		}
	}
	q.jobs = append(q.jobs, job)
	return job.ID, nil
}

func TestCatalogRefreshEnqueue(t *testing.T) {
	svc := NewCatalogRefreshService(&refresherStub{}, time.Second, zap.NewNop())
	_, err := svc.Enqueue("manual")
	assert.Error(t, err, "queue not attached")

	queue := &queueStub{}
	svc.AttachQueue(queue)
	id, err := svc.Enqueue("manual")
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, id, queue.jobs[0].ID)
	assert.Equal(t, JobTypeCatalogRefresh, queue.jobs[0].Type)
	assert.Equal(t, "manual", queue.jobs[0].Payload)

	again, err := svc.Enqueue("manual")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Len(t, queue.jobs, 1)

	queue.err = jobs.ErrQueueFull
	queue.jobs = nil
	_, err = svc.Enqueue("manual")
	assert.ErrorIs(t, err, jobs.ErrQueueFull)
}

func TestCatalogRefreshHandle(t *testing.T) {
	refresher := &refresherStub{count: 12}
	svc := NewCatalogRefreshService(refresher, time.Second, zap.NewNop())

	require.NoError(t, svc.Handle(context.Background(), jobs.Job{ID: "1", Type: JobTypeCatalogRefresh}))
	assert.Equal(t, 1, refresher.calls)

	assert.Error(t, svc.Handle(context.Background(), jobs.Job{ID: "2", Type: "report.generate"}))

	refresher.err = errors.New("upstream down")
	assert.Error(t, svc.Handle(context.Background(), jobs.Job{ID: "3", Type: JobTypeCatalogRefresh}))
}

type deadlineRefresher struct {
	remaining time.Duration
}

func (d *deadlineRefresher) Refresh(ctx context.Context) (int, error) {
	if deadline, ok := ctx.Deadline(); ok {
		d.remaining = time.Until(deadline)
	}
	return 1, nil
}

func TestRefreshTimeoutCoversEveryClientAttempt(t *testing.T) {
	perAttempt, delay := 15*time.Second, 2*time.Second
	worstCase := 3*perAttempt + 2*delay

	timeout := RefreshTimeout(perAttempt, 3, delay)
	assert.Greater(t, timeout, worstCase)
	assert.Equal(t, perAttempt+refreshTimeoutSlack, RefreshTimeout(perAttempt, 0, delay))

	refresher := &deadlineRefresher{}
	svc := NewCatalogRefreshService(refresher, timeout, zap.NewNop())
	require.NoError(t, svc.Handle(context.Background(), jobs.Job{ID: "1", Type: JobTypeCatalogRefresh}))
	assert.Greater(t, refresher.remaining, worstCase)
}
