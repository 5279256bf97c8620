package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{ID: "job-1", Type: "catalog.refresh"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
	select {
	case id := <-done:
		assert.Equal(t, "job-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts []int
	)
	finished := make(chan struct{})
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		mu.Lock()
		attempts = append(attempts, job.Attempt)
		n := len(attempts)
		mu.Unlock()
		if n < 3 {
			return errors.New("upstream down")
		}
		close(finished)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{ID: "job-2"})
	require.NoError(t, err)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not succeed after retries")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestQueueReportsResults(t *testing.T) {
	results := make(chan error, 1)
	q := NewQueue("hook", func(ctx context.Context, job Job) error {
		return nil
	}, QueueConfig{Workers: 1, OnResult: func(job Job, err error, took time.Duration) {
		results <- err
	}})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{ID: "job-3"})
	require.NoError(t, err)
	select {
	case err := <-results:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("result hook not called")
	}
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	_, err := q.Enqueue(Job{ID: "job-4"})
	assert.Error(t, err)
	assert.Equal(t, 0, q.Pending())
}

func TestQueueCoalescesJobsByKey(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("coalesce", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	first, err := q.Enqueue(Job{ID: "a", Key: "catalog"})
	require.NoError(t, err)
	<-started

	second, err := q.Enqueue(Job{ID: "b", Key: "catalog"})
	require.NoError(t, err)
	assert.Equal(t, first, second, "running job absorbs the new request")
	assert.Equal(t, 0, q.Pending())

	close(release)
	require.Eventually(t, func() bool {
		id, err := q.Enqueue(Job{ID: "c", Key: "catalog"})
		return err == nil && id == "c"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(block)

	var lastErr error
	for i := 0; i < 3; i++ {
		_, lastErr = q.Enqueue(Job{ID: "job"})
	}
	assert.ErrorIs(t, lastErr, ErrQueueFull)
}
