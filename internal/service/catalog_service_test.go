package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/usis-routine-api/internal/models"
	"github.com/noah-isme/usis-routine-api/internal/planner"
	appErrors "github.com/noah-isme/usis-routine-api/pkg/errors"
)

type fetcherStub struct {
	raws  []models.RawSection
	err   error
	calls int
}

func (f *fetcherStub) Fetch(ctx context.Context) ([]models.RawSection, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.raws, nil
}

type mirrorStub struct {
	stored     []models.RawSection
	storedAt   time.Time
	listErr    error
	replaceErr error
}

func (m *mirrorStub) ReplaceAll(ctx context.Context, sections []models.RawSection, fetchedAt time.Time) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.stored = sections
	m.storedAt = fetchedAt
	return nil
}

func (m *mirrorStub) List(ctx context.Context) ([]models.RawSection, time.Time, error) {
	if m.listErr != nil {
		return nil, time.Time{}, m.listErr
	}
	return m.stored, m.storedAt, nil
}

func newCatalogServiceForTest(fetcher *fetcherStub, mirror *mirrorStub, withCache bool) *CatalogService {
	var cache *CacheService
	if withCache {
		cache = NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	}
	var m CatalogMirror
	if mirror != nil {
		m = mirror
	}
	svc := NewCatalogService(fetcher, m, planner.New(planner.Options{}), cache, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestCatalogServiceSnapshotCachesAndMirrors(t *testing.T) {
	fetcher := &fetcherStub{raws: sampleCatalog()}
	mirror := &mirrorStub{}
	svc := newCatalogServiceForTest(fetcher, mirror, true)

	first, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CatalogSourceUpstream, first.Source)
	assert.Len(t, first.Sections, 5)
	assert.Len(t, mirror.stored, 5)

	second, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CatalogSourceCache, second.Source)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, first.Sections, second.Sections)
}

func TestCatalogServiceDropsUndecodableCacheEntry(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.entries[catalogCacheKey] = []byte("{not json")
	fetcher := &fetcherStub{raws: sampleCatalog()}
	svc := NewCatalogService(fetcher, nil, planner.New(planner.Options{}), NewCacheService(repo, nil, time.Minute, zap.NewNop(), true), time.Minute, zap.NewNop())

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CatalogSourceUpstream, snap.Source)
	assert.Equal(t, 1, fetcher.calls)

	var cached cachedCatalog
	require.NoError(t, repo.Get(context.Background(), catalogCacheKey, &cached))
	assert.Len(t, cached.Sections, 5)
}

type undeletableCacheRepo struct {
	*memoryCacheRepo
}

func (undeletableCacheRepo) Delete(ctx context.Context, keys ...string) error {
	return errors.New("redis: connection refused")
}

func TestCatalogServiceLogsFailedCacheEviction(t *testing.T) {
	repo := undeletableCacheRepo{newMemoryCacheRepo()}
	repo.entries[catalogCacheKey] = []byte("{not json")
	core, logs := observer.New(zapcore.WarnLevel)
	fetcher := &fetcherStub{raws: sampleCatalog()}
	svc := NewCatalogService(fetcher, nil, planner.New(planner.Options{}), NewCacheService(repo, nil, time.Minute, zap.NewNop(), true), time.Minute, zap.New(core))

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CatalogSourceUpstream, snap.Source)

	evictions := logs.FilterMessage("failed to drop unreadable catalog cache entry").All()
	require.Len(t, evictions, 1)
	assert.Equal(t, "redis: connection refused", evictions[0].ContextMap()["error"])
}

func TestCatalogServiceFallsBackToMirror(t *testing.T) {
	fetchedAt := time.Date(2024, 5, 30, 8, 0, 0, 0, time.UTC)
	fetcher := &fetcherStub{err: appErrors.Clone(appErrors.ErrCatalogUnavailable, "upstream down")}
	mirror := &mirrorStub{stored: sampleCatalog(), storedAt: fetchedAt}
	svc := newCatalogServiceForTest(fetcher, mirror, false)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CatalogSourceMirror, snap.Source)
	assert.Equal(t, fetchedAt, snap.FetchedAt)
}

func TestCatalogServiceUnavailableWithoutFallback(t *testing.T) {
	fetcher := &fetcherStub{err: appErrors.Clone(appErrors.ErrCatalogUnavailable, "upstream down")}
	mirror := &mirrorStub{listErr: errors.New("db down")}
	svc := newCatalogServiceForTest(fetcher, mirror, false)

	_, err := svc.Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, IsCatalogUnavailable(err))
	assert.True(t, appErrors.Retryable(err))
}

func TestCatalogServiceRefreshIgnoresMirrorFailure(t *testing.T) {
	fetcher := &fetcherStub{raws: sampleCatalog()}
	svc := newCatalogServiceForTest(fetcher, &mirrorStub{replaceErr: errors.New("db down")}, false)

	count, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestCatalogServiceCourses(t *testing.T) {
	svc := newCatalogServiceForTest(&fetcherStub{raws: sampleCatalog()}, nil, false)

	courses, meta, err := svc.Courses(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, CatalogSourceUpstream, meta.Source)
	assert.Equal(t, models.CourseSummary{
		CourseCode:        "CSE110",
		CourseName:        "CSE110 course",
		TotalSeats:        60,
		AvailableSeats:    10,
		SectionCount:      2,
		HasAvailableSeats: true,
	}, courses[0])
	assert.Equal(t, "CSE220", courses[1].CourseCode)
	assert.Equal(t, 40, courses[1].AvailableSeats)

	all, _, err := svc.Courses(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "MAT120", all[2].CourseCode)
	assert.False(t, all[2].HasAvailableSeats)
}

func TestCatalogServiceSections(t *testing.T) {
	svc := newCatalogServiceForTest(&fetcherStub{raws: sampleCatalog()}, nil, false)

	sections, _, err := svc.Sections(context.Background(), "cse110", false)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "1", sections[0].SectionName)

	sections, _, err = svc.Sections(context.Background(), "MAT120", false)
	require.NoError(t, err)
	assert.Empty(t, sections)

	_, _, err = svc.Sections(context.Background(), "PHY111", true)
	assert.Equal(t, appErrors.ErrCourseNotFound.Code, appErrorCode(err))
}

func TestCatalogServiceFaculty(t *testing.T) {
	svc := newCatalogServiceForTest(&fetcherStub{raws: sampleCatalog()}, nil, false)

	all, _, err := svc.Faculty(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC", "DEF", "GHI", "JKL"}, all)

	some, _, err := svc.Faculty(context.Background(), []string{"cse220"})
	require.NoError(t, err)
	assert.Equal(t, []string{"GHI", "abc"}, some)
}

func TestCatalogServiceExamSchedule(t *testing.T) {
	svc := newCatalogServiceForTest(&fetcherStub{raws: sampleCatalog()}, nil, false)

	exams, _, err := svc.ExamSchedule(context.Background(), "CSE110", "1")
	require.NoError(t, err)
	require.NotNil(t, exams.Mid)
	assert.Equal(t, "2024-07-10", exams.Mid.NormalizedDate)
	assert.Nil(t, exams.Final)

	_, _, err = svc.ExamSchedule(context.Background(), "CSE110", "9")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrorCode(err))
}
