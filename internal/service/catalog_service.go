package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/internal/models"
	appErrors "github.com/noah-isme/usis-routine-api/pkg/errors"
)

const catalogCacheKey = "catalog:sections"

// Catalog snapshot sources, re-exported for callers of this package.
const (
	CatalogSourceCache    = models.CatalogSourceCache
	CatalogSourceUpstream = models.CatalogSourceUpstream
	CatalogSourceMirror   = models.CatalogSourceMirror
)

type catalogFetcher interface {
	Fetch(ctx context.Context) ([]models.RawSection, error)
}

// CatalogMirror persists the last good catalog download.
type CatalogMirror interface {
	ReplaceAll(ctx context.Context, sections []models.RawSection, fetchedAt time.Time) error
	List(ctx context.Context) ([]models.RawSection, time.Time, error)
}

type catalogDecoder interface {
	DecodeCatalog(raws []models.RawSection) []models.Section
}

type cachedCatalog struct {
	Sections  []models.RawSection `json:"sections"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// CatalogService serves immutable catalog snapshots. Lookups try the Redis
// cache, then the upstream source, then the PostgreSQL mirror.
type CatalogService struct {
	fetcher  catalogFetcher
	mirror   CatalogMirror
	decoder  catalogDecoder
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewCatalogService constructs a catalog service. cache and mirror are optional.
func NewCatalogService(fetcher catalogFetcher, mirror CatalogMirror, decoder catalogDecoder, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		fetcher:  fetcher,
		mirror:   mirror,
		decoder:  decoder,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Snapshot returns the current catalog.
func (s *CatalogService) Snapshot(ctx context.Context) (*models.CatalogSnapshot, error) {
	var cached cachedCatalog
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, catalogCacheKey, &cached)
		if err != nil {
			s.logger.Warn("catalog cache lookup failed", zap.Error(err))
			if forgetErr := s.cache.Forget(ctx, catalogCacheKey); forgetErr != nil {
				s.logger.Warn("failed to drop unreadable catalog cache entry", zap.Error(forgetErr))
			}
		} else if hit && len(cached.Sections) > 0 {
			return s.snapshot(cached.Sections, cached.FetchedAt, CatalogSourceCache), nil
		}
	}

	raws, fetchedAt, err := s.download(ctx)
	if err == nil {
		return s.snapshot(raws, fetchedAt, CatalogSourceUpstream), nil
	}

	if s.mirror != nil {
		mirrored, mirroredAt, mirrorErr := s.mirror.List(ctx)
		if mirrorErr != nil {
			s.logger.Warn("catalog mirror lookup failed", zap.Error(mirrorErr))
		} else if len(mirrored) > 0 {
			s.logger.Warn("serving catalog from mirror", zap.Time("fetched_at", mirroredAt), zap.Error(err))
			return s.snapshot(mirrored, mirroredAt, CatalogSourceMirror), nil
		}
	}
	return nil, err
}

// Refresh downloads the catalog and replaces the cached and mirrored copies.
// It returns the number of records stored.
func (s *CatalogService) Refresh(ctx context.Context) (int, error) {
	raws, _, err := s.download(ctx)
	if err != nil {
		return 0, err
	}
	return len(raws), nil
}

func (s *CatalogService) download(ctx context.Context) ([]models.RawSection, time.Time, error) {
	if s.fetcher == nil {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrCatalogUnavailable, "catalog source is not configured")
	}
	raws, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	fetchedAt := s.now().UTC()

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, cachedCatalog{Sections: raws, FetchedAt: fetchedAt}, s.cacheTTL); err != nil {
			s.logger.Warn("cache catalog", zap.Error(err))
		}
	}
	if s.mirror != nil {
		if err := s.mirror.ReplaceAll(ctx, raws, fetchedAt); err != nil {
			s.logger.Warn("mirror catalog", zap.Error(err))
		}
	}
	return raws, fetchedAt, nil
}

func (s *CatalogService) snapshot(raws []models.RawSection, fetchedAt time.Time, source string) *models.CatalogSnapshot {
	return &models.CatalogSnapshot{
		Sections:  s.decoder.DecodeCatalog(raws),
		FetchedAt: fetchedAt,
		Source:    source,
	}
}

// Courses lists every course with its seat totals. Unless showAll is set,
// courses without a free seat are omitted.
func (s *CatalogService) Courses(ctx context.Context, showAll bool) ([]models.CourseSummary, models.CatalogMeta, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, models.CatalogMeta{}, err
	}

	byCode := map[string]*models.CourseSummary{}
	var order []string
	for _, section := range snap.Sections {
		code := strings.ToUpper(strings.TrimSpace(section.CourseCode))
		summary, ok := byCode[code]
		if !ok {
			summary = &models.CourseSummary{CourseCode: code, CourseName: section.CourseName}
			byCode[code] = summary
			order = append(order, code)
		}
		if summary.CourseName == "" {
			summary.CourseName = section.CourseName
		}
		summary.SectionCount++
		summary.TotalSeats += section.Capacity
		if free := section.AvailableSeats(); free > 0 {
			summary.AvailableSeats += free
		}
	}

	sort.Strings(order)
	courses := make([]models.CourseSummary, 0, len(order))
	for _, code := range order {
		summary := byCode[code]
		summary.HasAvailableSeats = summary.AvailableSeats > 0
		if !showAll && !summary.HasAvailableSeats {
			continue
		}
		courses = append(courses, *summary)
	}
	return courses, snap.Meta(), nil
}

// Sections returns the sections of one course in catalog order.
func (s *CatalogService) Sections(ctx context.Context, courseCode string, showAll bool) ([]models.Section, models.CatalogMeta, error) {
	code := strings.TrimSpace(courseCode)
	if code == "" {
		return nil, models.CatalogMeta{}, appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, models.CatalogMeta{}, err
	}

	var (
		found    bool
		sections []models.Section
	)
	for _, section := range snap.Sections {
		if !strings.EqualFold(section.CourseCode, code) {
			continue
		}
		found = true
		if showAll || section.AvailableSeats() > 0 {
			sections = append(sections, section)
		}
	}
	if !found {
		return nil, models.CatalogMeta{}, appErrors.Clone(appErrors.ErrCourseNotFound, fmt.Sprintf("course %s not found", strings.ToUpper(code)))
	}
	if sections == nil {
		sections = []models.Section{}
	}
	return sections, snap.Meta(), nil
}

// Faculty lists distinct faculty initials, optionally restricted to courses.
func (s *CatalogService) Faculty(ctx context.Context, courseCodes []string) ([]string, models.CatalogMeta, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, models.CatalogMeta{}, err
	}

	wanted := map[string]struct{}{}
	for _, code := range courseCodes {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			wanted[code] = struct{}{}
		}
	}

	seen := map[string]struct{}{}
	faculty := []string{}
	for _, section := range snap.Sections {
		if len(wanted) > 0 {
			if _, ok := wanted[strings.ToUpper(section.CourseCode)]; !ok {
				continue
			}
		}
		name := strings.TrimSpace(section.Faculty)
		if name == "" {
			continue
		}
		if _, ok := seen[strings.ToUpper(name)]; ok {
			continue
		}
		seen[strings.ToUpper(name)] = struct{}{}
		faculty = append(faculty, name)
	}
	sort.Strings(faculty)
	return faculty, snap.Meta(), nil
}

// ExamSchedule returns the exam sittings of one section.
func (s *CatalogService) ExamSchedule(ctx context.Context, courseCode, sectionName string) (*models.ExamSlots, models.CatalogMeta, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, models.CatalogMeta{}, err
	}
	sections, err := FindSections(snap.Sections, []models.SectionKey{{CourseCode: courseCode, SectionName: sectionName}})
	if err != nil {
		return nil, models.CatalogMeta{}, err
	}
	exams := sections[0].Exams
	return &exams, snap.Meta(), nil
}

// FindSections resolves section keys against a catalog, preserving key order.
func FindSections(catalog []models.Section, keys []models.SectionKey) ([]models.Section, error) {
	sections := make([]models.Section, 0, len(keys))
	for _, key := range keys {
		code := strings.TrimSpace(key.CourseCode)
		name := strings.TrimSpace(key.SectionName)
		if code == "" || name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course code and section name are required")
		}
		idx := -1
		for i := range catalog {
			if strings.EqualFold(catalog[i].CourseCode, code) && catalog[i].SectionName == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s-%s not found", strings.ToUpper(code), name))
		}
		sections = append(sections, catalog[idx])
	}
	return sections, nil
}

// IsCatalogUnavailable reports whether err means no catalog could be loaded.
func IsCatalogUnavailable(err error) bool {
	return appErrors.HasCode(err, appErrors.ErrCatalogUnavailable)
}
