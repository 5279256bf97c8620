package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/noah-isme/usis-routine-api/internal/models"
	"github.com/noah-isme/usis-routine-api/internal/planner"
	appErrors "github.com/noah-isme/usis-routine-api/pkg/errors"
)

func rawClass(day, start, end string) models.RawMeeting {
	return models.RawMeeting{Day: day, StartTime: start, EndTime: end}
}

func rawSection(code, name, faculty string, capacity, consumed int, meetings ...models.RawMeeting) models.RawSection {
	return models.RawSection{
		CourseCode:      code,
		CourseName:      code + " course",
		SectionID:       models.FlexString(code + name),
		SectionName:     models.FlexString(name),
		Faculties:       faculty,
		Capacity:        models.FlexInt(capacity),
		ConsumedSeat:    models.FlexInt(consumed),
		RoomName:        "UB" + name,
		SectionSchedule: &models.RawSectionSchedule{ClassSchedules: meetings},
	}
}

func withRawMid(raw models.RawSection, date, start, end string) models.RawSection {
	raw.SectionSchedule.MidExamDate = date
	raw.SectionSchedule.MidExamStartTime = start
	raw.SectionSchedule.MidExamEndTime = end
	return raw
}

func sampleCatalog() []models.RawSection {
	return []models.RawSection{
		withRawMid(rawSection("CSE110", "1", "ABC", 30, 20, rawClass("SUNDAY", "8:00 AM", "9:20 AM")), "2024-07-10", "10:00 AM", "12:00 PM"),
		rawSection("CSE110", "2", "DEF", 30, 30, rawClass("MONDAY", "8:00 AM", "9:20 AM")),
		withRawMid(rawSection("CSE220", "1", "GHI", 25, 5, rawClass("SUNDAY", "9:30 AM", "10:50 AM")), "2024-07-10", "11:00 AM", "1:00 PM"),
		withRawMid(rawSection("CSE220", "2", "abc", 25, 5, rawClass("TUESDAY", "8:00 AM", "9:20 AM")), "2024-07-11", "10:00 AM", "12:00 PM"),
		rawSection("MAT120", "1", "JKL", 40, 40, rawClass("SUNDAY", "11:00 AM", "12:20 PM")),
	}
}

func sampleSnapshot() *models.CatalogSnapshot {
	return &models.CatalogSnapshot{
		Sections:  planner.New(planner.Options{}).DecodeCatalog(sampleCatalog()),
		FetchedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		Source:    CatalogSourceUpstream,
	}
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func appErrorCode(err error) string {
	if appErr := appErrors.FromError(err); appErr != nil {
		return appErr.Code
	}
	return ""
}
