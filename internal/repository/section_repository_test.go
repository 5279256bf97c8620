package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

type observedQuery struct {
	labels []string
}

func (o *observedQuery) ObserveDBQuery(label string, _ time.Duration) {
	o.labels = append(o.labels, label)
}

func newSectionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSectionRepositoryReplaceAll(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	obs := &observedQuery{}
	repo := NewSectionRepository(db, obs)

	fetchedAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	sections := []models.RawSection{
		{CourseCode: "CSE110", SectionName: "1", SectionID: "101", Faculties: "ABC"},
		{CourseCode: "CSE220", SectionName: "2", SectionID: "202", Faculties: "DEF"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM catalog_sections").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO catalog_sections").
		WithArgs("CSE110", "1", "101", "ABC", sqlmock.AnyArg(), fetchedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO catalog_sections").
		WithArgs("CSE220", "2", "202", "DEF", sqlmock.AnyArg(), fetchedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAll(context.Background(), sections, fetchedAt))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{"catalog_sections.replace_all"}, obs.labels)
}

func TestSectionRepositoryReplaceAllRollsBack(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM catalog_sections").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO catalog_sections").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), []models.RawSection{{CourseCode: "CSE110", SectionName: "1"}}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryList(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db, nil)

	older := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)
	rows := sqlmock.NewRows([]string{"course_code", "section_name", "section_id", "faculty", "payload", "fetched_at"}).
		AddRow("CSE110", "1", "101", "ABC", []byte(`{"courseCode":"CSE110","sectionName":1,"faculties":"ABC","capacity":30,"labSchedules":{"classSchedules":[{"day":"MONDAY","startTime":"14:00","endTime":"16:50"}]}}`), older).
		AddRow("CSE220", "2", "202", "DEF", []byte(`{"courseCode":"CSE220","sectionName":"2","faculties":"DEF"}`), newer)
	mock.ExpectQuery("SELECT course_code, section_name").WillReturnRows(rows)

	sections, fetchedAt, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, newer, fetchedAt)
	assert.Equal(t, models.FlexString("1"), sections[0].SectionName)
	assert.Equal(t, models.LabShapeNested, sections[0].LabSchedules.Shape)
	assert.Equal(t, models.FlexInt(30), sections[0].Capacity)
}

func TestSectionRepositoryEnsureSchema(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db, nil)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS catalog_sections").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
