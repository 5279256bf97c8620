package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

// catalogSectionsSchema creates the mirror table when missing.
const catalogSectionsSchema = `CREATE TABLE IF NOT EXISTS catalog_sections (
    course_code  TEXT        NOT NULL,
    section_name TEXT        NOT NULL,
    section_id   TEXT        NOT NULL DEFAULT '',
    faculty      TEXT        NOT NULL DEFAULT '',
    payload      JSONB       NOT NULL,
    fetched_at   TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (course_code, section_name)
)`

type dbObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

type catalogSectionRow struct {
	CourseCode  string         `db:"course_code"`
	SectionName string         `db:"section_name"`
	SectionID   string         `db:"section_id"`
	Faculty     string         `db:"faculty"`
	Payload     types.JSONText `db:"payload"`
	FetchedAt   time.Time      `db:"fetched_at"`
}

// SectionRepository mirrors the last good catalog download in PostgreSQL so
// planning can continue while the upstream source is down.
type SectionRepository struct {
	db       *sqlx.DB
	observer dbObserver
}

// NewSectionRepository constructs the repository. observer may be nil.
func NewSectionRepository(db *sqlx.DB, observer dbObserver) *SectionRepository {
	return &SectionRepository{db: db, observer: observer}
}

// EnsureSchema creates the mirror table if needed.
func (r *SectionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, catalogSectionsSchema); err != nil {
		return fmt.Errorf("ensure catalog_sections schema: %w", err)
	}
	return nil
}

// ReplaceAll swaps the mirrored catalog for the given records in one transaction.
// Records sharing a course code and section name keep the first occurrence.
func (r *SectionRepository) ReplaceAll(ctx context.Context, sections []models.RawSection, fetchedAt time.Time) (err error) {
	start := time.Now()
	defer r.observe("catalog_sections.replace_all", start)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog mirror tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM catalog_sections`); err != nil {
		return fmt.Errorf("clear catalog mirror: %w", err)
	}

	const insert = `INSERT INTO catalog_sections (course_code, section_name, section_id, faculty, payload, fetched_at)
VALUES (:course_code, :section_name, :section_id, :faculty, :payload, :fetched_at)
ON CONFLICT (course_code, section_name) DO NOTHING`
	for i := range sections {
		payload, marshalErr := json.Marshal(sections[i])
		if marshalErr != nil {
			err = fmt.Errorf("marshal catalog section %s: %w", sections[i].CourseCode, marshalErr)
			return err
		}
		row := catalogSectionRow{
			CourseCode:  sections[i].CourseCode,
			SectionName: sections[i].SectionName.String(),
			SectionID:   sections[i].SectionID.String(),
			Faculty:     sections[i].Faculties,
			Payload:     types.JSONText(payload),
			FetchedAt:   fetchedAt.UTC(),
		}
		if _, err = tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("insert catalog section %s-%s: %w", row.CourseCode, row.SectionName, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog mirror: %w", err)
	}
	return nil
}

// List returns the mirrored catalog and the time it was fetched. An empty
// mirror returns no sections and a zero time.
func (r *SectionRepository) List(ctx context.Context) ([]models.RawSection, time.Time, error) {
	start := time.Now()
	defer r.observe("catalog_sections.list", start)

	const query = `SELECT course_code, section_name, section_id, faculty, payload, fetched_at
FROM catalog_sections ORDER BY course_code ASC, section_name ASC`
	var rows []catalogSectionRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, time.Time{}, fmt.Errorf("list catalog mirror: %w", err)
	}

	sections := make([]models.RawSection, 0, len(rows))
	var fetchedAt time.Time
	for _, row := range rows {
		var raw models.RawSection
		if err := json.Unmarshal(row.Payload, &raw); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode mirrored section %s-%s: %w", row.CourseCode, row.SectionName, err)
		}
		sections = append(sections, raw)
		if row.FetchedAt.After(fetchedAt) {
			fetchedAt = row.FetchedAt
		}
	}
	return sections, fetchedAt, nil
}

func (r *SectionRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}
