// Package planner builds conflict-free course routines from a section catalog.
package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

// DefaultMaxCombinations bounds the Cartesian product when no limit is configured.
const DefaultMaxCombinations = 200000

// Observer receives planner instrumentation.
type Observer interface {
	ObservePlannerPhase(phase string, in, out int, duration time.Duration)
	ObserveAmbiguousTimes(count int)
}

// Options configures a Planner.
type Options struct {
	MaxCombinations int
	Logger          *zap.Logger
	Observer        Observer
}

// Planner plans routines against a caller supplied catalog snapshot. It keeps
// no state between calls.
type Planner struct {
	maxCombinations int
	logger          *zap.Logger
	observer        Observer
}

// New constructs a Planner.
func New(opts Options) *Planner {
	if opts.MaxCombinations == 0 {
		opts.MaxCombinations = DefaultMaxCombinations
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Planner{
		maxCombinations: opts.MaxCombinations,
		logger:          opts.Logger,
		observer:        opts.Observer,
	}
}

// DecodeCatalog converts raw catalog records into sections, logging every
// recoverable problem found along the way.
func (p *Planner) DecodeCatalog(raws []models.RawSection) []models.Section {
	sections := make([]models.Section, 0, len(raws))
	ambiguous := 0
	for _, raw := range raws {
		section, warnings := DecodeSection(raw)
		if strings.TrimSpace(section.CourseCode) == "" {
			p.logger.Warn("skipping catalog record without course code", zap.String("section_id", section.SectionID))
			continue
		}
		for _, w := range warnings {
			p.logger.Warn("catalog record needs attention", zap.String("detail", w))
		}
		for _, m := range AllMeetings(section) {
			if m.Ambiguous {
				ambiguous++
			}
		}
		sections = append(sections, section)
	}
	if ambiguous > 0 && p.observer != nil {
		p.observer.ObserveAmbiguousTimes(ambiguous)
	}
	return sections
}

// Plan runs the search and picks one routine. A failure is always a *PlanError.
func (p *Planner) Plan(query models.RoutineQuery, catalog []models.Section) (*models.RoutineResult, error) {
	if len(catalog) == 0 {
		return nil, &PlanError{
			Reason:  ReasonCatalogUnavailable,
			Phase:   PhaseCandidates,
			Message: "course catalog is empty",
		}
	}

	search, err := p.Search(query, catalog)
	if err != nil {
		if planErr, ok := err.(*PlanError); ok {
			p.logger.Info("routine planning stopped",
				zap.String("reason", string(planErr.Reason)),
				zap.String("phase", string(planErr.Phase)),
				zap.String("course", planErr.Course),
				zap.Int("conflicts", len(planErr.Conflicts)),
			)
		}
		return nil, err
	}

	ranked := Rank(search.Valid, query)
	best := ranked[0]

	return &models.RoutineResult{
		ID:                RoutineID(query, best.Sections),
		Sections:          best.Sections,
		CampusDays:        best.CampusDays,
		CampusDayList:     best.Days,
		Score:             best.Score,
		ValidCombinations: len(search.Valid),
		Stats:             search.Stats,
	}, nil
}

// routineNamespace scopes routine ids generated by RoutineID.
var routineNamespace = uuid.MustParse("5f0c1a52-8d0e-4f7b-9a43-2f6a3c1d7e90")

// RoutineID names a routine by its sections and the preferences that chose
// it, so replanning the same query against the same catalog yields the same id.
func RoutineID(query models.RoutineQuery, sections []models.Section) string {
	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, "s:%s|%s;", strings.ToUpper(s.CourseCode), s.SectionName)
	}
	for _, d := range query.SelectedDays {
		fmt.Fprintf(&b, "d:%s;", d)
	}
	for _, w := range query.SelectedTimeWindows {
		fmt.Fprintf(&b, "w:%d-%d;", w.Start, w.End)
	}
	fmt.Fprintf(&b, "c:%s;r:%t", query.CommutePreference, query.UseRanking)
	return uuid.NewSHA1(routineNamespace, []byte(b.String())).String()
}

func (p *Planner) observePhase(phase Phase, in, out int, d time.Duration) {
	p.logger.Debug("routine phase finished", zap.String("phase", string(phase)), zap.Int("in", in), zap.Int("out", out))
	if p.observer != nil {
		p.observer.ObservePlannerPhase(string(phase), in, out, d)
	}
}
