package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

// minLabMinutes is the shortest lab accepted once time windows are selected.
const minLabMinutes = 170

// SearchResult holds the combinations that survived every phase, in
// enumeration order.
type SearchResult struct {
	Valid [][]models.Section
	Stats models.SearchStats
}

// Candidates returns the sections eligible for one course request. Section
// overrides select exactly the named sections (an empty section name selects
// every section of that faculty with seats left); otherwise a faculty filter
// or, failing that, the whole course is used, keeping only sections with
// available seats.
func Candidates(req models.CourseRequest, catalog []models.Section) ([]models.Section, error) {
	code := strings.TrimSpace(req.CourseCode)
	var course []models.Section
	for _, s := range catalog {
		if strings.EqualFold(s.CourseCode, code) {
			course = append(course, s)
		}
	}
	if len(course) == 0 {
		return nil, courseNotFound(code, fmt.Sprintf("course %s was not found in the catalog", code))
	}

	var picked []models.Section
	switch {
	case len(req.SectionOverride) > 0:
		faculties := make([]string, 0, len(req.SectionOverride))
		for faculty := range req.SectionOverride {
			faculties = append(faculties, faculty)
		}
		sort.Strings(faculties)
		for _, faculty := range faculties {
			name := strings.TrimSpace(req.SectionOverride[faculty])
			matched := 0
			for _, s := range course {
				if !facultyMatches(s.Faculty, faculty) {
					continue
				}
				if name == "" {
					if s.AvailableSeats() <= 0 {
						continue
					}
				} else if !strings.EqualFold(s.SectionName, name) {
					continue
				}
				picked = append(picked, s)
				matched++
			}
			if matched == 0 {
				return nil, noCandidatesForFaculty(code, faculty)
			}
		}
	case len(req.FacultyFilter) > 0:
		for _, s := range course {
			if s.AvailableSeats() <= 0 {
				continue
			}
			for _, faculty := range req.FacultyFilter {
				if facultyMatches(s.Faculty, faculty) {
					picked = append(picked, s)
					break
				}
			}
		}
		if len(picked) == 0 {
			return nil, noCandidatesForFaculty(code, strings.Join(req.FacultyFilter, ", "))
		}
	default:
		for _, s := range course {
			if s.AvailableSeats() > 0 {
				picked = append(picked, s)
			}
		}
		if len(picked) == 0 {
			return nil, courseNotFound(code, fmt.Sprintf("course %s has no sections with available seats", code))
		}
	}

	return dedupeSections(picked), nil
}

func facultyMatches(sectionFaculty, wanted string) bool {
	wanted = strings.TrimSpace(wanted)
	if wanted == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(sectionFaculty), wanted)
}

func dedupeSections(sections []models.Section) []models.Section {
	seen := make(map[models.SectionKey]struct{}, len(sections))
	out := sections[:0:0]
	for _, s := range sections {
		if _, ok := seen[s.Key()]; ok {
			continue
		}
		seen[s.Key()] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Enumerate builds the Cartesian product of the candidate lists. The first
// list varies slowest. A positive limit caps the number of combinations.
func Enumerate(candidates [][]models.Section, limit int) ([][]models.Section, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	total := 1
	for _, c := range candidates {
		if len(c) == 0 {
			return nil, nil
		}
		total *= len(c)
		if limit > 0 && total > limit {
			return nil, &PlanError{
				Reason:  ReasonTooManyCombinations,
				Phase:   PhaseCandidates,
				Message: fmt.Sprintf("more than %d section combinations; narrow the faculty or section choices", limit),
			}
		}
	}

	tuples := make([][]models.Section, 0, total)
	idx := make([]int, len(candidates))
	for {
		tuple := make([]models.Section, len(candidates))
		for i, c := range candidates {
			tuple[i] = c[idx[i]]
		}
		tuples = append(tuples, tuple)

		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(candidates[k]) {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return tuples, nil
		}
	}
}

// Search enumerates every combination of candidate sections and filters it
// through the exam, schedule and preference phases in that order. When a
// phase rejects every remaining combination the search stops with a
// PlanError naming that phase.
func (p *Planner) Search(query models.RoutineQuery, catalog []models.Section) (*SearchResult, error) {
	requests, err := normalizeRequests(query.Courses)
	if err != nil {
		return nil, err
	}

	candidates := make([][]models.Section, 0, len(requests))
	for _, req := range requests {
		sections, err := Candidates(req, catalog)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, sections)
	}

	tuples, err := Enumerate(candidates, p.maxCombinations)
	if err != nil {
		return nil, err
	}
	result := &SearchResult{}
	result.Stats.Enumerated = len(tuples)

	start := time.Now()
	afterExam, examRecords := examPhase(tuples)
	p.observePhase(PhaseExam, len(tuples), len(afterExam), time.Since(start))
	result.Stats.AfterExam = len(afterExam)
	if len(afterExam) == 0 {
		return nil, &PlanError{
			Reason:    ReasonExamConflict,
			Phase:     PhaseExam,
			Message:   FormatExamConflicts(examRecords),
			Conflicts: examRecords,
		}
	}

	start = time.Now()
	afterSchedule := make([][]models.Section, 0, len(afterExam))
	for _, tuple := range afterExam {
		if !CombinationHasScheduleConflict(tuple) {
			afterSchedule = append(afterSchedule, tuple)
		}
	}
	p.observePhase(PhaseSchedule, len(afterExam), len(afterSchedule), time.Since(start))
	result.Stats.AfterSchedule = len(afterSchedule)
	if len(afterSchedule) == 0 {
		return nil, &PlanError{
			Reason:    ReasonScheduleConflict,
			Phase:     PhaseSchedule,
			Message:   "every combination of sections has overlapping classes or labs",
			Conflicts: ScheduleConflicts(afterExam[0]),
		}
	}

	start = time.Now()
	prefs := newPreferenceFilter(query)
	valid := make([][]models.Section, 0, len(afterSchedule))
	var firstViolation string
	for _, tuple := range afterSchedule {
		violation := prefs.tupleViolation(tuple)
		if violation == "" {
			valid = append(valid, tuple)
			continue
		}
		if firstViolation == "" {
			firstViolation = violation
		}
	}
	p.observePhase(PhasePreference, len(afterSchedule), len(valid), time.Since(start))
	result.Stats.AfterPreference = len(valid)
	if len(valid) == 0 {
		return nil, &PlanError{
			Reason:  ReasonPreferenceUnsatisfiable,
			Phase:   PhasePreference,
			Message: "no conflict-free routine fits the selected days and times: " + firstViolation,
		}
	}

	result.Valid = valid
	p.logger.Debug("routine search finished",
		zap.Int("enumerated", result.Stats.Enumerated),
		zap.Int("after_exam", result.Stats.AfterExam),
		zap.Int("after_schedule", result.Stats.AfterSchedule),
		zap.Int("valid", result.Stats.AfterPreference),
	)
	return result, nil
}

func normalizeRequests(courses []models.CourseRequest) ([]models.CourseRequest, error) {
	seen := make(map[string]struct{}, len(courses))
	out := make([]models.CourseRequest, 0, len(courses))
	for _, c := range courses {
		code := strings.ToUpper(strings.TrimSpace(c.CourseCode))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		c.CourseCode = strings.TrimSpace(c.CourseCode)
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, &PlanError{Reason: ReasonInvalidQuery, Phase: PhaseCandidates, Message: "at least one course is required"}
	}
	return out, nil
}

// examPhase keeps the tuples free of exam conflicts and returns the distinct
// conflicts found in the rejected ones, in discovery order.
func examPhase(tuples [][]models.Section) ([][]models.Section, []models.ConflictRecord) {
	survivors := make([][]models.Section, 0, len(tuples))
	seen := make(map[models.ConflictRecord]struct{})
	var records []models.ConflictRecord
	for _, tuple := range tuples {
		conflicts := ExamConflictsAmong(tuple)
		if len(conflicts) == 0 {
			survivors = append(survivors, tuple)
			continue
		}
		for _, c := range conflicts {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			records = append(records, c)
		}
	}
	return survivors, records
}

type preferenceFilter struct {
	days    map[models.Day]struct{}
	windows []models.TimeWindow
}

// newPreferenceFilter builds the day and window filter. Days are always a
// restriction: with none selected, every section that meets is rejected.
func newPreferenceFilter(query models.RoutineQuery) preferenceFilter {
	f := preferenceFilter{
		days:    make(map[models.Day]struct{}, len(query.SelectedDays)),
		windows: query.SelectedTimeWindows,
	}
	for _, d := range query.SelectedDays {
		f.days[d] = struct{}{}
	}
	return f
}

func (f preferenceFilter) tupleViolation(tuple []models.Section) string {
	for _, s := range tuple {
		if v := f.sectionViolation(s); v != "" {
			return v
		}
	}
	return ""
}

// PreferenceViolation explains why a section does not fit the selected days
// and time windows, or returns an empty string when it fits.
func PreferenceViolation(section models.Section, query models.RoutineQuery) string {
	return newPreferenceFilter(query).sectionViolation(section)
}

func (f preferenceFilter) sectionViolation(s models.Section) string {
	for _, m := range AllMeetings(s) {
		if _, ok := f.days[m.Day]; !ok {
			return fmt.Sprintf("%s meets on %s, which is not selected", s.Label(), dayLabel(m.Day))
		}
		if len(f.windows) == 0 || m.Ambiguous {
			continue
		}
		if m.Kind == models.MeetingLab {
			if v := f.labViolation(s, m); v != "" {
				return v
			}
			continue
		}
		if !f.containedInWindow(m.StartMinutes, m.EndMinutes) {
			return fmt.Sprintf("%s class %s-%s does not fit in any selected time slot", s.Label(), m.StartTime, m.EndTime)
		}
	}
	return ""
}

func (f preferenceFilter) labViolation(s models.Section, m models.Meeting) string {
	if m.Duration() < minLabMinutes {
		return fmt.Sprintf("%s lab lasts %d minutes, shorter than the required %d", s.Label(), m.Duration(), minLabMinutes)
	}
	var spanned, missing []string
	for _, slot := range DisplaySlots {
		if !Overlaps(m.StartMinutes, m.EndMinutes, slot.Start, slot.End) {
			continue
		}
		spanned = append(spanned, slot.Label)
		if !f.containedInWindow(slot.Start, slot.End) {
			missing = append(missing, slot.Label)
		}
	}
	if len(spanned) == 0 {
		if !f.containedInWindow(m.StartMinutes, m.EndMinutes) {
			return fmt.Sprintf("%s lab %s-%s does not fit in any selected time slot", s.Label(), m.StartTime, m.EndTime)
		}
		return ""
	}
	if len(missing) > 0 {
		return fmt.Sprintf("%s lab requires every time slot it spans to be selected: %s", s.Label(), strings.Join(spanned, ", "))
	}
	return ""
}

func (f preferenceFilter) containedInWindow(start, end int) bool {
	for _, w := range f.windows {
		if w.Contains(start, end) {
			return true
		}
	}
	return false
}

func dayLabel(d models.Day) string {
	if d == models.DayUnknown {
		return "an unknown day"
	}
	return string(d)
}
