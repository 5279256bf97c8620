package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

// ExamOverlap reports whether two exam sittings collide. Sittings on different
// or unknown dates never collide. When the dates match but either sitting has
// an unusable time the sittings are assumed to collide.
func ExamOverlap(a, b models.ExamSlot) bool {
	dateA, okA := examDate(a)
	dateB, okB := examDate(b)
	if !okA || !okB || dateA != dateB {
		return false
	}

	startA, endA, okA := examWindow(a)
	startB, endB, okB := examWindow(b)
	if !okA || !okB {
		return true
	}
	return Overlaps(startA, endA, startB, endB)
}

func examDate(slot models.ExamSlot) (string, bool) {
	if slot.NormalizedDate != "" {
		return slot.NormalizedDate, true
	}
	return NormalizeDate(slot.Date)
}

func examWindow(slot models.ExamSlot) (int, int, bool) {
	start, okStart := ParseMinutes(slot.StartTime)
	end, okEnd := ParseMinutes(slot.EndTime)
	if !okStart || !okEnd || start == 0 || end == 0 || end <= start {
		return 0, 0, false
	}
	return start, end, true
}

// ExamConflicts compares midterm with midterm and final with final. A section
// never conflicts with itself.
func ExamConflicts(a, b models.Section) []models.ConflictRecord {
	if a.Key() == b.Key() {
		return nil
	}

	var records []models.ConflictRecord
	pairs := []struct {
		kind  models.ConflictKind
		slotA *models.ExamSlot
		slotB *models.ExamSlot
	}{
		{kind: models.ConflictExamMid, slotA: a.Exams.Mid, slotB: b.Exams.Mid},
		{kind: models.ConflictExamFinal, slotA: a.Exams.Final, slotB: b.Exams.Final},
	}
	for _, p := range pairs {
		if p.slotA == nil || p.slotB == nil {
			continue
		}
		if !ExamOverlap(*p.slotA, *p.slotB) {
			continue
		}
		date, _ := examDate(*p.slotA)
		records = append(records, models.ConflictRecord{
			Course1:  a.CourseCode,
			Section1: a.SectionName,
			Course2:  b.CourseCode,
			Section2: b.SectionName,
			Kind:     p.kind,
			Date:     date,
			Time1:    timeRange(p.slotA.StartTime, p.slotA.EndTime),
			Time2:    timeRange(p.slotB.StartTime, p.slotB.EndTime),
		})
	}
	return records
}

// MeetingsCompatible reports whether two meetings can both be attended.
// Meetings on different weekdays are always compatible; anything that cannot
// be resolved on the same day is treated as incompatible.
func MeetingsCompatible(a, b models.Meeting) bool {
	if !a.Day.Valid() || !b.Day.Valid() {
		return false
	}
	if a.Day != b.Day {
		return true
	}
	if a.Ambiguous || b.Ambiguous {
		return false
	}
	return !Overlaps(a.StartMinutes, a.EndMinutes, b.StartMinutes, b.EndMinutes)
}

// SectionInternallyConflicted reports whether any two meetings of the section collide.
func SectionInternallyConflicted(section models.Section) bool {
	meetings := AllMeetings(section)
	for i := 0; i < len(meetings); i++ {
		for j := i + 1; j < len(meetings); j++ {
			if !MeetingsCompatible(meetings[i], meetings[j]) {
				return true
			}
		}
	}
	return false
}

// CombinationHasScheduleConflict reports whether the sections cannot be
// attended together. Sections of the same course taught by the same faculty
// are not compared against each other.
func CombinationHasScheduleConflict(sections []models.Section) bool {
	for _, s := range sections {
		if SectionInternallyConflicted(s) {
			return true
		}
	}
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			if sameCourseAndFaculty(sections[i], sections[j]) {
				continue
			}
			if !sectionsCompatible(sections[i], sections[j]) {
				return true
			}
		}
	}
	return false
}

func sectionsCompatible(a, b models.Section) bool {
	for _, ma := range AllMeetings(a) {
		for _, mb := range AllMeetings(b) {
			if !MeetingsCompatible(ma, mb) {
				return false
			}
		}
	}
	return true
}

func sameCourseAndFaculty(a, b models.Section) bool {
	return strings.EqualFold(a.CourseCode, b.CourseCode) &&
		strings.EqualFold(strings.TrimSpace(a.Faculty), strings.TrimSpace(b.Faculty))
}

// ExamConflictsAmong collects exam conflicts for every pair of sections.
func ExamConflictsAmong(sections []models.Section) []models.ConflictRecord {
	var records []models.ConflictRecord
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			records = append(records, ExamConflicts(sections[i], sections[j])...)
		}
	}
	return records
}

// ScheduleConflicts lists every incompatible meeting pair, both inside a
// section and across sections, using the same exemptions as
// CombinationHasScheduleConflict.
func ScheduleConflicts(sections []models.Section) []models.ConflictRecord {
	var records []models.ConflictRecord
	for _, s := range sections {
		meetings := AllMeetings(s)
		for i := 0; i < len(meetings); i++ {
			for j := i + 1; j < len(meetings); j++ {
				if !MeetingsCompatible(meetings[i], meetings[j]) {
					records = append(records, meetingConflict(s, meetings[i], s, meetings[j]))
				}
			}
		}
	}
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			if sameCourseAndFaculty(sections[i], sections[j]) {
				continue
			}
			for _, ma := range AllMeetings(sections[i]) {
				for _, mb := range AllMeetings(sections[j]) {
					if !MeetingsCompatible(ma, mb) {
						records = append(records, meetingConflict(sections[i], ma, sections[j], mb))
					}
				}
			}
		}
	}
	return records
}

func meetingConflict(a models.Section, ma models.Meeting, b models.Section, mb models.Meeting) models.ConflictRecord {
	return models.ConflictRecord{
		Course1:  a.CourseCode,
		Section1: a.SectionName,
		Course2:  b.CourseCode,
		Section2: b.SectionName,
		Kind:     meetingConflictKind(ma.Kind, mb.Kind),
		Day:      ma.Day,
		Time1:    timeRange(ma.StartTime, ma.EndTime),
		Time2:    timeRange(mb.StartTime, mb.EndTime),
	}
}

func meetingConflictKind(a, b models.MeetingKind) models.ConflictKind {
	switch {
	case a == models.MeetingLab && b == models.MeetingLab:
		return models.ConflictLabLab
	case a == models.MeetingLab:
		return models.ConflictLabClass
	case b == models.MeetingLab:
		return models.ConflictClassLab
	default:
		return models.ConflictClassClass
	}
}

func timeRange(start, end string) string {
	return strings.TrimSpace(start) + " - " + strings.TrimSpace(end)
}

// FormatExamConflicts renders exam conflicts as a short human readable report
// grouping midterm and final collisions by course pair.
func FormatExamConflicts(records []models.ConflictRecord) string {
	type pairKey struct{ first, second string }
	mid := map[pairKey]models.ConflictRecord{}
	final := map[pairKey]models.ConflictRecord{}
	courses := map[string]struct{}{}

	for _, r := range records {
		if !r.IsExam() || r.Course1 == r.Course2 {
			continue
		}
		courses[r.Course1] = struct{}{}
		courses[r.Course2] = struct{}{}
		first, second := r.Course1, r.Course2
		if second < first {
			first, second = second, first
		}
		key := pairKey{first, second}
		if r.Kind == models.ConflictExamMid {
			mid[key] = r
		} else {
			final[key] = r
		}
	}
	if len(mid) == 0 && len(final) == 0 {
		return ""
	}

	affected := make([]string, 0, len(courses))
	for c := range courses {
		affected = append(affected, c)
	}
	sort.Strings(affected)

	var b strings.Builder
	b.WriteString("Exam Conflicts\n\n")
	fmt.Fprintf(&b, "Affected Courses: %s\n", strings.Join(affected, ", "))

	writeGroup := func(title string, group map[pairKey]models.ConflictRecord) {
		if len(group) == 0 {
			return
		}
		keys := make([]pairKey, 0, len(group))
		for k := range group {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].first != keys[j].first {
				return keys[i].first < keys[j].first
			}
			return keys[i].second < keys[j].second
		})
		fmt.Fprintf(&b, "\n%s\n", title)
		for _, k := range keys {
			r := group[k]
			fmt.Fprintf(&b, "%s ↔ %s: %s, %s\n", k.first, k.second, r.Date, r.Time1)
		}
	}
	writeGroup("Midterm Conflicts", mid)
	writeGroup("Final Conflicts", final)

	return strings.TrimSpace(b.String())
}
