package planner

import (
	"sort"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

const (
	earlyCutoff      = 9 * 60
	lateCutoff       = 16 * 60
	gapThreshold     = 30
	nearFullBonus    = 1000
	nearMissPenalty  = 50
	farDayReward     = 10
	balanceWeight    = 2
	timingWeight     = 2
	timingTargetBase = 5
)

// Ranked is a valid combination together with its ranking inputs.
type Ranked struct {
	Sections   []models.Section
	Score      float64
	CampusDays int
	Days       []models.Day
	// Index is the position of the combination in enumeration order.
	Index int
}

// CampusDays returns the distinct weekdays the combination occupies, in week order.
func CampusDays(tuple []models.Section) (int, []models.Day) {
	present := make(map[models.Day]struct{})
	for _, s := range tuple {
		for _, m := range AllMeetings(s) {
			if m.Day.Valid() {
				present[m.Day] = struct{}{}
			}
		}
	}
	days := make([]models.Day, 0, len(present))
	for _, d := range models.Week {
		if _, ok := present[d]; ok {
			days = append(days, d)
		}
	}
	return len(days), days
}

// Score rates a combination: balanced days, short gaps and meeting times
// matching the commute preference score higher.
func Score(tuple []models.Section, query models.RoutineQuery) float64 {
	keys := scoringDays(tuple, query.SelectedDays)
	perDay := make(map[models.Day][][2]int, len(keys))
	for _, d := range keys {
		perDay[d] = nil
	}

	early, late := 0, 0
	for _, s := range tuple {
		for _, m := range AllMeetings(s) {
			if _, ok := perDay[m.Day]; !ok || m.Ambiguous {
				continue
			}
			perDay[m.Day] = append(perDay[m.Day], [2]int{m.StartMinutes, m.EndMinutes})
			if m.StartMinutes < earlyCutoff {
				early++
			}
			if m.EndMinutes > lateCutoff {
				late++
			}
		}
	}

	var score float64
	if len(keys) > 0 {
		lo, hi := -1, 0
		for _, d := range keys {
			n := len(perDay[d])
			if lo < 0 || n < lo {
				lo = n
			}
			if n > hi {
				hi = n
			}
		}
		score -= float64(hi-lo) * balanceWeight
	}

	var gaps []int
	for _, d := range keys {
		blocks := perDay[d]
		sort.Slice(blocks, func(i, j int) bool { return blocks[i][0] < blocks[j][0] })
		for i := 0; i+1 < len(blocks); i++ {
			if gap := blocks[i+1][0] - blocks[i][1]; gap > gapThreshold {
				gaps = append(gaps, gap)
			}
		}
	}
	if len(gaps) > 0 {
		total := 0
		for _, g := range gaps {
			total += g
		}
		score -= float64(total) / float64(len(gaps)) / 60
	}

	switch query.CommutePreference {
	case models.CommuteEarly:
		score += float64(timingTargetBase-late) * timingWeight
	case models.CommuteLate:
		score += float64(timingTargetBase-early) * timingWeight
	default:
		score -= float64(abs(early-late)) * timingWeight
	}

	used := 0
	for _, d := range keys {
		if len(perDay[d]) > 0 {
			used++
		}
	}
	switch query.CommutePreference {
	case models.CommuteFar:
		score += float64(len(keys)-used) * farDayReward
	case models.CommuteNear:
		if used == len(keys) {
			score += nearFullBonus
		} else {
			score -= float64(len(keys)-used) * nearMissPenalty
		}
	}

	return score
}

// scoringDays are the selected days in week order, or the campus days of the
// combination when no day restriction was given.
func scoringDays(tuple []models.Section, selected []models.Day) []models.Day {
	if len(selected) == 0 {
		_, days := CampusDays(tuple)
		return days
	}
	set := make(map[models.Day]struct{}, len(selected))
	for _, d := range selected {
		set[d] = struct{}{}
	}
	days := make([]models.Day, 0, len(set))
	for _, d := range models.Week {
		if _, ok := set[d]; ok {
			days = append(days, d)
		}
	}
	return days
}

// Rank scores every combination. With UseRanking set the result is ordered
// best first: "far" prefers fewer campus days, any other preference prefers
// more, and score decides the rest. Without it enumeration order is kept. Ties keep
// enumeration order.
func Rank(tuples [][]models.Section, query models.RoutineQuery) []Ranked {
	ranked := make([]Ranked, len(tuples))
	for i, tuple := range tuples {
		count, days := CampusDays(tuple)
		ranked[i] = Ranked{
			Sections:   tuple,
			Score:      Score(tuple, query),
			CampusDays: count,
			Days:       days,
			Index:      i,
		}
	}
	if !query.UseRanking {
		return ranked
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.CampusDays != b.CampusDays {
			// only "far" wants fewer days; every other preference wants more
			if query.CommutePreference == models.CommuteFar {
				return a.CampusDays < b.CampusDays
			}
			return a.CampusDays > b.CampusDays
		}
		return a.Score > b.Score
	})
	return ranked
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
