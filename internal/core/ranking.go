package core

import (
	"sort"
	"time"
)

// CloseHour is the hour (on the last calendar day of a month) at which a
// ranking period closes. The cutover is intentionally before midnight so a
// family's month visibly "closes" at 22:00; keep it parametrized here
// rather than assuming calendar boundaries.
const CloseHour = 22

// RankingWindow is one scoring period. A period opens at CloseHour on the
// last day of the previous month and closes at CloseHour on the last day of
// the current month.
type RankingWindow struct {
	Start time.Time
	End   time.Time
}

// RankingEntry is a derived standing; it is recomputed on demand and never
// persisted.
type RankingEntry struct {
	UserID    string
	Points    int
	FullName  string
	AvatarURL string
}

// lastDayCutover returns CloseHour:00 on the last calendar day of the month
// offset months away from ref's month.
func lastDayCutover(ref time.Time, offset int) time.Time {
	firstOfNext := time.Date(ref.Year(), ref.Month()+time.Month(offset+1), 1, 0, 0, 0, 0, ref.Location())
	lastDay := firstOfNext.AddDate(0, 0, -1)
	return time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day(), CloseHour, 0, 0, 0, ref.Location())
}

// CurrentWindow computes the open scoring period as of now. The end clamps
// to min(now, closing instant): once the cutover passes, the window stops
// advancing until the caller moves to the next period.
func CurrentWindow(now time.Time) RankingWindow {
	start := lastDayCutover(now, -1)
	cutoff := lastDayCutover(now, 0)
	end := now
	if !now.Before(cutoff) {
		end = cutoff
	}
	return RankingWindow{Start: start, End: end}
}

// PreviousWindow computes the fully closed period before the current one,
// i.e. the span between the two cutover instants preceding now.
func PreviousWindow(now time.Time) RankingWindow {
	return RankingWindow{
		Start: lastDayCutover(now, -2),
		End:   lastDayCutover(now, -1),
	}
}

// Contains reports whether t falls inside the window, inclusive on both
// ends.
func (w RankingWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// SumPoints totals each owner's points across the given transactions.
// Absent point values are already zero in the domain model.
func SumPoints(txs []Transaction) map[string]int {
	points := make(map[string]int)
	for _, t := range txs {
		points[t.UserID] += t.Points
	}
	return points
}

// PlaceholderName labels an owner whose profile cannot be resolved.
const PlaceholderName = "Usuário"

// Standings turns per-user point totals into an ordered ranking, resolving
// display profiles where available. Order is descending points; ties break
// by ascending user ID so the result is deterministic.
func Standings(points map[string]int, profiles map[string]Profile) []RankingEntry {
	entries := make([]RankingEntry, 0, len(points))
	for userID, total := range points {
		entry := RankingEntry{UserID: userID, Points: total, FullName: PlaceholderName}
		if p, ok := profiles[userID]; ok {
			if p.FullName != "" {
				entry.FullName = p.FullName
			}
			entry.AvatarURL = p.AvatarURL
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}
