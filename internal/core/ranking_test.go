package core

import (
	"testing"
	"time"
)

func TestCurrentWindowMidMonth(t *testing.T) {
	// Day 15 of March at any hour: the window opens at 22:00 on the last
	// day of February and clamps its end to now.
	now := time.Date(2025, time.March, 15, 9, 30, 0, 0, time.UTC)
	w := CurrentWindow(now)

	wantStart := time.Date(2025, time.February, 28, 22, 0, 0, 0, time.UTC)
	if w.Start != wantStart {
		t.Fatalf("start = %v, want %v", w.Start, wantStart)
	}
	if w.End != now {
		t.Fatalf("end = %v, want now %v", w.End, now)
	}
}

func TestCurrentWindowAfterCutoff(t *testing.T) {
	// Past 22:00 on the last day of the month the window stops advancing.
	now := time.Date(2025, time.March, 31, 23, 15, 0, 0, time.UTC)
	w := CurrentWindow(now)

	wantEnd := time.Date(2025, time.March, 31, 22, 0, 0, 0, time.UTC)
	if w.End != wantEnd {
		t.Fatalf("end = %v, want clamped cutoff %v", w.End, wantEnd)
	}
}

func TestCurrentWindowLeapFebruary(t *testing.T) {
	now := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	w := CurrentWindow(now)

	wantStart := time.Date(2024, time.February, 29, 22, 0, 0, 0, time.UTC)
	if w.Start != wantStart {
		t.Fatalf("start = %v, want %v", w.Start, wantStart)
	}
}

func TestPreviousWindow(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	w := PreviousWindow(now)

	wantStart := time.Date(2025, time.January, 31, 22, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, time.February, 28, 22, 0, 0, 0, time.UTC)
	if w.Start != wantStart || w.End != wantEnd {
		t.Fatalf("window = [%v, %v], want [%v, %v]", w.Start, w.End, wantStart, wantEnd)
	}
}

func TestWindowContains(t *testing.T) {
	w := RankingWindow{
		Start: time.Date(2025, time.February, 28, 22, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.March, 31, 22, 0, 0, 0, time.UTC),
	}
	if !w.Contains(w.Start) || !w.Contains(w.End) {
		t.Fatal("window must be inclusive on both ends")
	}
	if w.Contains(w.Start.Add(-time.Second)) {
		t.Fatal("instant before start should be outside")
	}
	if w.Contains(w.End.Add(time.Second)) {
		t.Fatal("instant after end should be outside")
	}
}

func TestSumPointsAndStandings(t *testing.T) {
	txs := []Transaction{
		{UserID: "a", Points: 5},
		{UserID: "a", Points: 5},
		{UserID: "b", Points: 0},
		{UserID: "a", Points: 5},
	}
	points := SumPoints(txs)
	if points["a"] != 15 {
		t.Fatalf("a = %d, want 15", points["a"])
	}
	if points["b"] != 0 {
		t.Fatalf("b = %d, want 0", points["b"])
	}

	profiles := map[string]Profile{
		"a": {ID: "a", FullName: "Ana", AvatarURL: "https://example.com/a.png"},
	}
	entries := Standings(points, profiles)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != "a" || entries[0].Points != 15 {
		t.Fatalf("first entry = %+v, want user a with 15 points", entries[0])
	}
	if entries[0].FullName != "Ana" {
		t.Fatalf("resolved name = %q, want Ana", entries[0].FullName)
	}
	if entries[1].FullName != PlaceholderName {
		t.Fatalf("unresolved owner should get placeholder, got %q", entries[1].FullName)
	}
}

func TestStandingsTieBreak(t *testing.T) {
	points := map[string]int{"c": 10, "a": 10, "b": 20}
	entries := Standings(points, nil)

	got := []string{entries[0].UserID, entries[1].UserID, entries[2].UserID}
	want := []string{"b", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
