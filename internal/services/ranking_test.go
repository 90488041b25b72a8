package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanz/internal/core"
	"finanz/internal/storage/storetest"
)

// rankingFixture seeds a family of three and pins the clock to mid-March.
func rankingFixture(t *testing.T) (*storetest.InMemory, *RankingService, string) {
	t.Helper()
	store := storetest.New()
	svc := NewRankingService(store, nil)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	family, _ := store.CreateFamily(context.Background(), core.Family{Name: "Silva", CreatedBy: "user-a"})
	for _, uid := range []string{"user-a", "user-b", "user-c"} {
		store.AddFamilyMember(context.Background(), core.FamilyMember{FamilyID: family.ID, UserID: uid, Role: core.RoleMember})
	}
	store.UpsertProfile(context.Background(), core.Profile{ID: "user-a", FullName: "Ana", AvatarURL: "https://cdn/a.png"})
	store.UpsertProfile(context.Background(), core.Profile{ID: "user-b", FullName: "Bruno"})

	return store, svc, family.ID
}

func seedTx(store *storetest.InMemory, familyID, userID string, date time.Time, points int) {
	store.CreateTransaction(context.Background(), core.Transaction{
		UserID: userID, FamilyID: familyID, Kind: core.Expense,
		Amount: decimal.NewFromInt(10), Category: "mercado", Name: "x",
		Date: date, Points: points,
	})
}

func TestRankingService_Current(t *testing.T) {
	store, svc, familyID := rankingFixture(t)

	// March period: opens Feb 28 22:00, still open mid-March.
	inWindow := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	beforeWindow := time.Date(2026, 2, 28, 21, 0, 0, 0, time.UTC)

	seedTx(store, familyID, "user-a", inWindow, core.PointsNew)
	seedTx(store, familyID, "user-a", inWindow.AddDate(0, 0, 1), core.PointsNew)
	seedTx(store, familyID, "user-b", inWindow, core.PointsNew)
	seedTx(store, familyID, "user-b", beforeWindow, core.PointsNew) // previous period

	entries := svc.Current(context.Background(), familyID)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3 (all members listed)", len(entries))
	}
	if entries[0].UserID != "user-a" || entries[0].Points != 10 {
		t.Errorf("leader = %+v, want user-a with 10", entries[0])
	}
	if entries[1].UserID != "user-b" || entries[1].Points != 5 {
		t.Errorf("second = %+v, want user-b with 5", entries[1])
	}
	if entries[2].UserID != "user-c" || entries[2].Points != 0 {
		t.Errorf("third = %+v, want user-c with 0", entries[2])
	}

	if entries[0].FullName != "Ana" || entries[0].AvatarURL != "https://cdn/a.png" {
		t.Errorf("leader profile = %+v", entries[0])
	}
	if entries[2].FullName != core.PlaceholderName {
		t.Errorf("missing profile name = %q, want %q", entries[2].FullName, core.PlaceholderName)
	}
}

func TestRankingService_Current_TieBreak(t *testing.T) {
	store, svc, familyID := rankingFixture(t)
	date := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	seedTx(store, familyID, "user-b", date, core.PointsNew)
	seedTx(store, familyID, "user-a", date, core.PointsNew)

	entries := svc.Current(context.Background(), familyID)
	if entries[0].UserID != "user-a" || entries[1].UserID != "user-b" {
		t.Errorf("tie should break by ascending user ID, got %q then %q", entries[0].UserID, entries[1].UserID)
	}
}

func TestRankingService_Current_StoreFailureYieldsEmptyBoard(t *testing.T) {
	store, svc, familyID := rankingFixture(t)
	store.FailListTxs = true

	entries := svc.Current(context.Background(), familyID)
	if entries == nil {
		t.Fatal("expected empty slice, not nil")
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestRankingService_LastWinner(t *testing.T) {
	store, svc, familyID := rankingFixture(t)

	// February period: Jan 31 22:00 through Feb 28 22:00.
	febDate := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	seedTx(store, familyID, "user-b", febDate, core.PointsNew)
	seedTx(store, familyID, "user-b", febDate.AddDate(0, 0, 1), core.PointsNew)
	seedTx(store, familyID, "user-a", febDate, core.PointsNew)

	winner := svc.LastWinner(context.Background(), familyID)
	if winner == nil {
		t.Fatal("expected a winner")
	}
	if winner.UserID != "user-b" || winner.Points != 10 {
		t.Errorf("winner = %+v, want user-b with 10", winner)
	}
}

func TestRankingService_LastWinner_NoActivity(t *testing.T) {
	_, svc, familyID := rankingFixture(t)

	if winner := svc.LastWinner(context.Background(), familyID); winner != nil {
		t.Errorf("winner = %+v, want nil for an idle month", winner)
	}
}

func TestRankingService_LastWinner_ZeroPointActivity(t *testing.T) {
	store, svc, familyID := rankingFixture(t)

	// Later installments score zero but still count as activity, so a month
	// holding only installment rows crowns their owner.
	febDate := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	seedTx(store, familyID, "user-b", febDate, core.PointsInstallment)

	winner := svc.LastWinner(context.Background(), familyID)
	if winner == nil {
		t.Fatal("expected a winner for a zero-point month with transactions")
	}
	if winner.UserID != "user-b" || winner.Points != 0 {
		t.Errorf("winner = %+v, want user-b with 0 points", winner)
	}
}
