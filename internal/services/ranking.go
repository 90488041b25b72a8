package services

import (
	"context"
	"time"

	"finanz/internal/core"
	"finanz/internal/log"
	"finanz/internal/storage"
)

// RankingService computes family standings for the open scoring period and
// the winner of the closed one. Standings are always derived from the ledger,
// never stored.
type RankingService struct {
	store  storage.Store
	logger *log.Logger
	now    func() time.Time
}

func NewRankingService(store storage.Store, logger *log.Logger) *RankingService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentRanking)
	}
	return &RankingService{store: store, logger: logger, now: time.Now}
}

// standings computes the ordered entries for one window. Every family member
// appears even with zero points. A fetch failure degrades to an empty board
// rather than an error so the dashboard stays up.
func (s *RankingService) windowTransactions(ctx context.Context, familyID string, window core.RankingWindow) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, storage.TransactionFilter{
		Scope: storage.Scope{FamilyID: familyID},
		From:  window.Start,
		To:    window.End,
	})
}

func (s *RankingService) standings(ctx context.Context, familyID string, window core.RankingWindow) []core.RankingEntry {
	txs, err := s.windowTransactions(ctx, familyID, window)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load ranking window, serving empty board",
			log.FieldError, err,
			log.FieldFamilyID, familyID)
		return []core.RankingEntry{}
	}

	points := core.SumPoints(txs)

	members, err := s.store.ListFamilyMembers(ctx, familyID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load family members for ranking",
			log.FieldError, err,
			log.FieldFamilyID, familyID)
	}
	for _, m := range members {
		if _, ok := points[m.UserID]; !ok {
			points[m.UserID] = 0
		}
	}

	userIDs := make([]string, 0, len(points))
	for id := range points {
		userIDs = append(userIDs, id)
	}
	profiles, err := s.store.GetProfiles(ctx, userIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to resolve profiles for ranking",
			log.FieldError, err,
			log.FieldFamilyID, familyID)
		profiles = nil
	}

	return core.Standings(points, profiles)
}

// Current returns the standings of the open scoring period.
func (s *RankingService) Current(ctx context.Context, familyID string) []core.RankingEntry {
	return s.standings(ctx, familyID, core.CurrentWindow(s.now()))
}

// LastWinner returns the top entry of the previous, fully closed period, or
// nil when that period had no transactions. Only users who recorded at least
// one transaction in the window compete; a window of zero-point installment
// rows still crowns its most active owner.
func (s *RankingService) LastWinner(ctx context.Context, familyID string) *core.RankingEntry {
	txs, err := s.windowTransactions(ctx, familyID, core.PreviousWindow(s.now()))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load previous ranking window",
			log.FieldError, err,
			log.FieldFamilyID, familyID)
		return nil
	}
	if len(txs) == 0 {
		return nil
	}

	points := core.SumPoints(txs)
	userIDs := make([]string, 0, len(points))
	for id := range points {
		userIDs = append(userIDs, id)
	}
	profiles, err := s.store.GetProfiles(ctx, userIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to resolve profiles for last winner",
			log.FieldError, err,
			log.FieldFamilyID, familyID)
		profiles = nil
	}

	entries := core.Standings(points, profiles)
	winner := entries[0]
	return &winner
}
