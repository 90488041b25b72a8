package services

import (
	"context"
	"fmt"

	"finanz/internal/core"
	"finanz/internal/log"
	"finanz/internal/storage"
)

// CardService manages credit cards. Cards belong to their creator and
// survive every ledger reset.
type CardService struct {
	store  storage.Store
	logger *log.Logger
}

func NewCardService(store storage.Store, logger *log.Logger) *CardService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger)
	}
	return &CardService{store: store, logger: logger}
}

func (s *CardService) Create(ctx context.Context, card core.CreditCard) (core.CreditCard, error) {
	if err := card.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	created, err := s.store.CreateCreditCard(ctx, card)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("create credit card: %w", err)
	}
	s.logger.InfoContext(ctx, "Credit card created",
		log.FieldUserID, card.UserID,
		"card_id", created.ID)
	return created, nil
}

func (s *CardService) List(ctx context.Context, userID string) ([]core.CreditCard, error) {
	cards, err := s.store.ListCreditCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	return cards, nil
}

func (s *CardService) Update(ctx context.Context, card core.CreditCard) error {
	if err := card.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateCreditCard(ctx, card); err != nil {
		return fmt.Errorf("update credit card: %w", err)
	}
	return nil
}

func (s *CardService) Delete(ctx context.Context, id, userID string) error {
	if err := s.store.DeleteCreditCard(ctx, id, userID); err != nil {
		return fmt.Errorf("delete credit card: %w", err)
	}
	return nil
}
