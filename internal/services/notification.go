package services

import (
	"context"
	"fmt"

	"finanz/internal/amqp"
	"finanz/internal/core"
	"finanz/internal/log"
	"finanz/internal/storage"
)

const defaultNotificationLimit = 50

// NotificationService reads the notification feed and turns deletion events
// into rows for the owner.
type NotificationService struct {
	store  storage.Store
	logger *log.Logger
}

func NewNotificationService(store storage.Store, logger *log.Logger) *NotificationService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	}
	return &NotificationService{store: store, logger: logger}
}

// List returns the user's most recent notifications.
func (s *NotificationService) List(ctx context.Context, userID string) ([]core.Notification, error) {
	notifications, err := s.store.ListNotifications(ctx, userID, defaultNotificationLimit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount returns how many notifications the user has not read yet.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.store.MarkNotificationRead(ctx, id, userID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.store.MarkAllNotificationsRead(ctx, userID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// HandleDeletion consumes one deletion event. Only the owner gets a row, and
// only when someone else removed their transaction.
func (s *NotificationService) HandleDeletion(ctx context.Context, msg *amqp.TransactionDeletedMessage) error {
	if msg.OwnerUserID == "" || msg.OwnerUserID == msg.DeletedByUserID {
		return nil
	}

	text := fmt.Sprintf("A transação %q foi excluída na família %s", msg.TransactionName, msg.FamilyName)
	if msg.FamilyName == "" {
		text = fmt.Sprintf("A transação %q foi excluída", msg.TransactionName)
	}

	_, err := s.store.CreateNotification(ctx, core.Notification{
		UserID:    msg.OwnerUserID,
		Message:   text,
		CreatedAt: msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	s.logger.InfoContext(ctx, "Deletion notification stored",
		log.FieldUserID, msg.OwnerUserID,
		log.FieldTxID, msg.TransactionID)
	return nil
}
