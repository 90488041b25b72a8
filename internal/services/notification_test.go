package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"finanz/internal/amqp"
	"finanz/internal/core"
	"finanz/internal/storage/storetest"
)

func TestNotificationService_HandleDeletion(t *testing.T) {
	store := storetest.New()
	svc := NewNotificationService(store, nil)

	msg := amqp.NewTransactionDeletedMessage("tx-1", "owner", "deleter", "Feira", "fam-1", "Silva")
	if err := svc.HandleDeletion(context.Background(), msg); err != nil {
		t.Fatalf("HandleDeletion() error = %v", err)
	}

	notifications, _ := svc.List(context.Background(), "owner")
	if len(notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifications))
	}
	if !strings.Contains(notifications[0].Message, "Feira") || !strings.Contains(notifications[0].Message, "Silva") {
		t.Errorf("message = %q, want transaction and family names in it", notifications[0].Message)
	}
	if notifications[0].Read {
		t.Error("new notification should be unread")
	}
}

func TestNotificationService_HandleDeletion_SelfDelete(t *testing.T) {
	store := storetest.New()
	svc := NewNotificationService(store, nil)

	msg := amqp.NewTransactionDeletedMessage("tx-1", "owner", "owner", "Feira", "fam-1", "Silva")
	if err := svc.HandleDeletion(context.Background(), msg); err != nil {
		t.Fatalf("HandleDeletion() error = %v", err)
	}
	if len(store.Notifications) != 0 {
		t.Error("deleting your own transaction should not notify")
	}
}

func TestNotificationService_ReadFlow(t *testing.T) {
	store := storetest.New()
	svc := NewNotificationService(store, nil)

	for i := 0; i < 3; i++ {
		store.CreateNotification(context.Background(), core.Notification{
			UserID: "user-a", Message: "m", CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	store.CreateNotification(context.Background(), core.Notification{UserID: "user-b", Message: "other"})

	count, err := svc.UnreadCount(context.Background(), "user-a")
	if err != nil || count != 3 {
		t.Fatalf("UnreadCount() = %d, %v, want 3", count, err)
	}

	notifications, _ := svc.List(context.Background(), "user-a")
	if err := svc.MarkRead(context.Background(), notifications[0].ID, "user-a"); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	count, _ = svc.UnreadCount(context.Background(), "user-a")
	if count != 2 {
		t.Errorf("UnreadCount after MarkRead = %d, want 2", count)
	}

	if err := svc.MarkRead(context.Background(), notifications[1].ID, "user-b"); err == nil {
		t.Error("marking another user's notification should fail")
	}

	if err := svc.MarkAllRead(context.Background(), "user-a"); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	count, _ = svc.UnreadCount(context.Background(), "user-a")
	if count != 0 {
		t.Errorf("UnreadCount after MarkAllRead = %d, want 0", count)
	}

	count, _ = svc.UnreadCount(context.Background(), "user-b")
	if count != 1 {
		t.Errorf("user-b unread = %d, want 1 (untouched)", count)
	}
}
