package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"stocktrade/internal/models"
)

func newTestNotificationService() (*NotificationService, *MockNotificationRepository, *mockBroadcaster) {
	repo := NewMockNotificationRepository()
	hub := &mockBroadcaster{}
	svc := NewNotificationService(repo, zap.NewNop())
	svc.SetWebSocketHub(hub)
	return svc, repo, hub
}

func TestNotifyTrade_NotifiesBothSides(t *testing.T) {
	svc, repo, hub := newTestNotificationService()

	sellOrder := &models.Order{ID: 1, Side: models.OrderSideSell, UserID: "bob", StockID: "stock-1", CreatedAt: baseTime}
	buyOrder := &models.Order{ID: 2, Side: models.OrderSideBuy, UserID: "alice", StockID: "stock-1", CreatedAt: baseTime.Add(time.Second)}

	svc.NotifyTrade(&TradeResult{
		NewOrder:     buyOrder,
		MatchedOrder: sellOrder,
		StockID:      "stock-1",
		SellerID:     "bob",
		BuyerID:      "alice",
		Quantity:     10,
		Price:        50,
	})

	if len(repo.notifications) != 2 {
		t.Fatalf("expected 2 persisted notifications, got %d", len(repo.notifications))
	}
	if len(hub.notifications) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(hub.notifications))
	}

	users := map[string]bool{}
	for _, n := range repo.notifications {
		if n.Type != models.NotificationTrade {
			t.Errorf("expected TRADE type, got %s", n.Type)
		}
		users[n.UserID] = true
	}
	if !users["bob"] || !users["alice"] {
		t.Errorf("both seller and buyer must be notified, got %v", users)
	}
}

func TestDeliver_BroadcastsEvenIfPersistFails(t *testing.T) {
	svc, repo, hub := newTestNotificationService()
	repo.createErr = errors.New("db down")

	svc.NotifyCancellation(&models.Order{ID: 3, UserID: "alice", StockID: "stock-1", Quantity: 5})

	if len(repo.notifications) != 0 {
		t.Error("persist must have failed")
	}
	if len(hub.notifications) != 1 {
		t.Fatalf("broadcast must still happen, got %d", len(hub.notifications))
	}
}

func TestGetNotifications_LimitClamped(t *testing.T) {
	svc, repo, _ := newTestNotificationService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		repo.Create(ctx, &models.Notification{Type: models.NotificationTrade, UserID: "alice", Message: "x"})
	}

	// Нулевой лимит трактуется как дефолтный
	notifs, err := svc.GetNotifications(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifs) != 5 {
		t.Errorf("expected 5 notifications, got %d", len(notifs))
	}

	notifs, err = svc.GetNotifications(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifs) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(notifs))
	}

	// Новые сверху
	if len(notifs) > 0 && notifs[0].ID != 5 {
		t.Errorf("expected newest first (id 5), got %d", notifs[0].ID)
	}
}
