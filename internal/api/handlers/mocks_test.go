package handlers

import (
	"context"

	"stocktrade/internal/models"
	"stocktrade/internal/service"
)

// ============================================================
// Mock-реализации сервисов для тестов handlers
// ============================================================

// MockOrderService настраивается через func-поля: тест подменяет
// только нужную операцию, остальные возвращают нулевые значения.
type MockOrderService struct {
	placeOrderFn   func(ctx context.Context, params service.PlaceOrderParams) (*models.Order, error)
	cancelOrderFn  func(ctx context.Context, orderID int, canceledBy string) (*models.Order, error)
	poolPurchaseFn func(ctx context.Context, params service.PoolPurchaseParams) (*service.PoolPurchaseResult, error)
	sellToPoolFn   func(ctx context.Context, orderID int, params service.SellToPoolParams) (*service.PoolSaleResult, error)
	listOrdersFn   func(ctx context.Context, page, limit int, order string) (*service.OrderPage, error)
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, params service.PlaceOrderParams) (*models.Order, error) {
	if m.placeOrderFn != nil {
		return m.placeOrderFn(ctx, params)
	}
	return &models.Order{}, nil
}

func (m *MockOrderService) CancelOrder(ctx context.Context, orderID int, canceledBy string) (*models.Order, error) {
	if m.cancelOrderFn != nil {
		return m.cancelOrderFn(ctx, orderID, canceledBy)
	}
	return &models.Order{}, nil
}

func (m *MockOrderService) PoolPurchase(ctx context.Context, params service.PoolPurchaseParams) (*service.PoolPurchaseResult, error) {
	if m.poolPurchaseFn != nil {
		return m.poolPurchaseFn(ctx, params)
	}
	return &service.PoolPurchaseResult{}, nil
}

func (m *MockOrderService) SellToPool(ctx context.Context, orderID int, params service.SellToPoolParams) (*service.PoolSaleResult, error) {
	if m.sellToPoolFn != nil {
		return m.sellToPoolFn(ctx, orderID, params)
	}
	return &service.PoolSaleResult{}, nil
}

func (m *MockOrderService) ListOrders(ctx context.Context, page, limit int, order string) (*service.OrderPage, error) {
	if m.listOrdersFn != nil {
		return m.listOrdersFn(ctx, page, limit, order)
	}
	return &service.OrderPage{Data: []*models.Order{}}, nil
}

var _ service.OrderServiceInterface = (*MockOrderService)(nil)

// MockNotificationService возвращает заранее заданный список
type MockNotificationService struct {
	notifications []*models.Notification
	err           error
	lastLimit     int
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, limit int) ([]*models.Notification, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.notifications, nil
}

var _ service.NotificationServiceInterface = (*MockNotificationService)(nil)
