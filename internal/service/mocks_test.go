package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"stocktrade/internal/models"
	"stocktrade/internal/repository"
)

// baseTime - опорное время для детерминированных created_at в моках
var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// ============ Fake TxRunner ============

// fakeTxRunner выполняет колбэк без реальной транзакции.
// Моки репозиториев работают с in-memory состоянием, поэтому
// rollback не эмулируется - тесты, завязанные на конфликт,
// проверяют итоговое поведение, а не промежуточные состояния.
type fakeTxRunner struct {
	runErr error
	calls  int
}

func (f *fakeTxRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	f.calls++
	if f.runErr != nil {
		return f.runErr
	}
	return fn(nil)
}

// ============ Mock OrderRepository ============

type MockOrderRepository struct {
	orders map[int]*models.Order
	nextID int

	// markCompletedConflicts[id] - сколько раз CAS по заявке id
	// должен вернуть конфликт перед успехом
	markCompletedConflicts map[int]int

	createErr error
	listErr   error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:                 make(map[int]*models.Order),
		nextID:                 1,
		markCompletedConflicts: make(map[int]int),
	}
}

func (m *MockOrderRepository) Create(ctx context.Context, q repository.Querier, order *models.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	order.ID = m.nextID
	order.Status = models.OrderStatusPending
	// Монотонное время: заявка с большим id создана позже
	order.CreatedAt = baseTime.Add(time.Duration(m.nextID) * time.Second)
	order.UpdatedAt = order.CreatedAt
	m.nextID++

	stored := *order
	m.orders[order.ID] = &stored
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	return m.GetByIDTx(ctx, nil, id)
}

func (m *MockOrderRepository) GetByIDTx(ctx context.Context, q repository.Querier, id int) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *MockOrderRepository) ListOpenCounterOrders(ctx context.Context, q repository.Querier, stockID, side string, quantity int) ([]*models.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.Order
	for _, order := range m.orders {
		if order.Status != models.OrderStatusPending {
			continue
		}
		if order.StockID != stockID || order.Side != side || order.Quantity != quantity {
			continue
		}
		copied := *order
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockOrderRepository) MarkCompleted(ctx context.Context, q repository.Querier, id int) error {
	if remaining := m.markCompletedConflicts[id]; remaining > 0 {
		m.markCompletedConflicts[id] = remaining - 1
		return repository.ErrStatusConflict
	}
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.Status != models.OrderStatusPending {
		return repository.ErrStatusConflict
	}
	order.Status = models.OrderStatusCompleted
	order.UpdatedAt = time.Now()
	return nil
}

func (m *MockOrderRepository) MarkCanceled(ctx context.Context, q repository.Querier, id int, canceledBy string) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if order.Status != models.OrderStatusPending {
		return nil, repository.ErrStatusConflict
	}
	order.Status = models.OrderStatusCanceled
	order.CanceledBy = &canceledBy
	order.UpdatedAt = time.Now()
	copied := *order
	return &copied, nil
}

func (m *MockOrderRepository) ListPaginated(ctx context.Context, page, limit int, order string) ([]*models.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	all := make([]*models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		copied := *o
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if order == "desc" {
			return all[i].ID > all[j].ID
		}
		return all[i].ID < all[j].ID
	})

	start := (page - 1) * limit
	if start >= len(all) {
		return []*models.Order{}, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *MockOrderRepository) Count(ctx context.Context) (int, error) {
	return len(m.orders), nil
}

// ============ Mock ShareRepository ============

type MockShareRepository struct {
	shares map[int]*models.PurchasedShare
	nextID int
}

func NewMockShareRepository() *MockShareRepository {
	return &MockShareRepository{
		shares: make(map[int]*models.PurchasedShare),
		nextID: 1,
	}
}

// Seed добавляет холдинг напрямую, минуя бизнес-логику
func (m *MockShareRepository) Seed(userID, stockID string, quantity int) *models.PurchasedShare {
	share := &models.PurchasedShare{
		ID:           m.nextID,
		UserID:       userID,
		StockID:      stockID,
		Quantity:     quantity,
		PurchaseType: models.PurchaseTypePool,
		CreatedAt:    baseTime,
	}
	m.nextID++
	m.shares[share.ID] = share
	return share
}

func (m *MockShareRepository) GetForUpdate(ctx context.Context, q repository.Querier, userID, stockID string) (*models.PurchasedShare, error) {
	for _, share := range m.shares {
		if share.UserID == userID && share.StockID == stockID {
			copied := *share
			return &copied, nil
		}
	}
	return nil, repository.ErrShareNotFound
}

func (m *MockShareRepository) Create(ctx context.Context, q repository.Querier, share *models.PurchasedShare) error {
	share.ID = m.nextID
	share.CreatedAt = time.Now()
	m.nextID++
	stored := *share
	m.shares[share.ID] = &stored
	return nil
}

func (m *MockShareRepository) AddQuantity(ctx context.Context, q repository.Querier, id, delta int) error {
	share, ok := m.shares[id]
	if !ok {
		return repository.ErrShareNotFound
	}
	share.Quantity += delta
	return nil
}

func (m *MockShareRepository) ExtendIssuance(ctx context.Context, q repository.Querier, id, delta, startNumber, endNumber int) error {
	share, ok := m.shares[id]
	if !ok {
		return repository.ErrShareNotFound
	}
	share.Quantity += delta
	if share.StartNumber == nil {
		start := startNumber
		share.StartNumber = &start
	}
	end := endNumber
	share.EndNumber = &end
	return nil
}

func (m *MockShareRepository) Delete(ctx context.Context, q repository.Querier, id int) error {
	if _, ok := m.shares[id]; !ok {
		return repository.ErrShareNotFound
	}
	delete(m.shares, id)
	return nil
}

func (m *MockShareRepository) MaxEndNumber(ctx context.Context, q repository.Querier) (int, error) {
	max := 0
	for _, share := range m.shares {
		if share.EndNumber != nil && *share.EndNumber > max {
			max = *share.EndNumber
		}
	}
	return max, nil
}

// Holding возвращает количество акций пользователя (0 если холдинга нет)
func (m *MockShareRepository) Holding(userID, stockID string) int {
	for _, share := range m.shares {
		if share.UserID == userID && share.StockID == stockID {
			return share.Quantity
		}
	}
	return 0
}

// TotalQuantity возвращает суммарное количество акций по всем холдингам
func (m *MockShareRepository) TotalQuantity(stockID string) int {
	total := 0
	for _, share := range m.shares {
		if share.StockID == stockID {
			total += share.Quantity
		}
	}
	return total
}

// ============ Mock HistoryRepository ============

type MockHistoryRepository struct {
	records []*models.TransactionRecord
	nextID  int
}

func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{nextID: 1}
}

func (m *MockHistoryRepository) Append(ctx context.Context, q repository.Querier, rec *models.TransactionRecord) error {
	rec.ID = m.nextID
	rec.CreatedAt = time.Now()
	m.nextID++
	stored := *rec
	m.records = append(m.records, &stored)
	return nil
}

func (m *MockHistoryRepository) ListByOrder(ctx context.Context, orderID int) ([]*models.TransactionRecord, error) {
	var result []*models.TransactionRecord
	for _, rec := range m.records {
		if rec.OrderID == orderID {
			copied := *rec
			result = append(result, &copied)
		}
	}
	return result, nil
}

// ByType возвращает записи указанного типа
func (m *MockHistoryRepository) ByType(recType string) []*models.TransactionRecord {
	var result []*models.TransactionRecord
	for _, rec := range m.records {
		if rec.Type == recType {
			result = append(result, rec)
		}
	}
	return result
}

// ============ Mock RefRepository ============

type MockRefRepository struct {
	stocks map[string]bool
	users  map[string]bool
}

func NewMockRefRepository() *MockRefRepository {
	return &MockRefRepository{
		stocks: make(map[string]bool),
		users:  make(map[string]bool),
	}
}

func (m *MockRefRepository) AddStock(id string) { m.stocks[id] = true }
func (m *MockRefRepository) AddUser(id string)  { m.users[id] = true }

func (m *MockRefRepository) StockExists(ctx context.Context, q repository.Querier, id string) (bool, error) {
	return m.stocks[id], nil
}

func (m *MockRefRepository) UserExists(ctx context.Context, q repository.Querier, id string) (bool, error) {
	return m.users[id], nil
}

// ============ Mock NotificationRepository ============

type MockNotificationRepository struct {
	notifications []*models.Notification
	nextID        int
	createErr     error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{nextID: 1}
}

func (m *MockNotificationRepository) Create(ctx context.Context, notif *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	notif.ID = m.nextID
	notif.CreatedAt = time.Now()
	m.nextID++
	stored := *notif
	m.notifications = append(m.notifications, &stored)
	return nil
}

func (m *MockNotificationRepository) GetRecent(ctx context.Context, limit int) ([]*models.Notification, error) {
	result := make([]*models.Notification, 0, limit)
	for i := len(m.notifications) - 1; i >= 0 && len(result) < limit; i-- {
		copied := *m.notifications[i]
		result = append(result, &copied)
	}
	return result, nil
}

// ============ Mock Notifier ============

type mockNotifier struct {
	trades        []*TradeResult
	cancellations []*models.Order
	poolPurchases []*PoolPurchaseResult
	poolSales     []*PoolSaleResult
}

func (m *mockNotifier) NotifyTrade(result *TradeResult)              { m.trades = append(m.trades, result) }
func (m *mockNotifier) NotifyCancellation(order *models.Order)      { m.cancellations = append(m.cancellations, order) }
func (m *mockNotifier) NotifyPoolPurchase(r *PoolPurchaseResult)    { m.poolPurchases = append(m.poolPurchases, r) }
func (m *mockNotifier) NotifyPoolSale(r *PoolSaleResult)            { m.poolSales = append(m.poolSales, r) }

// ============ Mock WebSocketBroadcaster ============

type mockBroadcaster struct {
	notifications []*models.Notification
}

func (m *mockBroadcaster) BroadcastNotification(notif *models.Notification) {
	m.notifications = append(m.notifications, notif)
}
