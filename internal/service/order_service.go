package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"stocktrade/internal/config"
	"stocktrade/internal/models"
	"stocktrade/internal/repository"
	"stocktrade/pkg/retry"
)

// Ошибки сервиса заявок
var (
	ErrMissingStockID  = errors.New("stock id is required")
	ErrMissingUserID   = errors.New("user id is required")
	ErrInvalidSide     = errors.New("side must be BUY or SELL")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrInvalidPrice    = errors.New("offered price must be a positive integer")

	ErrStockNotFound = errors.New("stock not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrOrderNotFound = errors.New("order not found")

	// ErrInsufficientHolding - у продавца меньше акций, чем он продаёт.
	// Отклонение без побочных эффектов: состояние не меняется.
	ErrInsufficientHolding = errors.New("insufficient shares to sell")

	// ErrInvalidOrderState - операция недопустима для текущего статуса
	// заявки (например, отмена уже COMPLETED заявки).
	ErrInvalidOrderState = errors.New("operation is not allowed for current order status")

	ErrInvalidCanceledBy = errors.New("canceledBy must be USER or SYSTEM")

	// ErrConcurrentModification - конфликт оптимистичной конкуренции
	// при settlement. Внутренне повторяется ограниченное число раз
	// (matcher перезапускается и находит свежего кандидата), после
	// исчерпания попыток отдаётся наружу как transient-сбой.
	ErrConcurrentModification = errors.New("order was modified by a concurrent transaction")
)

// PlaceOrderParams - параметры размещения peer-to-peer заявки
type PlaceOrderParams struct {
	StockID      string
	UserID       string
	Side         string
	Quantity     int
	OfferedPrice int
	PaymentID    *string
}

// PoolPurchaseParams - параметры покупки акций из пула
type PoolPurchaseParams struct {
	StockID   string
	UserID    string
	Quantity  int
	Price     int
	PaymentID *string
}

// PoolPurchaseResult - итог покупки из пула
type PoolPurchaseResult struct {
	Order       *models.Order          `json:"order"`
	Share       *models.PurchasedShare `json:"share"`
	StartNumber int                    `json:"start_number"`
	EndNumber   int                    `json:"end_number"`
}

// SellToPoolParams - параметры продажи акций обратно в пул
type SellToPoolParams struct {
	StockID  string
	UserID   string
	Quantity int
	Price    int
}

// PoolSaleResult - итог продажи в пул
type PoolSaleResult struct {
	Order    *models.Order `json:"order"`
	Quantity int           `json:"quantity"`
	Price    int           `json:"price"`
}

// Paging - метаданные пагинации
type Paging struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// OrderPage - страница списка заявок
type OrderPage struct {
	Paging Paging          `json:"paging"`
	Data   []*models.Order `json:"data"`
}

// Notifier - интерфейс fire-and-forget уведомлений о событиях движка
//
// Сбой уведомления логируется внутри реализации и никогда
// не влияет на результат операции.
type Notifier interface {
	NotifyTrade(result *TradeResult)
	NotifyCancellation(order *models.Order)
	NotifyPoolPurchase(result *PoolPurchaseResult)
	NotifyPoolSale(result *PoolSaleResult)
}

// MirrorPublisher - интерфейс best-effort зеркалирования pool-покупок
// на основную платформу
type MirrorPublisher interface {
	PublishPoolPurchase(ev PoolPurchaseEvent)
}

// PoolPurchaseEvent - событие для внешнего mirror-эндпоинта
type PoolPurchaseEvent struct {
	Quantity  int     `json:"quantity"`
	Price     int     `json:"price"`
	UserID    string  `json:"userId"`
	StockID   string  `json:"stockId"`
	PaymentID *string `json:"paymentId"`
}

// OrderService - бизнес-логика жизненного цикла заявок
//
// Владеет созданием и отменой заявок, pool-вариантами (покупка из
// пула / продажа в пул) и чтением списка. Сам сервис состояния
// не держит - всё durable состояние в БД, операции реентерабельны.
type OrderService struct {
	txRunner    TxRunnerInterface
	orderRepo   OrderRepositoryInterface
	shareRepo   ShareRepositoryInterface
	historyRepo HistoryRepositoryInterface
	refRepo     RefRepositoryInterface
	settlement  *SettlementEngine

	// Опциональные коллабораторы (могут быть nil при инициализации)
	notifier Notifier
	mirror   MirrorPublisher

	logger *zap.Logger
	cfg    config.EngineConfig
}

// NewOrderService создает новый экземпляр сервиса заявок
func NewOrderService(
	txRunner TxRunnerInterface,
	orderRepo OrderRepositoryInterface,
	shareRepo ShareRepositoryInterface,
	historyRepo HistoryRepositoryInterface,
	refRepo RefRepositoryInterface,
	cfg config.EngineConfig,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		txRunner:    txRunner,
		orderRepo:   orderRepo,
		shareRepo:   shareRepo,
		historyRepo: historyRepo,
		refRepo:     refRepo,
		settlement:  NewSettlementEngine(orderRepo, shareRepo, historyRepo),
		logger:      logger,
		cfg:         cfg,
	}
}

// SetNotifier устанавливает коллаборатора уведомлений
// Вызывается после инициализации NotificationService в main.go
func (s *OrderService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// SetMirror устанавливает клиента зеркалирования pool-покупок
func (s *OrderService) SetMirror(mirror MirrorPublisher) {
	s.mirror = mirror
}

// PlaceOrder размещает peer-to-peer заявку и сразу пробует её сматчить
//
// Выполняет в одной транзакции:
// 1. Проверку существования акции и пользователя
// 2. Для SELL - проверку достаточности холдинга продавца
// 3. Создание PENDING заявки и записи PLACEMENT
// 4. Поиск встречной заявки (price/time priority)
// 5. Если кандидат найден - settlement в той же транзакции
//
// Возвращает заявку со статусом COMPLETED при синхронном матче,
// иначе PENDING (заявка остаётся в стакане).
//
// Конфликт сериализации откатывает транзакцию целиком и повторяет
// её с нуля: matcher при повторе видит свежий стакан и выбирает
// другого кандидата. Попытки ограничены конфигурацией.
func (s *OrderService) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*models.Order, error) {
	// 1. Валидация до какой-либо персистентности
	if err := validateOrderParams(params.StockID, params.UserID, params.Quantity, params.OfferedPrice); err != nil {
		return nil, err
	}
	if !models.IsValidSide(params.Side) {
		return nil, ErrInvalidSide
	}

	var (
		placed *models.Order
		trade  *TradeResult
	)

	err := s.withConflictRetry(ctx, func() error {
		placed, trade = nil, nil

		return s.txRunner.WithinTx(ctx, func(tx *sql.Tx) error {
			// 2. Справочные проверки внутри транзакции
			if err := s.checkRefs(ctx, tx, params.StockID, params.UserID); err != nil {
				return err
			}

			// 3. Для SELL: холдинг продавца должен покрывать заявку
			if params.Side == models.OrderSideSell {
				share, err := s.shareRepo.GetForUpdate(ctx, tx, params.UserID, params.StockID)
				if err != nil {
					if errors.Is(err, repository.ErrShareNotFound) {
						return ErrInsufficientHolding
					}
					return err
				}
				if share.Quantity < params.Quantity {
					return ErrInsufficientHolding
				}
			}

			// 4. PENDING заявка + запись PLACEMENT
			order := &models.Order{
				StockID:      params.StockID,
				UserID:       params.UserID,
				Side:         params.Side,
				Quantity:     params.Quantity,
				OfferedPrice: params.OfferedPrice,
				PaymentID:    params.PaymentID,
			}
			if err := s.orderRepo.Create(ctx, tx, order); err != nil {
				return err
			}

			placement := &models.TransactionRecord{
				StockID:  order.StockID,
				UserID:   order.UserID,
				OrderID:  order.ID,
				Type:     models.TransactionPlacement,
				Quantity: order.Quantity,
				Price:    order.OfferedPrice,
			}
			if err := s.historyRepo.Append(ctx, tx, placement); err != nil {
				return err
			}

			// 5. Поиск встречной заявки
			candidates, err := s.orderRepo.ListOpenCounterOrders(
				ctx, tx, order.StockID, models.CounterSide(order.Side), order.Quantity,
			)
			if err != nil {
				return err
			}

			match := BestMatch(order, candidates)
			if match == nil {
				// Кандидатов нет - заявка остаётся в стакане
				placed = order
				return nil
			}

			// 6. Settlement в той же транзакции
			result, err := s.settlement.ExecuteTrade(ctx, tx, order, match)
			if err != nil {
				return err
			}

			placed = result.NewOrder
			trade = result
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	OrdersPlaced.WithLabelValues(placed.Side).Inc()

	if trade != nil {
		s.logger.Info("trade settled",
			zap.Int("new_order_id", trade.NewOrder.ID),
			zap.Int("matched_order_id", trade.MatchedOrder.ID),
			zap.String("stock_id", trade.StockID),
			zap.Int("quantity", trade.Quantity),
			zap.Int("price", trade.Price),
		)
		if s.notifier != nil {
			s.notifier.NotifyTrade(trade)
		}
	} else {
		s.logger.Info("order resting",
			zap.Int("order_id", placed.ID),
			zap.String("stock_id", placed.StockID),
			zap.String("side", placed.Side),
		)
	}

	return placed, nil
}

// CancelOrder отменяет PENDING заявку
//
// Отменить можно только PENDING заявку. Отмена и settlement по одной
// заявке взаимно исключены: побеждает первая закоммитившаяся
// транзакция, проигравшая чисто откатывается.
//
// Акции при отмене не двигаются - для PENDING заявки они и не
// перемещались. В историю пишется одна запись REJECTION.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int, canceledBy string) (*models.Order, error) {
	if !models.IsValidCanceledBy(canceledBy) {
		return nil, ErrInvalidCanceledBy
	}

	var canceled *models.Order

	err := s.txRunner.WithinTx(ctx, func(tx *sql.Tx) error {
		order, err := s.orderRepo.GetByIDTx(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if order.Status != models.OrderStatusPending {
			return ErrInvalidOrderState
		}

		updated, err := s.orderRepo.MarkCanceled(ctx, tx, orderID, canceledBy)
		if err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				// Заявку успела забрать конкурирующая транзакция
				return ErrConcurrentModification
			}
			return err
		}

		// REJECTION пишется с нулевыми количеством и ценой
		rejection := &models.TransactionRecord{
			StockID: updated.StockID,
			UserID:  updated.UserID,
			OrderID: updated.ID,
			Type:    models.TransactionRejection,
		}
		if err := s.historyRepo.Append(ctx, tx, rejection); err != nil {
			return err
		}

		canceled = updated
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSerializationConflict) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	OrdersCanceled.WithLabelValues(canceledBy).Inc()
	s.logger.Info("order canceled",
		zap.Int("order_id", canceled.ID),
		zap.String("canceled_by", canceledBy),
	)

	if s.notifier != nil {
		s.notifier.NotifyCancellation(canceled)
	}

	return canceled, nil
}

// PoolPurchase покупает акции из пула эмитента (первичное размещение)
//
// Матчинг не выполняется: акции приходят из условно бесконечного
// пула. В одной транзакции создаётся COMPLETED заявка (audit trail),
// выделяется диапазон нумерации акций, кредитуется холдинг
// покупателя и пишутся записи PLACEMENT и PURCHASE.
//
// После коммита best-effort отправляется событие на mirror-эндпоинт
// основной платформы; сбой доставки логируется и settlement
// не блокирует.
func (s *OrderService) PoolPurchase(ctx context.Context, params PoolPurchaseParams) (*PoolPurchaseResult, error) {
	if err := validateOrderParams(params.StockID, params.UserID, params.Quantity, params.Price); err != nil {
		return nil, err
	}

	var result *PoolPurchaseResult

	err := s.withConflictRetry(ctx, func() error {
		result = nil

		return s.txRunner.WithinTx(ctx, func(tx *sql.Tx) error {
			if err := s.checkRefs(ctx, tx, params.StockID, params.UserID); err != nil {
				return err
			}

			// Заявка-якорь для истории; сразу закрывается
			order := &models.Order{
				StockID:      params.StockID,
				UserID:       params.UserID,
				Side:         models.OrderSideBuy,
				Quantity:     params.Quantity,
				OfferedPrice: params.Price,
				PaymentID:    params.PaymentID,
			}
			if err := s.orderRepo.Create(ctx, tx, order); err != nil {
				return err
			}

			placement := &models.TransactionRecord{
				StockID:  order.StockID,
				UserID:   order.UserID,
				OrderID:  order.ID,
				Type:     models.TransactionPlacement,
				Quantity: order.Quantity,
				Price:    order.OfferedPrice,
			}
			if err := s.historyRepo.Append(ctx, tx, placement); err != nil {
				return err
			}

			if err := s.orderRepo.MarkCompleted(ctx, tx, order.ID); err != nil {
				return err
			}
			order.Status = models.OrderStatusCompleted

			// Нумерация акций первичного размещения: следующий
			// свободный диапазон после максимального выданного
			maxEnd, err := s.shareRepo.MaxEndNumber(ctx, tx)
			if err != nil {
				return err
			}
			startNumber := maxEnd + 1
			endNumber := startNumber + params.Quantity - 1

			// Кредит холдинга покупателя. Повторный выпуск обязан
			// зафиксировать конец своего диапазона в end_number,
			// иначе следующий MaxEndNumber выдаст эти же номера снова
			share, err := s.shareRepo.GetForUpdate(ctx, tx, params.UserID, params.StockID)
			switch {
			case err == nil:
				if err := s.shareRepo.ExtendIssuance(ctx, tx, share.ID, params.Quantity, startNumber, endNumber); err != nil {
					return err
				}
				share.Quantity += params.Quantity
				if share.StartNumber == nil {
					share.StartNumber = &startNumber
				}
				share.EndNumber = &endNumber
			case errors.Is(err, repository.ErrShareNotFound):
				share = &models.PurchasedShare{
					UserID:       params.UserID,
					StockID:      params.StockID,
					Quantity:     params.Quantity,
					StartNumber:  &startNumber,
					EndNumber:    &endNumber,
					PurchaseType: models.PurchaseTypePool,
				}
				if err := s.shareRepo.Create(ctx, tx, share); err != nil {
					return err
				}
			default:
				return err
			}

			purchase := &models.TransactionRecord{
				StockID:  params.StockID,
				UserID:   params.UserID,
				OrderID:  order.ID,
				Type:     models.TransactionPurchase,
				Quantity: params.Quantity,
				Price:    params.Price,
			}
			if err := s.historyRepo.Append(ctx, tx, purchase); err != nil {
				return err
			}

			result = &PoolPurchaseResult{
				Order:       order,
				Share:       share,
				StartNumber: startNumber,
				EndNumber:   endNumber,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	PoolPurchases.Inc()
	s.logger.Info("pool purchase completed",
		zap.Int("order_id", result.Order.ID),
		zap.String("stock_id", params.StockID),
		zap.Int("quantity", params.Quantity),
	)

	if s.notifier != nil {
		s.notifier.NotifyPoolPurchase(result)
	}

	// Зеркалирование на основную платформу - вне транзакции,
	// в отдельной горутине: доставка не должна блокировать ответ
	if s.mirror != nil {
		go s.mirror.PublishPoolPurchase(PoolPurchaseEvent{
			Quantity:  params.Quantity,
			Price:     params.Price,
			UserID:    params.UserID,
			StockID:   params.StockID,
			PaymentID: params.PaymentID,
		})
	}

	return result, nil
}

// SellToPool продаёт акции пользователя обратно в пул (выкуп эмитентом)
//
// orderID ссылается на PENDING SELL заявку пользователя, которую
// выкупает пул. В одной транзакции заявка закрывается через CAS,
// холдинг списывается (строка с нулём удаляется) и пишется запись
// SALE по цене выкупа.
func (s *OrderService) SellToPool(ctx context.Context, orderID int, params SellToPoolParams) (*PoolSaleResult, error) {
	if err := validateOrderParams(params.StockID, params.UserID, params.Quantity, params.Price); err != nil {
		return nil, err
	}

	var result *PoolSaleResult

	err := s.txRunner.WithinTx(ctx, func(tx *sql.Tx) error {
		order, err := s.orderRepo.GetByIDTx(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		// Выкупается конкретная SELL заявка этого пользователя
		if order.UserID != params.UserID || order.StockID != params.StockID ||
			order.Side != models.OrderSideSell {
			return ErrInvalidOrderState
		}
		if order.Status != models.OrderStatusPending {
			return ErrInvalidOrderState
		}
		if order.Quantity != params.Quantity {
			return ErrInvalidQuantity
		}

		if err := s.orderRepo.MarkCompleted(ctx, tx, order.ID); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				return ErrConcurrentModification
			}
			return err
		}
		order.Status = models.OrderStatusCompleted

		// Списание холдинга с защитной перепроверкой
		share, err := s.shareRepo.GetForUpdate(ctx, tx, params.UserID, params.StockID)
		if err != nil {
			if errors.Is(err, repository.ErrShareNotFound) {
				return ErrInsufficientHolding
			}
			return err
		}
		if share.Quantity < params.Quantity {
			return ErrInsufficientHolding
		}

		if share.Quantity == params.Quantity {
			if err := s.shareRepo.Delete(ctx, tx, share.ID); err != nil {
				return err
			}
		} else {
			if err := s.shareRepo.AddQuantity(ctx, tx, share.ID, -params.Quantity); err != nil {
				return err
			}
		}

		sale := &models.TransactionRecord{
			StockID:  params.StockID,
			UserID:   params.UserID,
			OrderID:  order.ID,
			Type:     models.TransactionSale,
			Quantity: params.Quantity,
			Price:    params.Price,
		}
		if err := s.historyRepo.Append(ctx, tx, sale); err != nil {
			return err
		}

		result = &PoolSaleResult{
			Order:    order,
			Quantity: params.Quantity,
			Price:    params.Price,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSerializationConflict) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	PoolSales.Inc()
	s.logger.Info("pool sale completed",
		zap.Int("order_id", result.Order.ID),
		zap.String("stock_id", params.StockID),
		zap.Int("quantity", params.Quantity),
	)

	if s.notifier != nil {
		s.notifier.NotifyPoolSale(result)
	}

	return result, nil
}

// ListOrders возвращает страницу заявок, отсортированных по времени создания
//
// Некорректные параметры пагинации приводятся к допустимым
// значениям (page >= 1, limit в пределах конфигурации),
// order вне {asc, desc} трактуется как asc.
func (s *OrderService) ListOrders(ctx context.Context, page, limit int, order string) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	order = strings.ToLower(order)
	if order != "asc" && order != "desc" {
		order = "asc"
	}

	orders, err := s.orderRepo.ListPaginated(ctx, page, limit, order)
	if err != nil {
		return nil, err
	}

	total, err := s.orderRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	if orders == nil {
		orders = []*models.Order{}
	}

	return &OrderPage{
		Paging: Paging{Page: page, Limit: limit, Total: total},
		Data:   orders,
	}, nil
}

// ============ Вспомогательные методы ============

// withConflictRetry выполняет операцию с ограниченным числом повторов
// при конфликтах оптимистичной конкуренции
//
// Повторяются только ErrConcurrentModification и конфликты
// сериализации БД; доменные отклонения возвращаются сразу.
func (s *OrderService) withConflictRetry(ctx context.Context, operation func() error) error {
	cfg := retry.Config{
		MaxAttempts:  s.cfg.MatchMaxRetries,
		InitialDelay: s.cfg.MatchBackoff,
		RetryIf:      isConflict,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			SettlementConflicts.Inc()
			s.logger.Warn("settlement conflict, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		},
	}

	err := retry.Do(ctx, operation, cfg)
	if err != nil && isConflict(err) {
		// Попытки исчерпаны - наружу уходит transient-сбой
		return ErrConcurrentModification
	}
	return err
}

// isConflict проверяет, является ли ошибка конфликтом конкуренции
func isConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, repository.ErrSerializationConflict)
}

// checkRefs проверяет существование акции и пользователя
func (s *OrderService) checkRefs(ctx context.Context, q repository.Querier, stockID, userID string) error {
	stockExists, err := s.refRepo.StockExists(ctx, q, stockID)
	if err != nil {
		return fmt.Errorf("check stock: %w", err)
	}
	if !stockExists {
		return ErrStockNotFound
	}

	userExists, err := s.refRepo.UserExists(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !userExists {
		return ErrUserNotFound
	}

	return nil
}

// validateOrderParams выполняет общую валидацию параметров заявки
func validateOrderParams(stockID, userID string, quantity, price int) error {
	if stockID == "" {
		return ErrMissingStockID
	}
	if userID == "" {
		return ErrMissingUserID
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}
