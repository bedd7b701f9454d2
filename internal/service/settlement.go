package service

import (
	"context"
	"errors"
	"time"

	"stocktrade/internal/models"
	"stocktrade/internal/repository"
)

// TradeResult содержит итог исполненной сделки
type TradeResult struct {
	NewOrder     *models.Order `json:"new_order"`
	MatchedOrder *models.Order `json:"matched_order"`
	StockID      string        `json:"stock_id"`
	SellerID     string        `json:"seller_id"`
	BuyerID      string        `json:"buyer_id"`
	Quantity     int           `json:"quantity"`
	Price        int           `json:"price"` // цена исполнения (цена более ранней заявки)
}

// SettlementEngine исполняет сматченную сделку как единое целое
//
// Движок не хранит состояния между вызовами - всё durable состояние
// принадлежит БД, ExecuteTrade реентерабелен относительно неё.
type SettlementEngine struct {
	orderRepo   OrderRepositoryInterface
	shareRepo   ShareRepositoryInterface
	historyRepo HistoryRepositoryInterface
}

// NewSettlementEngine создает новый экземпляр движка исполнения
func NewSettlementEngine(
	orderRepo OrderRepositoryInterface,
	shareRepo ShareRepositoryInterface,
	historyRepo HistoryRepositoryInterface,
) *SettlementEngine {
	return &SettlementEngine{
		orderRepo:   orderRepo,
		shareRepo:   shareRepo,
		historyRepo: historyRepo,
	}
}

// ExecuteTrade применяет эффекты сделки к заявкам, холдингам и истории
//
// ОБЯЗАН вызываться внутри одной транзакции (q - открытый *sql.Tx):
// все шаги коммитятся вместе или не применяются вовсе. Частичное
// применение (заявки COMPLETED, а акции не переданы) - нарушение
// корректности, которое предотвращает граница транзакции.
//
// Шаги:
// 1. CAS-перевод обеих заявок PENDING -> COMPLETED; если какая-то
//    уже не PENDING - ErrConcurrentModification, транзакция откатывается
// 2. Определение продавца/покупателя по сторонам заявок
// 3. Запись SALE (продавец) и PURCHASE (покупатель) по цене сделки
// 4. Повторная проверка холдинга продавца - с момента размещения
//    заявки акции могли уйти в другой сделке
// 5. Списание у продавца; строка с нулём удаляется
// 6. Зачисление покупателю (или создание холдинга)
func (e *SettlementEngine) ExecuteTrade(ctx context.Context, q repository.Querier, newOrder, matchedOrder *models.Order) (*TradeResult, error) {
	start := time.Now()

	// 1. Оба статуса через CAS: проигравшая гонку транзакция
	// обнаружит чужой COMPLETED/CANCELED и откатится целиком
	if err := e.orderRepo.MarkCompleted(ctx, q, newOrder.ID); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}
	if err := e.orderRepo.MarkCompleted(ctx, q, matchedOrder.ID); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	// 2. Стороны сделки
	sellOrder, buyOrder := newOrder, matchedOrder
	if newOrder.Side == models.OrderSideBuy {
		sellOrder, buyOrder = matchedOrder, newOrder
	}

	price := TradePrice(newOrder, matchedOrder)
	quantity := newOrder.Quantity
	stockID := newOrder.StockID

	// 3. Пара записей истории: ровно одна SALE и одна PURCHASE на сделку
	saleRec := &models.TransactionRecord{
		StockID:  stockID,
		UserID:   sellOrder.UserID,
		OrderID:  sellOrder.ID,
		Type:     models.TransactionSale,
		Quantity: quantity,
		Price:    price,
	}
	if err := e.historyRepo.Append(ctx, q, saleRec); err != nil {
		return nil, err
	}

	purchaseRec := &models.TransactionRecord{
		StockID:  stockID,
		UserID:   buyOrder.UserID,
		OrderID:  buyOrder.ID,
		Type:     models.TransactionPurchase,
		Quantity: quantity,
		Price:    price,
	}
	if err := e.historyRepo.Append(ctx, q, purchaseRec); err != nil {
		return nil, err
	}

	// 4. Защитная перепроверка холдинга продавца
	sellerShare, err := e.shareRepo.GetForUpdate(ctx, q, sellOrder.UserID, stockID)
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return nil, ErrInsufficientHolding
		}
		return nil, err
	}
	if sellerShare.Quantity < quantity {
		return nil, ErrInsufficientHolding
	}

	// 5. Списание у продавца; ноль не храним
	if sellerShare.Quantity == quantity {
		if err := e.shareRepo.Delete(ctx, q, sellerShare.ID); err != nil {
			return nil, err
		}
	} else {
		if err := e.shareRepo.AddQuantity(ctx, q, sellerShare.ID, -quantity); err != nil {
			return nil, err
		}
	}

	// 6. Зачисление покупателю
	buyerShare, err := e.shareRepo.GetForUpdate(ctx, q, buyOrder.UserID, stockID)
	switch {
	case err == nil:
		if err := e.shareRepo.AddQuantity(ctx, q, buyerShare.ID, quantity); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrShareNotFound):
		newShare := &models.PurchasedShare{
			UserID:       buyOrder.UserID,
			StockID:      stockID,
			Quantity:     quantity,
			PurchaseType: models.PurchaseTypeTrade,
		}
		if err := e.shareRepo.Create(ctx, q, newShare); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	newOrder.Status = models.OrderStatusCompleted
	matchedOrder.Status = models.OrderStatusCompleted

	TradesSettled.Inc()
	SettlementDuration.Observe(time.Since(start).Seconds())

	return &TradeResult{
		NewOrder:     newOrder,
		MatchedOrder: matchedOrder,
		StockID:      stockID,
		SellerID:     sellOrder.UserID,
		BuyerID:      buyOrder.UserID,
		Quantity:     quantity,
		Price:        price,
	}, nil
}
