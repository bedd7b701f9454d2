package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"stocktrade/internal/models"
	"stocktrade/internal/service"
)

// OrderHandler отвечает за жизненный цикл заявок
//
// Endpoints:
// - POST /api/v1/orders                          - размещение peer-to-peer заявки
// - POST /api/v1/orders/pool-purchase            - покупка акций из пула
// - POST /api/v1/orders/pool-purchase/sell/{id}  - продажа акций в пул
// - POST /api/v1/orders/cancel/{id}              - отмена PENDING заявки
// - GET  /api/v1/orders                          - список заявок с пагинацией
type OrderHandler struct {
	orderService service.OrderServiceInterface
}

// NewOrderHandler создает новый OrderHandler с внедрением зависимостей
func NewOrderHandler(orderService service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// PlaceOrderRequest структура запроса на размещение заявки
type PlaceOrderRequest struct {
	StockID      string  `json:"stock_id"`
	UserID       string  `json:"user_id"`
	Side         string  `json:"side"`          // BUY | SELL
	Quantity     int     `json:"quantity"`      // штук, > 0
	OfferedPrice int     `json:"offered_price"` // в минорных единицах валюты
	PaymentID    *string `json:"payment_id,omitempty"`
}

// PoolPurchaseRequest структура запроса на покупку из пула
type PoolPurchaseRequest struct {
	StockID   string  `json:"stock_id"`
	UserID    string  `json:"user_id"`
	Quantity  int     `json:"quantity"`
	Price     int     `json:"price"`
	PaymentID *string `json:"payment_id,omitempty"`
}

// SellToPoolRequest структура запроса на продажу в пул
type SellToPoolRequest struct {
	StockID  string `json:"stock_id"`
	UserID   string `json:"user_id"`
	Quantity int    `json:"quantity"`
	Price    int    `json:"price"`
}

// PlaceOrder размещает заявку и сразу пробует её исполнить
// POST /api/v1/orders
//
// Request Body:
//
//	{
//	  "stock_id": "stock-1",
//	  "user_id": "user-1",
//	  "side": "BUY",
//	  "quantity": 10,
//	  "offered_price": 5500
//	}
//
// Response:
// - 201 Created: заявка размещена; status COMPLETED при синхронном матче,
//   иначе PENDING (заявка в стакане)
// - 400 Bad Request: невалидные параметры
// - 404 Not Found: акция или пользователь не существует
// - 409 Conflict: конфликт конкурирующих транзакций (можно повторить)
// - 422 Unprocessable Entity: у продавца недостаточно акций
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	order, err := h.orderService.PlaceOrder(r.Context(), service.PlaceOrderParams{
		StockID:      req.StockID,
		UserID:       req.UserID,
		Side:         req.Side,
		Quantity:     req.Quantity,
		OfferedPrice: req.OfferedPrice,
		PaymentID:    req.PaymentID,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, order)
}

// PoolPurchase покупает акции из пула эмитента
// POST /api/v1/orders/pool-purchase
//
// Response:
// - 201 Created: покупка исполнена, в ответе заявка, холдинг и
//   выделенный диапазон номеров акций
// - 400 Bad Request: невалидные параметры
// - 404 Not Found: акция или пользователь не существует
func (h *OrderHandler) PoolPurchase(w http.ResponseWriter, r *http.Request) {
	var req PoolPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	result, err := h.orderService.PoolPurchase(r.Context(), service.PoolPurchaseParams{
		StockID:   req.StockID,
		UserID:    req.UserID,
		Quantity:  req.Quantity,
		Price:     req.Price,
		PaymentID: req.PaymentID,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, result)
}

// SellToPool продаёт акции обратно в пул по существующей SELL заявке
// POST /api/v1/orders/pool-purchase/sell/{id}
//
// Response:
// - 200 OK: выкуп исполнен
// - 404 Not Found: заявка не найдена
// - 409 Conflict: заявка не PENDING или принадлежит другому пользователю
// - 422 Unprocessable Entity: холдинг не покрывает продажу
func (h *OrderHandler) SellToPool(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderID, err := strconv.Atoi(vars["id"])
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid order ID", "ID must be a number")
		return
	}

	var req SellToPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	result, err := h.orderService.SellToPool(r.Context(), orderID, service.SellToPoolParams{
		StockID:  req.StockID,
		UserID:   req.UserID,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, result)
}

// CancelOrder отменяет PENDING заявку
// POST /api/v1/orders/cancel/{id}
//
// Query Parameters:
// - canceledBy: USER | SYSTEM (default: USER)
//
// Response:
// - 200 OK: заявка отменена
// - 400 Bad Request: невалидный id или canceledBy
// - 404 Not Found: заявка не найдена
// - 409 Conflict: заявка уже COMPLETED или CANCELED
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderID, err := strconv.Atoi(vars["id"])
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid order ID", "ID must be a number")
		return
	}

	canceledBy := r.URL.Query().Get("canceledBy")
	if canceledBy == "" {
		canceledBy = models.CanceledByUser
	}

	order, err := h.orderService.CancelOrder(r.Context(), orderID, canceledBy)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

// ListOrders возвращает страницу заявок
// GET /api/v1/orders
//
// Query Parameters:
// - page: номер страницы, с 1 (default: 1)
// - limit: размер страницы (default и максимум из конфигурации)
// - order: asc | desc по времени создания (default: asc)
//
// Некорректные значения пагинации приводятся к допустимым, а не
// отклоняются.
//
// Response:
// - 200 OK: {"paging": {...}, "data": [...]}
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	order := query.Get("order")

	result, err := h.orderService.ListOrders(r.Context(), page, limit, order)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to list orders", err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, result)
}

// ============ Helper методы ============

// handleServiceError обрабатывает ошибки от сервиса и возвращает соответствующий HTTP статус
func (h *OrderHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMissingStockID):
		h.respondWithError(w, http.StatusBadRequest, "missing_stock_id", "Stock ID is required", "")

	case errors.Is(err, service.ErrMissingUserID):
		h.respondWithError(w, http.StatusBadRequest, "missing_user_id", "User ID is required", "")

	case errors.Is(err, service.ErrInvalidSide):
		h.respondWithError(w, http.StatusBadRequest, "invalid_side", "Side must be BUY or SELL", "")

	case errors.Is(err, service.ErrInvalidQuantity):
		h.respondWithError(w, http.StatusBadRequest, "invalid_quantity", "Quantity must be a positive integer", "")

	case errors.Is(err, service.ErrInvalidPrice):
		h.respondWithError(w, http.StatusBadRequest, "invalid_price", "Offered price must be a positive integer", "")

	case errors.Is(err, service.ErrInvalidCanceledBy):
		h.respondWithError(w, http.StatusBadRequest, "invalid_canceled_by", "canceledBy must be USER or SYSTEM", "")

	case errors.Is(err, service.ErrStockNotFound):
		h.respondWithError(w, http.StatusNotFound, "stock_not_found", "Stock not found", "")

	case errors.Is(err, service.ErrUserNotFound):
		h.respondWithError(w, http.StatusNotFound, "user_not_found", "User not found", "")

	case errors.Is(err, service.ErrOrderNotFound):
		h.respondWithError(w, http.StatusNotFound, "order_not_found", "Order not found", "")

	case errors.Is(err, service.ErrInsufficientHolding):
		h.respondWithError(w, http.StatusUnprocessableEntity, "insufficient_holding", "Not enough shares to sell", "")

	case errors.Is(err, service.ErrInvalidOrderState):
		h.respondWithError(w, http.StatusConflict, "invalid_order_state", "Operation is not allowed for current order status", "")

	case errors.Is(err, service.ErrConcurrentModification):
		h.respondWithError(w, http.StatusConflict, "concurrent_modification", "Order was modified concurrently, retry the request", "")

	default:
		h.respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", err.Error())
	}
}

// respondWithJSON отправляет JSON ответ
func (h *OrderHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondWithError отправляет JSON ответ с ошибкой
func (h *OrderHandler) respondWithError(w http.ResponseWriter, statusCode int, code, message, details string) {
	response := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	h.respondWithJSON(w, statusCode, response)
}
