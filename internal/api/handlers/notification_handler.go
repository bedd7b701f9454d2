package handlers

import (
	"net/http"
	"strconv"

	"stocktrade/internal/service"
)

// NotificationHandler отвечает за журнал уведомлений движка
//
// Endpoints:
// - GET /api/v1/notifications - последние уведомления (новые сверху)
type NotificationHandler struct {
	notificationService service.NotificationServiceInterface
}

// NewNotificationHandler создает новый NotificationHandler
func NewNotificationHandler(notificationService service.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotifications возвращает последние уведомления
// GET /api/v1/notifications
//
// Query Parameters:
// - limit: максимальное количество записей (default: 100, максимум: 500)
//
// Response:
// - 200 OK: массив уведомлений
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notifications, err := h.notificationService.GetNotifications(r.Context(), limit)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get notifications", err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, notifications)
}

// respondWithJSON отправляет JSON ответ
func (h *NotificationHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondWithError отправляет JSON ответ с ошибкой
func (h *NotificationHandler) respondWithError(w http.ResponseWriter, statusCode int, code, message, details string) {
	h.respondWithJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
