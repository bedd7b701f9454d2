package service

import (
	"bytes"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"stocktrade/internal/config"
)

var mirrorJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// MirrorClient отправляет события pool-покупок на основную платформу
//
// Платформа ведёт собственный учёт платежей и должна узнавать о
// каждой покупке из пула. Доставка best-effort: один POST с
// таймаутом, сбой логируется, повторов нет. Потерянное событие
// восстанавливается ручной сверкой по истории транзакций.
type MirrorClient struct {
	httpClient *http.Client
	baseURL    string
	secret     string
	logger     *zap.Logger
}

// NewMirrorClient создает клиента зеркалирования.
// Возвращает nil, если BaseURL не задан (зеркалирование выключено).
func NewMirrorClient(cfg config.MirrorConfig, logger *zap.Logger) *MirrorClient {
	if cfg.BaseURL == "" {
		return nil
	}
	return &MirrorClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		secret:     cfg.DeviceSecret,
		logger:     logger,
	}
}

// PublishPoolPurchase отправляет событие покупки из пула.
//
// Вызывается в отдельной горутине после коммита транзакции,
// поэтому ошибки только логируются.
func (c *MirrorClient) PublishPoolPurchase(ev PoolPurchaseEvent) {
	body, err := mirrorJSON.Marshal(ev)
	if err != nil {
		c.logger.Error("mirror: failed to marshal event", zap.Error(err))
		return
	}

	url := c.baseURL + "/api/share/buy"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("mirror: failed to build request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.secret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("mirror: delivery failed",
			zap.String("stock_id", ev.StockID),
			zap.String("user_id", ev.UserID),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.logger.Warn("mirror: platform rejected event",
			zap.Int("status", resp.StatusCode),
			zap.String("stock_id", ev.StockID),
			zap.String("user_id", ev.UserID),
		)
		return
	}

	c.logger.Debug("mirror: event delivered",
		zap.String("stock_id", ev.StockID),
		zap.String("user_id", ev.UserID),
	)
}

var _ MirrorPublisher = (*MirrorClient)(nil)
