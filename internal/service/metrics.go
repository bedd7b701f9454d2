package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового движка
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о проблемах
// - Наблюдение за частотой конфликтов settlement в production

// OrdersPlaced - количество размещённых заявок по сторонам
var OrdersPlaced = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stocktrade",
		Subsystem: "engine",
		Name:      "orders_placed_total",
		Help:      "Total number of placed orders",
	},
	[]string{"side"},
)

// OrdersCanceled - количество отменённых заявок
var OrdersCanceled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stocktrade",
		Subsystem: "engine",
		Name:      "orders_canceled_total",
		Help:      "Total number of canceled orders",
	},
	[]string{"canceled_by"},
)

// TradesSettled - количество исполненных сделок
var TradesSettled = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "stocktrade",
		Subsystem: "engine",
		Name:      "trades_settled_total",
		Help:      "Total number of settled peer-to-peer trades",
	},
)

// SettlementConflicts - конфликты оптимистичной конкуренции
//
// Рост метрики означает высокую contention по одной акции:
// много конкурирующих заявок матчатся на один и тот же набор
// resting-заявок и холдингов.
var SettlementConflicts = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "stocktrade",
		Subsystem: "engine",
		Name:      "settlement_conflicts_total",
		Help:      "Total number of settlement transaction conflicts (retried)",
	},
)

// PoolPurchases - покупки из пула (первичное размещение)
var PoolPurchases = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "stocktrade",
		Subsystem: "engine",
		Name:      "pool_purchases_total",
		Help:      "Total number of pool share purchases",
	},
)

// PoolSales - продажи в пул (выкуп эмитентом)
var PoolSales = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "stocktrade",
		Subsystem: "engine",
		Name:      "pool_sales_total",
		Help:      "Total number of sales back to the pool",
	},
)

// SettlementDuration - длительность применения сделки внутри транзакции
var SettlementDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "stocktrade",
		Subsystem: "engine",
		Name:      "settlement_duration_seconds",
		Help:      "Time to apply a matched trade inside the settlement transaction",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	},
)
