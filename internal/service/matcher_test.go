package service

import (
	"testing"
	"time"

	"stocktrade/internal/models"
)

func makeOrder(id int, side string, price int, createdAt time.Time) *models.Order {
	return &models.Order{
		ID:           id,
		StockID:      "stock-1",
		UserID:       "user-1",
		Side:         side,
		Quantity:     10,
		OfferedPrice: price,
		Status:       models.OrderStatusPending,
		CreatedAt:    createdAt,
	}
}

func TestBestMatch_SellPicksHighestBid(t *testing.T) {
	t0 := baseTime
	incoming := makeOrder(10, models.OrderSideSell, 100, t0.Add(3*time.Second))

	candidates := []*models.Order{
		makeOrder(1, models.OrderSideBuy, 105, t0),
		makeOrder(2, models.OrderSideBuy, 110, t0.Add(time.Second)),
		makeOrder(3, models.OrderSideBuy, 99, t0.Add(2*time.Second)), // ниже запрошенной цены
	}

	match := BestMatch(incoming, candidates)
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ID != 2 {
		t.Errorf("expected candidate 2 (price 110), got %d (price %d)", match.ID, match.OfferedPrice)
	}
}

func TestBestMatch_BuyPicksLowestAsk(t *testing.T) {
	t0 := baseTime
	incoming := makeOrder(10, models.OrderSideBuy, 100, t0.Add(3*time.Second))

	candidates := []*models.Order{
		makeOrder(1, models.OrderSideSell, 95, t0),
		makeOrder(2, models.OrderSideSell, 90, t0.Add(time.Second)),
		makeOrder(3, models.OrderSideSell, 101, t0.Add(2*time.Second)), // дороже предложенной цены
	}

	match := BestMatch(incoming, candidates)
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ID != 2 {
		t.Errorf("expected candidate 2 (price 90), got %d (price %d)", match.ID, match.OfferedPrice)
	}
}

func TestBestMatch_TimePriorityOnEqualPrice(t *testing.T) {
	t0 := baseTime
	incoming := makeOrder(10, models.OrderSideSell, 100, t0.Add(time.Hour))

	candidates := []*models.Order{
		makeOrder(2, models.OrderSideBuy, 105, t0.Add(time.Second)),
		makeOrder(1, models.OrderSideBuy, 105, t0), // раньше при равной цене
	}

	match := BestMatch(incoming, candidates)
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ID != 1 {
		t.Errorf("expected earliest candidate 1, got %d", match.ID)
	}
}

func TestBestMatch_IDTieBreakOnEqualTimestamp(t *testing.T) {
	t0 := baseTime
	incoming := makeOrder(10, models.OrderSideSell, 100, t0.Add(time.Hour))

	candidates := []*models.Order{
		makeOrder(7, models.OrderSideBuy, 105, t0),
		makeOrder(3, models.OrderSideBuy, 105, t0),
	}

	match := BestMatch(incoming, candidates)
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ID != 3 {
		t.Errorf("expected lower id 3 on full tie, got %d", match.ID)
	}
}

func TestBestMatch_Deterministic(t *testing.T) {
	t0 := baseTime
	incoming := makeOrder(10, models.OrderSideSell, 100, t0.Add(time.Hour))

	candidates := []*models.Order{
		makeOrder(5, models.OrderSideBuy, 105, t0.Add(2*time.Second)),
		makeOrder(4, models.OrderSideBuy, 110, t0.Add(time.Second)),
		makeOrder(6, models.OrderSideBuy, 110, t0),
	}

	// Один и тот же набор кандидатов в любом порядке даёт один результат
	first := BestMatch(incoming, candidates)
	for i := 0; i < 10; i++ {
		reversed := []*models.Order{candidates[2], candidates[0], candidates[1]}
		if got := BestMatch(incoming, reversed); got.ID != first.ID {
			t.Fatalf("match is not deterministic: %d vs %d", got.ID, first.ID)
		}
	}

	if first.ID != 6 {
		t.Errorf("expected candidate 6 (best price, earliest), got %d", first.ID)
	}
}

func TestBestMatch_NoCompatiblePrice(t *testing.T) {
	t0 := baseTime
	incoming := makeOrder(10, models.OrderSideSell, 100, t0.Add(time.Second))

	candidates := []*models.Order{
		makeOrder(1, models.OrderSideBuy, 99, t0),
		makeOrder(2, models.OrderSideBuy, 50, t0),
	}

	if match := BestMatch(incoming, candidates); match != nil {
		t.Errorf("expected no match, got order %d", match.ID)
	}
}

func TestBestMatch_EmptyCandidates(t *testing.T) {
	incoming := makeOrder(10, models.OrderSideSell, 100, baseTime)

	if match := BestMatch(incoming, nil); match != nil {
		t.Errorf("expected no match for empty candidates, got order %d", match.ID)
	}
}

func TestTradePrice_EarlierOrderWins(t *testing.T) {
	t0 := baseTime
	earlier := makeOrder(1, models.OrderSideSell, 50, t0)
	later := makeOrder(2, models.OrderSideBuy, 55, t0.Add(time.Second))

	if price := TradePrice(earlier, later); price != 50 {
		t.Errorf("expected trade price 50 (earlier order), got %d", price)
	}
	// Порядок аргументов не влияет
	if price := TradePrice(later, earlier); price != 50 {
		t.Errorf("expected trade price 50 regardless of argument order, got %d", price)
	}
}

func TestTradePrice_EqualTimestampUsesLowerID(t *testing.T) {
	t0 := baseTime
	a := makeOrder(1, models.OrderSideSell, 40, t0)
	b := makeOrder(2, models.OrderSideBuy, 45, t0)

	if price := TradePrice(a, b); price != 40 {
		t.Errorf("expected price of lower-id order (40), got %d", price)
	}
	if price := TradePrice(b, a); price != 40 {
		t.Errorf("expected price of lower-id order (40), got %d", price)
	}
}
