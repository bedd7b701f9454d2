package service

import "stocktrade/internal/models"

// matcher.go - выбор встречной заявки по price/time priority
//
// Правила стандартного двойного аукциона:
// - для SELL заявки с ценой P ищется PENDING BUY с offered_price >= P;
//   из подходящих берётся самая дорогая, при равенстве цен - самая ранняя
// - для BUY заявки с ценой P ищется PENDING SELL с offered_price <= P;
//   из подходящих берётся самая дешёвая, при равенстве цен - самая ранняя
//
// Матчинг только при точном совпадении количества - частичного
// исполнения нет. Это осознанное упрощение: заявка может висеть
// неограниченно долго, пока не появится встречная с идентичным
// количеством и совместимой ценой.

// BestMatch выбирает лучшую встречную заявку для incoming из candidates
//
// candidates - PENDING заявки противоположной стороны по той же акции
// с тем же количеством (ценовой фильтр выполняется здесь).
// Возвращает nil, если ни один кандидат не подходит по цене.
//
// При равных цене и времени создания побеждает меньший id -
// таймстемпы БД могут совпасть в пределах разрешения часов.
func BestMatch(incoming *models.Order, candidates []*models.Order) *models.Order {
	var best *models.Order

	for _, candidate := range candidates {
		if !priceCompatible(incoming, candidate) {
			continue
		}
		if best == nil || betterCandidate(incoming.Side, candidate, best) {
			best = candidate
		}
	}

	return best
}

// priceCompatible проверяет ценовую совместимость кандидата
func priceCompatible(incoming, candidate *models.Order) bool {
	if incoming.Side == models.OrderSideSell {
		// Покупатель должен предлагать не меньше запрошенного
		return candidate.OfferedPrice >= incoming.OfferedPrice
	}
	// Продавец должен просить не больше предложенного
	return candidate.OfferedPrice <= incoming.OfferedPrice
}

// betterCandidate возвращает true, если a предпочтительнее b
// для заявки стороны incomingSide
func betterCandidate(incomingSide string, a, b *models.Order) bool {
	if a.OfferedPrice != b.OfferedPrice {
		if incomingSide == models.OrderSideSell {
			// Для продавца лучший покупатель - самый дорогой
			return a.OfferedPrice > b.OfferedPrice
		}
		// Для покупателя лучший продавец - самый дешёвый
		return a.OfferedPrice < b.OfferedPrice
	}

	// Равные цены: приоритет по времени создания
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}

	// Равные таймстемпы: детерминизм по id
	return a.ID < b.ID
}

// TradePrice возвращает цену исполнения сделки
//
// Исполняется цена той заявки, что была создана раньше: price/time
// priority отдаёт экономику стороне, пришедшей первой. Это значит,
// что улучшившая цену поздняя сторона платит/получает цену ранней,
// а не середину спреда - асимметрия сохранена намеренно.
func TradePrice(a, b *models.Order) int {
	if a.CreatedAt.Before(b.CreatedAt) {
		return a.OfferedPrice
	}
	if b.CreatedAt.Before(a.CreatedAt) {
		return b.OfferedPrice
	}
	// Одновременное создание: цена заявки с меньшим id
	if a.ID < b.ID {
		return a.OfferedPrice
	}
	return b.OfferedPrice
}
