package models

import "time"

// Stock - торгуемая акция (единый пул одинаковых долей)
//
// Движок торгует долями одного пула на каждую акцию.
// Управление акциями (создание, настройка) - зона ответственности
// основной платформы; здесь нужны только проверки существования.
type Stock struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// User - пользователь платформы
//
// Аккаунты создаёт и ведёт основная платформа; движку нужна
// только проверка существования при размещении заявки.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
