package middleware

import (
	"net/http"
	"strings"

	"stocktrade/pkg/crypto"
)

// Auth - middleware для аутентификации запросов device secret'ом
//
// API движка вызывается доверенными сервисами платформы, которые
// подписывают каждый запрос общим device secret:
//
//	Authorization: Bearer <device-secret>
//
// Секрет в конфигурации не хранится - только его bcrypt-хеш
// (DEVICE_SECRET_HASH). Пустой хеш выключает аутентификацию,
// это допустимо только для локальной разработки.
//
// bcrypt.CompareHashAndPassword выполняет constant-time сравнение,
// timing attack на секрет невозможен.
func Auth(deviceSecretHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if deviceSecretHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !crypto.CheckSecretMatch(token, deviceSecretHash) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
