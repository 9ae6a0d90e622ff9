package middleware

import (
	"crypto/hmac"
	"net/http"
)

const apiKeyHeader = "X-Api-Key"

// APIKeyMiddleware проверяет ключ API в заголовке запроса.
type APIKeyMiddleware struct {
	key []byte
}

// NewAPIKeyMiddleware создаёт проверку с указанным ключом.
// Пустой ключ отключает проверку полностью.
func NewAPIKeyMiddleware(key string) *APIKeyMiddleware {
	return &APIKeyMiddleware{key: []byte(key)}
}

// Middleware отклоняет запросы без корректного ключа API.
// Сравнение ключей выполняется за постоянное время.
func (a *APIKeyMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.key) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		provided := []byte(r.Header.Get(apiKeyHeader))
		if !hmac.Equal(provided, a.key) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
