// Package validation содержит проверки входных данных HTTP-запросов.
package validation

import (
	"math"

	"github.com/google/uuid"
)

// IsValidUserID проверяет, что строка является корректным UUID пользователя.
func IsValidUserID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// IsValidAmount проверяет, что запрошенная сумма положительна и конечна.
func IsValidAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}
