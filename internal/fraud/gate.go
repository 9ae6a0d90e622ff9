// Package fraud реализует антифрод-проверку скорости: аккаунты моложе
// порога блокируются до накопления истории.
package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmeshcher/bnpl-system/internal/cache"
	"github.com/mmeshcher/bnpl-system/internal/model"
)

// RiskLevel описывает уровень риска по возрасту аккаунта.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

const memoTTL = 300 * time.Second

// Result — итог проверки скорости для одного пользователя.
type Result struct {
	Flagged               bool      `json:"flagged"`
	Reason                string    `json:"reason,omitempty"`
	DaysSinceRegistration int       `json:"days_since_registration"`
	RiskLevel             RiskLevel `json:"risk_level"`
}

// Gate выполняет проверку скорости по возрасту аккаунта.
type Gate struct {
	velocityDays int
}

// NewGate создаёт проверку с указанным порогом в днях.
func NewGate(velocityDays int) *Gate {
	return &Gate{velocityDays: velocityDays}
}

// Check — чистая функция от возраста аккаунта в днях. Не имеет ошибочных исходов.
func (g *Gate) Check(accountAgeDays int) Result {
	switch {
	case accountAgeDays < g.velocityDays:
		return Result{
			Flagged: true,
			Reason: fmt.Sprintf("Account age is only %d day(s) — below the %d-day threshold",
				accountAgeDays, g.velocityDays),
			DaysSinceRegistration: accountAgeDays,
			RiskLevel:             RiskHigh,
		}
	case accountAgeDays < 30:
		return Result{DaysSinceRegistration: accountAgeDays, RiskLevel: RiskMedium}
	default:
		return Result{DaysSinceRegistration: accountAgeDays, RiskLevel: RiskLow}
	}
}

// CheckUser выполняет проверку с мемоизацией результата в кэше по идентификатору
// пользователя. Мемоизация не меняет возвращаемое значение для того же возраста.
func (g *Gate) CheckUser(ctx context.Context, store cache.Store, user *model.User, now time.Time) Result {
	key := "fraud:velocity:" + user.ID

	if data, ok := store.Get(ctx, key); ok {
		var cached Result
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached
		}
	}

	result := g.Check(user.AccountAgeDays(now))

	if data, err := json.Marshal(result); err == nil {
		store.Set(ctx, key, data, memoTTL)
	}

	return result
}
