// Package scoring реализует детерминированный движок кредитной оценки.
//
// Итоговый балл складывается из шести поведенческих факторов, каждый из
// которых даёт оценку 0-100 по истории транзакций пользователя. Факторы
// комбинируются взвешенным средним с фиксированными весами:
//
//	частота покупок            20%
//	использование купонов      15%
//	разнообразие категорий     15%
//	рост GMV                   25%
//	поведение по возвратам     15%
//	скорость после регистрации 10%
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/mmeshcher/bnpl-system/internal/model"
)

// Weights задаёт веса факторов. Сумма весов обязана быть ровно 1.0.
type Weights struct {
	PurchaseFrequency       float64
	DealRedemption          float64
	CategoryDiversification float64
	GMVGrowth               float64
	ReturnBehavior          float64
	FraudVelocity           float64
}

// DefaultWeights возвращает стандартный набор весов.
func DefaultWeights() Weights {
	return Weights{
		PurchaseFrequency:       0.20,
		DealRedemption:          0.15,
		CategoryDiversification: 0.15,
		GMVGrowth:               0.25,
		ReturnBehavior:          0.15,
		FraudVelocity:           0.10,
	}
}

func (w Weights) sum() float64 {
	return w.PurchaseFrequency + w.DealRedemption + w.CategoryDiversification +
		w.GMVGrowth + w.ReturnBehavior + w.FraudVelocity
}

// Config содержит пороговые параметры движка.
type Config struct {
	ApprovalThreshold float64
	MinCreditLimit    float64
	MaxCreditLimit    float64
	FraudVelocityDays int
	Weights           Weights
}

// Engine вычисляет кредитный балл и лимит. Не содержит состояния и
// безопасен для параллельного использования.
type Engine struct {
	cfg Config
}

// NewEngine создаёт движок и проверяет инвариант суммы весов.
func NewEngine(cfg Config) (*Engine, error) {
	if math.Abs(cfg.Weights.sum()-1.0) > 1e-9 {
		return nil, fmt.Errorf("score weights must sum to 1.0, got %v", cfg.Weights.sum())
	}
	if cfg.MaxCreditLimit < cfg.MinCreditLimit {
		return nil, fmt.Errorf("max credit limit %v below min %v", cfg.MaxCreditLimit, cfg.MinCreditLimit)
	}
	return &Engine{cfg: cfg}, nil
}

// ComputeScore вычисляет итоговый балл и разбивку по факторам на момент now.
func (e *Engine) ComputeScore(user *model.User, transactions []model.Transaction, now time.Time) (float64, model.ScoreBreakdown) {
	breakdown := model.ScoreBreakdown{
		PurchaseFrequency:       purchaseFrequencyScore(transactions, now),
		DealRedemption:          dealRedemptionScore(transactions),
		CategoryDiversification: categoryDiversificationScore(transactions),
		GMVGrowth:               gmvGrowthScore(transactions, now),
		ReturnBehavior:          returnBehaviorScore(transactions),
		FraudVelocity:           e.fraudVelocityScore(user.AccountAgeDays(now)),
	}

	w := e.cfg.Weights
	final := breakdown.PurchaseFrequency*w.PurchaseFrequency +
		breakdown.DealRedemption*w.DealRedemption +
		breakdown.CategoryDiversification*w.CategoryDiversification +
		breakdown.GMVGrowth*w.GMVGrowth +
		breakdown.ReturnBehavior*w.ReturnBehavior +
		breakdown.FraudVelocity*w.FraudVelocity

	// Нулевой фактор скорости означает срабатывание антифрода:
	// итоговый балл жёстко ограничивается сверху.
	if breakdown.FraudVelocity == 0 {
		final = math.Min(final, 10.0)
	}

	return round2(final), breakdown
}

// IsApproved проверяет, достигает ли балл порога одобрения.
func (e *Engine) IsApproved(score float64) bool {
	return score >= e.cfg.ApprovalThreshold
}

// ComputeCreditLimit определяет кредитный лимит по баллу.
// Одобренному пользователю лимит всегда покрывает запрошенную сумму с запасом 20%.
func (e *Engine) ComputeCreditLimit(score, requestedAmount float64) float64 {
	if !e.IsApproved(score) {
		return 0
	}

	scoreRatio := (score - e.cfg.ApprovalThreshold) / (100 - e.cfg.ApprovalThreshold)
	limit := e.cfg.MinCreditLimit + scoreRatio*(e.cfg.MaxCreditLimit-e.cfg.MinCreditLimit)

	return round2(math.Max(limit, math.Min(requestedAmount*1.2, e.cfg.MaxCreditLimit)))
}

// ApplyFraudCap приводит чужой балл к антифрод-инварианту: при сработавшем
// флаге итог не может превышать 10 независимо от источника оценки.
func (e *Engine) ApplyFraudCap(score float64, fraudFlagged bool) float64 {
	if fraudFlagged {
		return math.Min(score, 10.0)
	}
	return score
}

func purchaseFrequencyScore(transactions []model.Transaction, now time.Time) float64 {
	if len(transactions) == 0 {
		return 0
	}

	twelveMonthsAgo := now.AddDate(0, 0, -365)
	count := 0
	for _, t := range transactions {
		if !t.Timestamp.Before(twelveMonthsAgo) {
			count++
		}
	}

	switch {
	case count == 0:
		return 0
	case count < 10:
		return math.Min(float64(count)*3.0, 30.0)
	case count < 50:
		return 30.0 + float64(count-10)*0.75
	case count < 100:
		return 60.0 + float64(count-50)*0.6
	case count < 200:
		return 90.0 + float64(count-100)*0.1
	default:
		return 100
	}
}

func dealRedemptionScore(transactions []model.Transaction) float64 {
	if len(transactions) == 0 {
		return 0
	}

	couponCount := 0
	for _, t := range transactions {
		if t.CouponUsed {
			couponCount++
		}
	}
	rate := float64(couponCount) / float64(len(transactions))

	switch {
	case rate < 0.1:
		return 20
	case rate < 0.3:
		return 40
	case rate < 0.5:
		return 60
	case rate <= 0.85:
		return 85.0 + (rate-0.5)*42.86
	default:
		// Почти стопроцентное использование купонов — признак охоты за скидками.
		return 75
	}
}

func categoryDiversificationScore(transactions []model.Transaction) float64 {
	if len(transactions) == 0 {
		return 0
	}

	categories := make(map[string]struct{})
	for _, t := range transactions {
		categories[t.Category] = struct{}{}
	}

	switch n := len(categories); {
	case n == 1:
		return 20
	case n <= 3:
		return 40
	case n <= 5:
		return 60
	case n <= 8:
		return 80
	default:
		return 100
	}
}

func gmvGrowthScore(transactions []model.Transaction, now time.Time) float64 {
	if len(transactions) == 0 {
		return 0
	}

	twelveMonthsAgo := now.AddDate(0, 0, -365)
	sixMonthsAgo := now.AddDate(0, 0, -180)

	var gmvFirst, gmvSecond float64
	for _, t := range transactions {
		switch {
		case !t.Timestamp.Before(sixMonthsAgo):
			gmvSecond += t.GMVAmount
		case !t.Timestamp.Before(twelveMonthsAgo):
			gmvFirst += t.GMVAmount
		}
	}

	var base float64
	switch totalGMV := gmvFirst + gmvSecond; {
	case totalGMV < 1000:
		base = 15
	case totalGMV < 5000:
		base = 30
	case totalGMV < 20000:
		base = 50
	case totalGMV < 50000:
		base = 70
	default:
		base = 85
	}

	if gmvFirst > 0 {
		growthRate := (gmvSecond - gmvFirst) / gmvFirst
		switch {
		case growthRate > 0.3:
			base = math.Min(base+15, 100)
		case growthRate > 0:
			base = math.Min(base+8, 100)
		case growthRate < -0.3:
			base = math.Max(base-10, 0)
		}
	}

	return round2(math.Min(base, 100))
}

func returnBehaviorScore(transactions []model.Transaction) float64 {
	if len(transactions) == 0 {
		// Нет данных — нейтральная оценка.
		return 50
	}

	returnCount := 0
	for _, t := range transactions {
		if t.ReturnFlag {
			returnCount++
		}
	}
	rate := float64(returnCount) / float64(len(transactions))

	switch {
	case rate == 0:
		return 100
	case rate < 0.02:
		return 90
	case rate < 0.05:
		return 75
	case rate < 0.10:
		return 55
	case rate < 0.15:
		return 35
	default:
		return 20
	}
}

func (e *Engine) fraudVelocityScore(accountAgeDays int) float64 {
	switch {
	case accountAgeDays < e.cfg.FraudVelocityDays:
		return 0
	case accountAgeDays < 30:
		return 40
	case accountAgeDays < 90:
		return 65
	case accountAgeDays < 365:
		return 85
	default:
		return 100
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
