// Package emi генерирует варианты рассрочки по стандартной формуле аннуитета.
package emi

import (
	"math"

	"github.com/mmeshcher/bnpl-system/internal/model"
)

// Tenure описывает один срок рассрочки и его годовую ставку в процентах.
type Tenure struct {
	Months     int
	AnnualRate float64
}

// DefaultTenures возвращает стандартный набор сроков: 3 месяца без
// процентов, 6 месяцев под 2.5% и 9 месяцев под 5% годовых.
func DefaultTenures() []Tenure {
	return []Tenure{
		{Months: 3, AnnualRate: 0},
		{Months: 6, AnnualRate: 2.5},
		{Months: 9, AnnualRate: 5},
	}
}

// Generator строит предложения рассрочки для одобренных сумм.
type Generator struct {
	tenures []Tenure
}

// NewGenerator создаёт генератор с указанным набором сроков.
func NewGenerator(tenures []Tenure) *Generator {
	return &Generator{tenures: tenures}
}

// GenerateOffers возвращает предложения рассрочки для суммы в пределах лимита.
// Сумма вне лимита или неположительная сумма — пустой список: кредит сверх
// одобренного не выдаётся.
func (g *Generator) GenerateOffers(amount, creditLimit float64) []model.EMIOffer {
	if amount > creditLimit || amount <= 0 {
		return []model.EMIOffer{}
	}

	offers := make([]model.EMIOffer, 0, len(g.tenures))
	for _, tenure := range g.tenures {
		monthlyRate := tenure.AnnualRate / 12 / 100

		var monthlyAmount, total float64
		if monthlyRate == 0 {
			monthlyAmount = amount / float64(tenure.Months)
			total = amount
		} else {
			// P * r * (1+r)^n / ((1+r)^n - 1)
			factor := math.Pow(1+monthlyRate, float64(tenure.Months))
			monthlyAmount = amount * monthlyRate * factor / (factor - 1)
			total = monthlyAmount * float64(tenure.Months)
		}

		var processingFee float64
		if tenure.AnnualRate > 0 {
			processingFee = round2(amount * 0.01)
		}

		offers = append(offers, model.EMIOffer{
			TenureMonths:  tenure.Months,
			MonthlyAmount: round2(monthlyAmount),
			InterestRate:  tenure.AnnualRate,
			TotalAmount:   round2(total),
			ProcessingFee: processingFee,
		})
	}

	return offers
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
