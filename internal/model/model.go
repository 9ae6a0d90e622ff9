// Package model содержит доменные сущности сервиса кредитной оценки.
package model

import "time"

// User представляет пользователя платформы, подлежащего кредитной оценке.
type User struct {
	ID               string
	Name             string
	Email            string
	RegistrationDate time.Time
	RiskSegment      string
}

// AccountAgeDays возвращает возраст аккаунта в днях на момент now. Никогда не отрицателен.
func (u *User) AccountAgeDays(now time.Time) int {
	days := int(now.Sub(u.RegistrationDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Transaction описывает исторический факт покупки пользователя.
type Transaction struct {
	ID          string    `json:"transaction_id"`
	UserID      string    `json:"user_id"`
	MerchantID  string    `json:"merchant_id"`
	Category    string    `json:"category"`
	GMVAmount   float64   `json:"gmv_amount"`
	CouponUsed  bool      `json:"coupon_used"`
	PaymentMode string    `json:"payment_mode"`
	ReturnFlag  bool      `json:"return_flag"`
	Timestamp   time.Time `json:"transaction_timestamp"`
}

// ScoreBreakdown содержит шесть факторных оценок, каждая в диапазоне [0,100].
type ScoreBreakdown struct {
	PurchaseFrequency       float64 `json:"purchase_frequency"`
	DealRedemption          float64 `json:"deal_redemption"`
	CategoryDiversification float64 `json:"category_diversification"`
	GMVGrowth               float64 `json:"gmv_growth"`
	ReturnBehavior          float64 `json:"return_behavior"`
	FraudVelocity           float64 `json:"fraud_velocity"`
}

// InRange проверяет, что все факторные оценки лежат в допустимом диапазоне.
func (b ScoreBreakdown) InRange() bool {
	for _, v := range []float64{
		b.PurchaseFrequency,
		b.DealRedemption,
		b.CategoryDiversification,
		b.GMVGrowth,
		b.ReturnBehavior,
		b.FraudVelocity,
	} {
		if v < 0 || v > 100 {
			return false
		}
	}
	return true
}

// EMIOffer описывает вариант рассрочки с фиксированным сроком.
type EMIOffer struct {
	TenureMonths  int     `json:"tenure_months"`
	MonthlyAmount float64 `json:"monthly_amount"`
	InterestRate  float64 `json:"interest_rate"`
	TotalAmount   float64 `json:"total_amount"`
	ProcessingFee float64 `json:"processing_fee"`
}

// CreditAssessment — итог одной оценки. Создаётся оркестратором один раз и далее неизменен.
type CreditAssessment struct {
	UserID              string         `json:"user_id"`
	UserName            string         `json:"user_name"`
	RiskSegment         string         `json:"risk_segment"`
	Approved            bool           `json:"approved"`
	CreditScore         float64        `json:"credit_score"`
	CreditLimit         float64        `json:"credit_limit"`
	ScoreBreakdown      ScoreBreakdown `json:"score_breakdown"`
	EMIOffers           []EMIOffer     `json:"emi_offers"`
	Narrative           string         `json:"narrative"`
	FraudFlagged        bool           `json:"fraud_flagged"`
	RequestedAmount     float64        `json:"requested_amount"`
	AssessmentTimestamp time.Time      `json:"assessment_timestamp"`
}
