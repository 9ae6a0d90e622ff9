package scoring

import "github.com/mmeshcher/bnpl-system/internal/model"

// Stats содержит агрегированные факты по истории транзакций,
// на которые ссылаются пояснительные тексты решений.
type Stats struct {
	TransactionCount int
	TotalGMV         float64
	CouponRate       float64
	ReturnRate       float64
	CategoryCount    int
}

// ComputeStats подсчитывает агрегаты по всей истории транзакций.
func ComputeStats(transactions []model.Transaction) Stats {
	s := Stats{TransactionCount: len(transactions)}
	if len(transactions) == 0 {
		return s
	}

	categories := make(map[string]struct{})
	couponCount := 0
	returnCount := 0
	for _, t := range transactions {
		s.TotalGMV += t.GMVAmount
		categories[t.Category] = struct{}{}
		if t.CouponUsed {
			couponCount++
		}
		if t.ReturnFlag {
			returnCount++
		}
	}

	s.CouponRate = float64(couponCount) / float64(len(transactions))
	s.ReturnRate = float64(returnCount) / float64(len(transactions))
	s.CategoryCount = len(categories)
	return s
}
