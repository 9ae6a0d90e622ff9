// Package narrative формирует текстовые пояснения кредитных решений.
//
// Каждое пояснение ссылается только на факты, переданные на вход:
// генератор не имеет права упоминать число, которого нет в Facts.
package narrative

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mmeshcher/bnpl-system/internal/model"
)

// Facts содержит все числа, на которые может ссылаться пояснение.
type Facts struct {
	UserName         string
	Approved         bool
	Score            float64
	Breakdown        model.ScoreBreakdown
	CreditLimit      float64
	FraudFlagged     bool
	FraudDayLimit    int
	TransactionCount int
	TotalGMV         float64
	CouponRate       float64
	ReturnRate       float64
	CategoryCount    int
	AccountAgeDays   int
}

// Generate строит пояснение решения по одной из трёх взаимоисключающих ветвей.
func Generate(f Facts) string {
	if f.FraudFlagged {
		return fraudNarrative(f)
	}
	if !f.Approved {
		return rejectionNarrative(f)
	}
	return approvalNarrative(f)
}

func fraudNarrative(f Facts) string {
	return fmt.Sprintf(
		"Hi %s, your BNPL application could not be approved at this time. "+
			"Your account was created just %d day(s) ago, and our security policies "+
			"require a minimum account history of %d days before BNPL eligibility. "+
			"This policy helps protect both you and our merchants from fraudulent activity. "+
			"Please try again after your account has matured.",
		f.UserName, f.AccountAgeDays, f.FraudDayLimit,
	)
}

func rejectionNarrative(f Facts) string {
	var reasons []string

	if f.TransactionCount < 10 {
		reasons = append(reasons, fmt.Sprintf("a limited purchase history of only %d transaction(s)", f.TransactionCount))
	}
	if f.TotalGMV < 2000 {
		reasons = append(reasons, fmt.Sprintf("a total spending of ₹%s, which is below our threshold", formatAmount(f.TotalGMV)))
	}
	if f.ReturnRate > 0.10 {
		reasons = append(reasons, fmt.Sprintf("a return rate of %.0f%%, indicating higher-than-average returns", f.ReturnRate*100))
	}
	if f.AccountAgeDays < 30 {
		reasons = append(reasons, fmt.Sprintf("a relatively new account (%d days)", f.AccountAgeDays))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "your overall credit signals not meeting our minimum criteria at this time")
	}

	var reasonText string
	if len(reasons) > 1 {
		reasonText = strings.Join(reasons[:len(reasons)-1], ", ") + ", and " + reasons[len(reasons)-1]
	} else {
		reasonText = reasons[0]
	}

	return fmt.Sprintf(
		"Hi %s, we were unable to approve your BNPL request at this time "+
			"(score: %.0f/100). This is due to %s. "+
			"We recommend continuing to shop to build a stronger purchase history. "+
			"Your eligibility will be re-evaluated automatically on your next checkout.",
		f.UserName, f.Score, reasonText,
	)
}

func approvalNarrative(f Facts) string {
	var strengths []string

	if f.Breakdown.PurchaseFrequency >= 70 {
		strengths = append(strengths, fmt.Sprintf("made %d purchases, showing strong platform engagement", f.TransactionCount))
	} else if f.Breakdown.PurchaseFrequency >= 40 {
		strengths = append(strengths, fmt.Sprintf("maintained consistent shopping activity with %d transactions", f.TransactionCount))
	}

	if f.Breakdown.DealRedemption >= 70 {
		strengths = append(strengths, fmt.Sprintf("used coupons in %.0f%% of transactions, demonstrating smart deal usage", f.CouponRate*100))
	}

	if f.Breakdown.GMVGrowth >= 70 {
		strengths = append(strengths, fmt.Sprintf("shown a healthy spending trajectory with ₹%s total GMV", formatAmount(f.TotalGMV)))
	} else if f.Breakdown.GMVGrowth >= 40 {
		strengths = append(strengths, fmt.Sprintf("demonstrated consistent spending with ₹%s total GMV", formatAmount(f.TotalGMV)))
	}

	if f.Breakdown.CategoryDiversification >= 60 {
		strengths = append(strengths, fmt.Sprintf("shopped across %d different categories", f.CategoryCount))
	}

	if f.Breakdown.ReturnBehavior >= 80 {
		rateText := "no"
		if f.ReturnRate > 0 {
			rateText = fmt.Sprintf("only %.1f%%", f.ReturnRate*100)
		}
		strengths = append(strengths, fmt.Sprintf("maintained %s returns, reflecting purchase reliability", rateText))
	}

	if len(strengths) == 0 {
		strengths = append(strengths, "met our baseline eligibility criteria")
	}

	return fmt.Sprintf(
		"Great news, %s! You qualify for Buy Now, Pay Later with a credit score of "+
			"%.0f/100 and a limit of ₹%s. You've %s. "+
			"Your %d-day account history provides additional confidence. "+
			"Choose your preferred EMI tenure below to complete your purchase.",
		f.UserName, f.Score, formatAmount(f.CreditLimit),
		strings.Join(strengths, ". You've "), f.AccountAgeDays,
	)
}

// formatAmount форматирует сумму без дробной части с разделителями тысяч.
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
