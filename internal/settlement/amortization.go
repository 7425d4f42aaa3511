package settlement

import (
	"strconv"

	"github.com/shopspring/decimal"

	"evdealer/backend/internal/apperr"
)

// DefaultAnnualRate is the installment interest rate in percent per year.
const DefaultAnnualRate = 6.0

var allowedTerms = map[int]bool{6: true, 12: true, 24: true, 36: true}

func ValidTerm(months int) bool {
	return allowedTerms[months]
}

func termError(months int) *apperr.Error {
	return &apperr.Error{
		Code:     apperr.CodeInvalidArgument,
		Message:  "unsupported installment term",
		Expected: "6, 12, 24 or 36",
		Actual:   strconv.Itoa(months),
	}
}

type Amortization struct {
	Principal      int64   `json:"principal"`
	Months         int     `json:"months"`
	AnnualRate     float64 `json:"annual_rate"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalPayable   float64 `json:"total_payable"`
	InterestAmount float64 `json:"interest_amount"`
}

// Amortize applies the straight-line approximation
//
//	monthly = (P / months) * (1 + (rate/12/100) * months / 2)
//
// which charges interest on the average outstanding principal. It is not a
// compounding loan schedule.
func Amortize(principal int64, months int, annualRate float64) (Amortization, error) {
	if !ValidTerm(months) {
		return Amortization{}, termError(months)
	}
	if principal < 0 {
		return Amortization{}, apperr.InvalidArgument("principal must not be negative")
	}
	if annualRate < 0 {
		return Amortization{}, apperr.InvalidArgument("interest rate must not be negative")
	}

	p := decimal.NewFromInt(principal)
	m := decimal.NewFromInt(int64(months))
	r := decimal.NewFromFloat(annualRate)

	factor := decimal.NewFromInt(1).Add(
		r.Div(decimal.NewFromInt(12)).Div(decimal.NewFromInt(100)).Mul(m).Div(decimal.NewFromInt(2)),
	)
	monthly := p.Div(m).Mul(factor)
	total := monthly.Mul(m)
	interest := total.Sub(p)

	return Amortization{
		Principal:      principal,
		Months:         months,
		AnnualRate:     annualRate,
		MonthlyPayment: monthly.InexactFloat64(),
		TotalPayable:   total.InexactFloat64(),
		InterestAmount: interest.InexactFloat64(),
	}, nil
}
