package settlement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidRates is returned by Rates.Validate.
var ErrInvalidRates = errors.New("invalid settlement rates")

// Rates are the fixed percentages applied by Calculate.
type Rates struct {
	// Tax is the statutory tax share of gross revenue (USN).
	Tax decimal.Decimal
	// Commission is the payment processor fee share of gross revenue.
	Commission decimal.Decimal
	// TeacherShare is the teacher's part of the net after rent.
	TeacherShare decimal.Decimal
}

// DefaultRates: 6% tax + 4% bank commission, 70/30 teacher/company split.
func DefaultRates() Rates {
	return Rates{
		Tax:          decimal.RequireFromString("0.06"),
		Commission:   decimal.RequireFromString("0.04"),
		TeacherShare: decimal.RequireFromString("0.7"),
	}
}

// TaxAndCommission is the combined deduction rate.
func (r Rates) TaxAndCommission() decimal.Decimal {
	return r.Tax.Add(r.Commission)
}

// CompanyShare is 1 - TeacherShare.
func (r Rates) CompanyShare() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(r.TeacherShare)
}

// Validate checks every rate is in [0, 1] and the deductions stay below 100%.
func (r Rates) Validate() error {
	one := decimal.NewFromInt(1)
	for name, v := range map[string]decimal.Decimal{
		"tax":           r.Tax,
		"commission":    r.Commission,
		"teacher_share": r.TeacherShare,
	} {
		if v.IsNegative() || v.GreaterThan(one) {
			return fmt.Errorf("%w: %s=%s must be within [0, 1]", ErrInvalidRates, name, v)
		}
	}
	if r.TaxAndCommission().GreaterThan(one) {
		return fmt.Errorf("%w: tax+commission=%s exceeds 1", ErrInvalidRates, r.TaxAndCommission())
	}
	return nil
}
