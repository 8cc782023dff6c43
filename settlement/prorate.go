package settlement

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/course-settlement/generic"
	"github.com/warp/course-settlement/schedule"
)

// Proration is the price of a partial month for a student joining late.
type Proration struct {
	Counts schedule.Counts `json:"counts"`
	Sum    decimal.Decimal `json:"sum"`
	Full   decimal.Decimal `json:"full"`
}

// ProratedSum charges PricePerLesson for the lessons on or after join.
func ProratedSum(c *Course, year int, month time.Month, join generic.Date) Proration {
	counts := c.LessonCounts(year, month, join)
	return Proration{
		Counts: counts,
		Sum:    c.PricePerLesson.Mul(decimal.NewFromInt(int64(counts.Remaining))),
		Full:   c.PricePerLesson.Mul(decimal.NewFromInt(int64(counts.Total))),
	}
}
