package pricing

import (
	"math"

	"github.com/banachtech/quant-toolkit/qerr"
)

// FutureDiscreteValue compounds x at rate r for n periods.
func FutureDiscreteValue(x, r float64, n float64) float64 {
	return x * math.Pow(1+r, n)
}

// PresentDiscreteValue discounts x at rate r over n periods.
func PresentDiscreteValue(x, r float64, n float64) float64 {
	return x / math.Pow(1+r, n)
}

func FutureContinuousValue(x, r, t float64) float64 {
	return x * math.Exp(r*t)
}

func PresentContinuousValue(x, r, t float64) float64 {
	return x * math.Exp(-r*t)
}

// ZeroCouponBondPrice discounts principal over maturity years at an annually
// compounded rate.
func ZeroCouponBondPrice(principal, maturity, rate float64) (float64, error) {
	s := BondSchedule{Principal: principal, Maturity: maturity, DiscountRate: rate, Frequency: 1}
	return s.Price()
}

// BondSchedule describes a fixed-coupon bond. CouponRate is annual and zero
// for a zero-coupon bond; Frequency is the number of coupons per year.
type BondSchedule struct {
	Principal    float64 `json:"principal"`
	CouponRate   float64 `json:"coupon_rate"`
	Maturity     float64 `json:"maturity"`
	DiscountRate float64 `json:"discount_rate"`
	Frequency    int     `json:"frequency"`
}

type CashFlow struct {
	Time   float64 `json:"time"`
	Amount float64 `json:"amount"`
}

func (b BondSchedule) Validate() error {
	if err := qerr.Positive("principal", b.Principal); err != nil {
		return err
	}
	if err := qerr.Positive("maturity", b.Maturity); err != nil {
		return err
	}
	if err := qerr.Count("frequency", b.Frequency, 1); err != nil {
		return err
	}
	if b.CouponRate < 0 || math.IsNaN(b.CouponRate) {
		return qerr.Validation("coupon_rate", "%v must be non-negative", b.CouponRate)
	}
	if !(b.DiscountRate > -1) || math.IsInf(b.DiscountRate, 1) {
		return qerr.Validation("discount_rate", "%v must be greater than -1", b.DiscountRate)
	}
	if p := b.periods(); b.CouponRate > 0 && math.Abs(p-math.Round(p)) > 1e-9 {
		return qerr.Validation("maturity", "%v years is not a whole number of %d-per-year periods", b.Maturity, b.Frequency)
	}
	return nil
}

func (b BondSchedule) periods() float64 {
	return b.Maturity * float64(b.Frequency)
}

// CashFlows lists coupon payments and the principal repayment. The final
// entry carries the last coupon plus principal.
func (b BondSchedule) CashFlows() ([]CashFlow, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.CouponRate == 0 {
		return []CashFlow{{Time: b.Maturity, Amount: b.Principal}}, nil
	}
	n := int(math.Round(b.periods()))
	f := float64(b.Frequency)
	coupon := b.Principal * b.CouponRate / f
	var out []CashFlow
	for k := 1; k <= n; k++ {
		amt := coupon
		if k == n {
			amt += b.Principal
		}
		out = append(out, CashFlow{Time: float64(k) / f, Amount: amt})
	}
	return out, nil
}

// Price discounts every cash flow at DiscountRate/Frequency per period.
func (b BondSchedule) Price() (float64, error) {
	flows, err := b.CashFlows()
	if err != nil {
		return math.NaN(), err
	}
	f := float64(b.Frequency)
	price := 0.0
	for _, cf := range flows {
		price += PresentDiscreteValue(cf.Amount, b.DiscountRate/f, cf.Time*f)
	}
	return finite(price)
}

// ContinuousPrice discounts every cash flow continuously at DiscountRate.
func (b BondSchedule) ContinuousPrice() (float64, error) {
	flows, err := b.CashFlows()
	if err != nil {
		return math.NaN(), err
	}
	price := 0.0
	for _, cf := range flows {
		price += PresentContinuousValue(cf.Amount, b.DiscountRate, cf.Time)
	}
	return finite(price)
}

// finite rejects prices that overflowed, e.g. deep discounting at a rate
// close to -1.
func finite(price float64) (float64, error) {
	if math.IsInf(price, 0) || math.IsNaN(price) {
		return math.NaN(), qerr.Domain("discount_rate", "price %v is not finite", price)
	}
	return price, nil
}
