package invoicer

import "github.com/shopspring/decimal"

// Totals holds every value derived from an InvoiceRecord. Nothing in here is
// stored; it is recomputed from the record on every read.
type Totals struct {
	// PerLine holds one total per line item, in display order.
	PerLine []int64
	// Gross is the sum of all line totals.
	Gross int64
	// Net is gross minus the discount. It may go negative; the value is
	// passed through unclamped.
	Net int64
	// USD is the net total converted at the exchange rate, rounded to the
	// nearest whole unit. Only meaningful when USDAvailable is true.
	USD int64
	// USDAvailable is false when the exchange rate is not positive, in which
	// case the USD conversion is undefined and USD must be ignored.
	USDAvailable bool
}

// LineTotal computes the total for a single line item under the given
// pricing. Counts are assumed non-negative; the edit boundary clamps them.
func LineTotal(it LineItem, p Pricing) int64 {
	return int64(it.BreakfastCount)*p.BreakfastUnitPrice + int64(it.LunchCount)*p.LunchUnitPrice
}

// Derive computes all derived values for the record. It is a pure function:
// same record in, same totals out, no side effects. Summation is exact
// integer arithmetic; rounding happens only in the USD conversion, never
// cumulatively.
func Derive(r InvoiceRecord) Totals {
	t := Totals{PerLine: make([]int64, len(r.LineItems))}
	for i, it := range r.LineItems {
		t.PerLine[i] = LineTotal(it, r.Pricing)
		t.Gross += t.PerLine[i]
	}
	t.Net = t.Gross - r.Pricing.Discount

	if r.Pricing.ExchangeRate > 0 {
		t.USD = usdEquivalent(t.Net, r.Pricing.ExchangeRate)
		t.USDAvailable = true
	}
	return t
}

// usdEquivalent converts a net amount at the given rate, rounding half away
// from zero to a whole unit. Decimal division avoids the drift a float64
// divide would introduce on large amounts.
func usdEquivalent(net int64, rate float64) int64 {
	return decimal.NewFromInt(net).
		Div(decimal.NewFromFloat(rate)).
		Round(0).
		IntPart()
}
