package invoicer

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Display amounts use western digit grouping (1,234,567), matching the
// original invoices. Arabic appears only in the fixed labels, not in numbers.
var amountPrinter = message.NewPrinter(language.English)

// unavailableMarker renders in place of a value that cannot be derived,
// such as the USD equivalent when the exchange rate is zero.
const unavailableMarker = "—"

// FormatAmount formats a whole currency amount with thousands separators.
func FormatAmount(v int64) string {
	return amountPrinter.Sprintf("%v", number.Decimal(v))
}

// FormatMoney formats an amount followed by its currency code.
func FormatMoney(v int64, currencyCode string) string {
	return FormatAmount(v) + " " + currencyCode
}

// FormatUSD formats the derived USD equivalent, or the unavailable marker
// when the conversion is undefined.
func FormatUSD(t Totals) string {
	if !t.USDAvailable {
		return unavailableMarker
	}
	return FormatAmount(t.USD) + " $"
}

// FormatRate formats an exchange rate with thousands separators. Rates are
// not currency amounts and may carry a fraction.
func FormatRate(rate float64) string {
	return amountPrinter.Sprintf("%v", number.Decimal(rate))
}
