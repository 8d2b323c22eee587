package invoicer

import (
	"fmt"
	"time"
)

// Company identifies the issuing business and its uploaded graphics.
// LogoRef and StampRef are URLs of stored assets; empty means "use the
// built-in fallback graphic".
type Company struct {
	DisplayName string `json:"displayName"`
	ManagerName string `json:"managerName"`
	LogoRef     string `json:"logoRef,omitempty"`
	StampRef    string `json:"stampRef,omitempty"`
}

// InvoiceMeta holds the invoice number and issue date.
type InvoiceMeta struct {
	Number    string    `json:"number"`
	IssueDate time.Time `json:"issueDate"`
}

// Client is the party the invoice is issued to.
type Client struct {
	Name string `json:"name"`
}

// LineItem is one row of service: meal counts for a given label. The label
// is usually a date string but is not validated as one. UnitPriceOverride is
// carried with the row for compatibility with stored form data; totals are
// always derived from the pricing parameters.
type LineItem struct {
	Label             string `json:"label"`
	BreakfastCount    int    `json:"breakfastCount"`
	LunchCount        int    `json:"lunchCount"`
	UnitPriceOverride int64  `json:"unitPriceOverride,omitempty"`
}

// Pricing holds the invoice-wide pricing parameters. Amounts are whole
// currency units. ExchangeRate converts the net total to USD; a rate of zero
// makes the USD derivation unavailable rather than dividing by zero.
type Pricing struct {
	Discount           int64   `json:"discount"`
	ExchangeRate       float64 `json:"exchangeRate"`
	CurrencyCode       string  `json:"currencyCode"`
	BreakfastUnitPrice int64   `json:"breakfastUnitPrice"`
	LunchUnitPrice     int64   `json:"lunchUnitPrice"`
}

// InvoiceRecord is the complete editable invoice. It is a value type: edit
// methods return a new record and never mutate the receiver, so a derivation
// computed from one snapshot stays valid while the next edit is applied.
type InvoiceRecord struct {
	Company   Company     `json:"company"`
	Meta      InvoiceMeta `json:"invoiceMeta"`
	Client    Client      `json:"client"`
	LineItems []LineItem  `json:"lineItems"`
	Pricing   Pricing     `json:"pricing"`
}

// DefaultRecord returns the record a fresh editing session starts from.
func DefaultRecord() InvoiceRecord {
	return InvoiceRecord{
		Company: Company{
			DisplayName: "مطبخ منال",
			ManagerName: "منال",
		},
		Meta: InvoiceMeta{
			Number:    "1",
			IssueDate: time.Now(),
		},
		Pricing: Pricing{
			CurrencyCode:       "ل.س",
			ExchangeRate:       10000,
			BreakfastUnitPrice: 100000,
			LunchUnitPrice:     100000,
		},
	}
}

// WithCompany returns a copy of the record with the company replaced.
func (r InvoiceRecord) WithCompany(c Company) InvoiceRecord {
	out := r.clone()
	out.Company = c
	return out
}

// WithMeta returns a copy of the record with the invoice metadata replaced.
func (r InvoiceRecord) WithMeta(m InvoiceMeta) InvoiceRecord {
	out := r.clone()
	out.Meta = m
	return out
}

// WithClient returns a copy of the record with the client replaced.
func (r InvoiceRecord) WithClient(c Client) InvoiceRecord {
	out := r.clone()
	out.Client = c
	return out
}

// WithPricing returns a copy of the record with the pricing replaced.
// Negative amounts and rates are clamped to zero at this boundary; the
// derivation engine trusts its input.
func (r InvoiceRecord) WithPricing(p Pricing) InvoiceRecord {
	out := r.clone()
	out.Pricing = sanitizePricing(p)
	return out
}

// AppendLineItem returns a copy of the record with the item appended.
// Negative counts are clamped to zero.
func (r InvoiceRecord) AppendLineItem(it LineItem) InvoiceRecord {
	out := r.clone()
	out.LineItems = append(out.LineItems, sanitizeLineItem(it))
	return out
}

// WithLineItem returns a copy of the record with the item at index replaced.
func (r InvoiceRecord) WithLineItem(index int, it LineItem) (InvoiceRecord, error) {
	if index < 0 || index >= len(r.LineItems) {
		return InvoiceRecord{}, fmt.Errorf("%w: %d of %d", ErrLineItemIndex, index, len(r.LineItems))
	}
	out := r.clone()
	out.LineItems[index] = sanitizeLineItem(it)
	return out, nil
}

// RemoveLineItem returns a copy of the record with the item at index removed.
// Display order of the remaining items is preserved.
func (r InvoiceRecord) RemoveLineItem(index int) (InvoiceRecord, error) {
	if index < 0 || index >= len(r.LineItems) {
		return InvoiceRecord{}, fmt.Errorf("%w: %d of %d", ErrLineItemIndex, index, len(r.LineItems))
	}
	out := r.clone()
	out.LineItems = append(out.LineItems[:index], out.LineItems[index+1:]...)
	return out, nil
}

// Normalize returns a copy with all numeric fields clamped to the invariants
// the derivation engine assumes. Used when a whole record arrives from an
// untrusted source (e.g. a JSON request body) instead of through the typed
// edit methods.
func (r InvoiceRecord) Normalize() InvoiceRecord {
	out := r.clone()
	out.Pricing = sanitizePricing(out.Pricing)
	for i := range out.LineItems {
		out.LineItems[i] = sanitizeLineItem(out.LineItems[i])
	}
	return out
}

// clone copies the record deeply enough that edits to the copy cannot alias
// the original's line item slice.
func (r InvoiceRecord) clone() InvoiceRecord {
	out := r
	if r.LineItems != nil {
		out.LineItems = make([]LineItem, len(r.LineItems))
		copy(out.LineItems, r.LineItems)
	}
	return out
}

func sanitizeLineItem(it LineItem) LineItem {
	if it.BreakfastCount < 0 {
		it.BreakfastCount = 0
	}
	if it.LunchCount < 0 {
		it.LunchCount = 0
	}
	if it.UnitPriceOverride < 0 {
		it.UnitPriceOverride = 0
	}
	return it
}

func sanitizePricing(p Pricing) Pricing {
	if p.Discount < 0 {
		p.Discount = 0
	}
	if p.BreakfastUnitPrice < 0 {
		p.BreakfastUnitPrice = 0
	}
	if p.LunchUnitPrice < 0 {
		p.LunchUnitPrice = 0
	}
	if p.ExchangeRate < 0 {
		p.ExchangeRate = 0
	}
	return p
}
