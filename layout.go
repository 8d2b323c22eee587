package invoicer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/manal-catering/invoicer/internal/assets"
)

// layoutRenderer abstracts layout rendering to enable testing the export
// pipeline without the real template.
type layoutRenderer interface {
	Render(r InvoiceRecord, t Totals) (string, error)
}

// Compile-time interface check
var _ layoutRenderer = (*htmlLayout)(nil)

// Embedded asset name shared by the template and its stylesheet.
const layoutAssetName = "invoice"

// Fixed contact details shown in the stamp fallback graphic.
const (
	contactHandle = "manal.catering"
	contactPhone  = "0951738476"
)

// Invoice dates render in day-first order regardless of locale.
const displayDateLayout = "02/01/2006"

// htmlLayout renders an InvoiceRecord into the fixed A4 RTL document.
type htmlLayout struct {
	tpl *template.Template
	css template.CSS
}

// newHTMLLayout parses the embedded template and stylesheet.
func newHTMLLayout() (*htmlLayout, error) {
	raw, err := assets.LoadTemplate(layoutAssetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayoutRender, err)
	}

	css, err := assets.LoadStyle(layoutAssetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayoutRender, err)
	}

	tpl, err := template.New(layoutAssetName).Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayoutRender, err)
	}

	return &htmlLayout{tpl: tpl, css: template.CSS(css)}, nil
}

// layoutRow is one rendered line of the services table.
type layoutRow struct {
	Label     string
	Breakfast int
	Lunch     int
	Total     string
}

// layoutData is the fully formatted view of a record. Every value is a
// string by the time it reaches the template so that formatting decisions
// live in one place.
type layoutData struct {
	CSS           template.CSS
	LogoURL       string
	ManagerName   string
	Number        string
	DateText      string
	ClientName    string
	Rows          []layoutRow
	Discount      string
	Net           string
	USD           string
	RateNote      string
	StampURL      string
	CompanyName   string
	ContactHandle string
	ContactPhone  string
}

// Render produces the HTML document for the record and its derived totals.
// The output is a pure function of the inputs: identical record and totals
// yield byte-identical HTML.
func (l *htmlLayout) Render(r InvoiceRecord, t Totals) (string, error) {
	data := layoutData{
		CSS:           l.css,
		LogoURL:       r.Company.LogoRef,
		ManagerName:   r.Company.ManagerName,
		Number:        r.Meta.Number,
		DateText:      r.Meta.IssueDate.Format(displayDateLayout),
		ClientName:    r.Client.Name,
		Rows:          make([]layoutRow, len(r.LineItems)),
		Discount:      FormatMoney(r.Pricing.Discount, r.Pricing.CurrencyCode),
		Net:           FormatMoney(t.Net, r.Pricing.CurrencyCode),
		USD:           FormatUSD(t),
		RateNote:      fmt.Sprintf("%s سعر الصرف: %s", r.Pricing.CurrencyCode, FormatRate(r.Pricing.ExchangeRate)),
		StampURL:      r.Company.StampRef,
		CompanyName:   r.Company.DisplayName,
		ContactHandle: contactHandle,
		ContactPhone:  contactPhone,
	}

	for i, it := range r.LineItems {
		data.Rows[i] = layoutRow{
			Label:     it.Label,
			Breakfast: it.BreakfastCount,
			Lunch:     it.LunchCount,
			Total:     FormatAmount(LineTotal(it, r.Pricing)),
		}
	}

	var buf bytes.Buffer
	if err := l.tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLayoutRender, err)
	}
	return buf.String(), nil
}
