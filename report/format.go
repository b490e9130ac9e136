package report

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders quantities for a locale: thousands grouping and the
// locale's decimal separator. A nil *Formatter renders plain numbers.
type Formatter struct {
	printer *message.Printer
	title   cases.Caser
}

func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{
		printer: message.NewPrinter(tag),
		title:   cases.Title(tag),
	}
}

// ParseFormatter builds a Formatter from a BCP 47 tag such as "fr" or
// "en-US". An empty tag yields nil.
func ParseFormatter(tag string) (*Formatter, error) {
	if tag == "" {
		return nil, nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return nil, err
	}
	return NewFormatter(t), nil
}

// Weight renders kilograms with two decimals.
func (f *Formatter) Weight(kg decimal.Decimal) string {
	if f == nil {
		return kg.StringFixed(2)
	}
	return f.printer.Sprintf("%.2f", kg.InexactFloat64())
}

func (f *Formatter) Count(n int64) string {
	if f == nil {
		return decimal.NewFromInt(n).String()
	}
	return f.printer.Sprintf("%d", n)
}

// Kind turns a movement kind into a label: FARMER_DELIVERY -> Farmer Delivery.
func (f *Formatter) Kind(kind string) string {
	words := strings.ToLower(strings.ReplaceAll(kind, "_", " "))
	if f == nil {
		return cases.Title(language.English).String(words)
	}
	return f.title.String(words)
}
