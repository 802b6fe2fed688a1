// Package report defines the three report kinds sold by the bot, their
// invoice pricing, the metadata keys each kind writes, and the HTML
// rendering of a parsed report.
package report

import "fmt"

// Kind identifies a report product.
type Kind string

const (
	Numerology Kind = "numerology"
	Palmistry  Kind = "palmistry"
	Natal      Kind = "natal"
)

// Kinds lists every kind in menu order.
var Kinds = []Kind{Numerology, Palmistry, Natal}

type product struct {
	payload     string
	amount      int
	title       string
	description string
	metaPrefix  string
}

var products = map[Kind]product{
	Numerology: {payload: "NUM_200", amount: 90, title: "Нумерология", description: "Краткий нумерологический разбор (≈ 200 ₽).", metaPrefix: ""},
	Palmistry:  {payload: "PALM_300", amount: 130, title: "Хиромантия", description: "Разбор по фото ладони (≈ 300 ₽).", metaPrefix: "palm_"},
	Natal:      {payload: "NATAL_500", amount: 220, title: "Натальная карта Pro", description: "Натальная карта + дома + аспекты + нумерология (≈ 500 ₽).", metaPrefix: "natal_"},
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := products[k]
	return ok
}

// Payload is the invoice payload code.
func (k Kind) Payload() string { return products[k].payload }

// Amount is the price in Telegram Stars.
func (k Kind) Amount() int { return products[k].amount }

// Title is the product title shown on invoices.
func (k Kind) Title() string { return products[k].title }

// Description is the invoice description.
func (k Kind) Description() string { return products[k].description }

// RawKey is the metadata key holding the truncated raw model reply when the
// reply could not be parsed.
func (k Kind) RawKey() string { return products[k].metaPrefix + "llm_raw" }

// ReportKey is the metadata key holding the parsed report object.
func (k Kind) ReportKey() string { return products[k].metaPrefix + "llm_report" }

// ErrorKey is the metadata key holding the last generation error.
func (k Kind) ErrorKey() string { return products[k].metaPrefix + "llm_error" }

// SchemaErrorsKey is the metadata key holding soft schema violations.
func (k Kind) SchemaErrorsKey() string { return string(k) + "_schema_errors" }

// FromPayload maps an invoice payload code back to its kind.
func FromPayload(payload string) (Kind, error) {
	for k, p := range products {
		if p.payload == payload {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown invoice payload %q", payload)
}
