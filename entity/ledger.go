package entity

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dioad/records"
)

// Kind classifies a transaction amount.
type Kind string

const (
	Credit Kind = "C"
	Debit  Kind = "D"
)

// KindOf returns Credit for positive amounts and Debit otherwise.
func KindOf(amount float64) Kind {
	if amount > 0 {
		return Credit
	}
	return Debit
}

// Balance sums the amounts of rs.
func Balance(rs []records.Record[Transaction]) float64 {
	var sum float64
	for _, r := range rs {
		sum += r.Data.Amount
	}
	// keep cents exact after float accumulation
	return math.Round(sum*100) / 100
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatAmount renders amount as Brazilian reais, e.g. "R$ 1.234,50" or
// "-R$ 12,00".
func FormatAmount(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + brl.Sprintf("R$ %.2f", amount)
}

// Label renders a transaction amount followed by its kind, e.g. "R$ 10,00 C".
func Label(amount float64) string {
	return FormatAmount(amount) + " " + string(KindOf(amount))
}
