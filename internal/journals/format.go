package journals

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with grouping separators for memos and logs.
func FormatAmount(amount float64) string {
	return amountPrinter.Sprintf("%.2f", amount)
}
