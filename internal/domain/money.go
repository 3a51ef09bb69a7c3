package domain

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatPrice печатает цену в целых единицах: разряды по локали, затем узкий
// символ валюты ("3 500 ₽" для ru).
func FormatPrice(amount int64, unit currency.Unit, tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprintf("%d %v", amount, currency.NarrowSymbol(unit))
}
