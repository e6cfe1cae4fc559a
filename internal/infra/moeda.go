package infra

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// FormatarMoeda renders v as Brazilian reais, e.g. "R$ 1.234,50".
func FormatarMoeda(v decimal.Decimal) string {
	v = v.Round(2)
	sinal := ""
	if v.IsNegative() {
		sinal = "-"
		v = v.Neg()
	}
	centavos := v.Shift(2).IntPart()
	return sinal + ptBR.Sprintf("R$ %d,%02d", centavos/100, centavos%100)
}
