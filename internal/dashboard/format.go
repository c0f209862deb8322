package dashboard

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// NoData is shown in place of a price that could not be looked up.
const NoData = "Sem dados"

// FormatInt formats an integer with pt-BR thousands separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// toBRL converts a decimal amount to money in centavos, rounding half away
// from zero.
func toBRL(amount decimal.Decimal) *money.Money {
	cur := money.GetCurrency(money.BRL)
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), money.BRL)
}

// FormatBRL formats a price as "R$38,50".
func FormatBRL(amount decimal.Decimal) string {
	return toBRL(amount).Display()
}

// FormatChange formats a price change with an explicit sign, e.g.
// "+R$3,50" or "-R$0,12". Zero has no sign.
func FormatChange(amount decimal.Decimal) string {
	s := toBRL(amount).Display()
	if amount.Round(2).IsPositive() {
		return "+" + s
	}
	return s
}

// FormatPct formats a percentage with two decimals and a sign, e.g.
// "+10,00%".
func FormatPct(pct decimal.Decimal) string {
	s := strings.Replace(pct.StringFixed(2), ".", ",", 1)
	if pct.Round(2).IsPositive() {
		return "+" + s + "%"
	}
	return s + "%"
}

// FormatIndex formats an index level with two decimals and pt-BR
// separators, e.g. "128.456,78".
func FormatIndex(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	whole := FormatInt(int(d.IntPart()))
	frac := d.Sub(decimal.NewFromInt(d.IntPart())).Abs().StringFixed(2)
	if whole == "0" && d.IsNegative() {
		whole = "-0"
	}
	return whole + "," + frac[2:]
}

// TrendClass returns the CSS class for a signed change: "up", "down" or
// "flat".
func TrendClass(change decimal.Decimal) string {
	switch change.Round(2).Sign() {
	case 1:
		return "up"
	case -1:
		return "down"
	default:
		return "flat"
	}
}
