package console

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"folio/internal/application/service"
)

// Renderer writes a performance report as a table. Money columns are
// formatted in the portfolio's reporting currency.
type Renderer struct {
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

func (r *Renderer) Render(report *service.Report) error {
	pf := report.Portfolio
	currency := pf.Currency()

	fmt.Fprintf(r.out, "Portfolio %s", pf.ID)
	if pf.Name != "" {
		fmt.Fprintf(r.out, " (%s)", pf.Name)
	}
	fmt.Fprintf(r.out, "  %s .. %s  %s\n\n", report.From, report.To, currency)

	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Date\tMarket Value\tFlows\tContributions\tDividends\tGrowth of 1000\tReturn\t")
	for _, p := range report.Series.Points {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.Date,
			formatAmount(p.MarketValue, currency),
			formatAmount(p.ExternalCashFlow, currency),
			formatAmount(p.NetContributions, currency),
			formatAmount(p.CumulativeDividends, currency),
			formatAmount(p.GrowthOf1000, currency),
			formatPercent(p.CumulativeReturn),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "\nTotal return: %s\n", formatPercent(report.Series.TotalReturn))
	return nil
}

// formatAmount renders a 2dp decimal with the currency's own symbol and
// separators. Unknown currency codes fall back to the bare number.
func formatAmount(v decimal.Decimal, currency string) string {
	c := money.GetCurrency(currency)
	if c == nil {
		return v.StringFixed(2)
	}
	amount := v.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(amount, currency).Display()
}

func formatPercent(v decimal.Decimal) string {
	return v.Shift(2).StringFixed(2) + "%"
}
