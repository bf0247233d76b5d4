// Package report renders holdings and summaries as markdown for terminals.
package report

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/Rhymond/go-money"
	"github.com/aristath/folio/internal/domain"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

var funcs = template.FuncMap{
	"money":    FormatMoney,
	"quantity": func(q decimal.Decimal) string { return q.String() },
	"percent":  func(p float64) string { return fmt.Sprintf("%.2f%%", p) },
	"weight":   func(w float64) float64 { return w * 100 },
	"price": func(h domain.Holding) string {
		if h.CurrentPrice == nil {
			return "n/a"
		}
		return FormatMoney(*h.CurrentPrice, h.QuoteCurrency)
	},
	"value": func(h domain.Holding) string {
		v, ok := h.Value()
		if !ok {
			return "n/a"
		}
		return FormatMoney(v, h.QuoteCurrency)
	},
}

// FormatMoney formats amount in the display style of its currency ("$1,234.50").
// Unknown currencies fall back to "<amount> <code>".
func FormatMoney(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}

	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// MarkdownHoldings renders holdings as a markdown table.
func MarkdownHoldings(holdings []domain.Holding) (string, error) {
	return renderTemplate("holdings.md", holdings)
}

// MarkdownSummary renders a summary as markdown.
func MarkdownSummary(summary domain.Summary) (string, error) {
	return renderTemplate("summary.md", summary)
}

func renderTemplate(file string, data any) (string, error) {
	content, err := fs.ReadFile(templates, "templates/"+file)
	if err != nil {
		return "", fmt.Errorf("error reading template %q: %w", file, err)
	}

	tmpl, err := template.New(file).Funcs(funcs).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("error parsing template %q: %w", file, err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("error executing template %q: %w", file, err)
	}
	return b.String(), nil
}

// Render formats markdown for a terminal.
func Render(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render(markdown)
}
