package reporter

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"ledgermerge/internal/synthesis"
)

const mergeSummaryTemplate = `# Merge summary

Merged ` + "`{{ .ImportFile }}`" + ` into ` + "`{{ .CurrentFile }}`" + `, snapshot {{ .BaseSnapshot }} to {{ .IncomingSnapshot }} ({{ .Mode }} matching).

| Partition | Transactions |
|:---|---:|
| Retained | {{ .Retained }} |
| Updated | {{ .Updated }} |
| New | {{ .New }} |
| Dropped | {{ .Dropped }} |
| **Ledger** | **{{ .Transactions }}** |

| Balance | Amount |
|:---|---:|
| Initial | {{ money .InitialBalance }} |
| Final | {{ money .FinalBalance }} |
| Stated by the import | {{ money .ImportedBalance }} |
{{- if not .BalanceDrift.IsZero }}
| **Drift** | **{{ signed .BalanceDrift }}** |
{{- end }}
{{ if .Dropped }}
- {{ .Dropped }} import rows dated inside the current ledger had no match and were ignored.
{{- end }}
{{- if .Duplicates }}
- {{ .Duplicates }} groups of identical rows were found inside a ledger.
{{- end }}
{{- if .Written }}
- Merged ledger written to ` + "`{{ .OutputFile }}`" + `.
{{- else }}
- Dry run: nothing was written.
{{- end }}
{{- if .BackupFile }}
- Previous ledger kept at ` + "`{{ .BackupFile }}`" + `.
{{- end }}
`

const reportTemplate = `# Ledger synthesis

Source ` + "`{{ .Source }}`" + `, snapshot {{ .SnapshotAt }}: {{ .Transactions }} transactions, balance {{ money .InitialBalance }} to {{ money .FinalBalance }}.
{{ range .Syntheses }}
## {{ .Title }}

### Cash flow

| Series | Start | End |
|:---|---:|---:|
| Balance | {{ money (first .CashFlow.Balance) }} | {{ money (final .CashFlow.Balance) }} |
| Trend | {{ money (first .CashFlow.BalanceTrend) }} | {{ money (final .CashFlow.BalanceTrend) }} |
| Profit | | {{ money (final .CashFlow.CumulatedGain) }} |
| Loss | | {{ money (final .CashFlow.CumulatedLoss) }} |
| **P&L** | | **{{ signed (final .CashFlow.CumulatedPnL) }}** |
{{ template "repartition" .Categories }}
{{- range .SubCategories }}
{{ template "repartition" . }}
{{- end }}
{{- end }}
`

const repartitionTemplate = `{{ define "repartition" }}
### {{ .Title }}
{{ if or .Positive .Negative }}
| Name | Side | Total | Share |
|:---|:---|---:|---:|
{{- $slices := .Slices }}
{{- range .Positive }}
| {{ label .Name }} | profit | {{ money .Total }} | {{ share $slices .Name }} |
{{- end }}
{{- range .Negative }}
| {{ label .Name }} | loss | {{ money .Total }} | {{ share $slices .Name }} |
{{- end }}
{{- else }}
No transactions.
{{- end }}
{{ end }}`

func (rg *ReportGenerator) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(amount decimal.Decimal) string {
			return FormatMoney(amount, rg.config.Currency)
		},
		"signed": func(amount decimal.Decimal) string {
			if amount.IsPositive() {
				return "+" + FormatMoney(amount, rg.config.Currency)
			}
			return FormatMoney(amount, rg.config.Currency)
		},
		"first": func(data []decimal.Decimal) decimal.Decimal {
			if len(data) == 0 {
				return decimal.Zero
			}
			return data[0]
		},
		"final": synthesis.Final,
		"label": func(name string) string {
			if name == "" {
				return "(none)"
			}
			return strings.ReplaceAll(name, "|", "\\|")
		},
		"share": func(slices []synthesis.Slice, name string) string {
			for _, s := range slices {
				if s.Name == name {
					return s.Share.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
				}
			}
			return ""
		},
	}
}

// Markdown executes one of the report templates and returns raw markdown
func (rg *ReportGenerator) Markdown(text string, data interface{}) (string, error) {
	tmpl, err := template.New("report").Funcs(rg.templateFuncs()).Parse(repartitionTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse report template: %w", err)
	}
	if tmpl, err = tmpl.Parse(text); err != nil {
		return "", fmt.Errorf("failed to parse report template: %w", err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to execute report template: %w", err)
	}
	return b.String(), nil
}

// Render turns markdown into styled terminal output
func (rg *ReportGenerator) Render(markdown string) (string, error) {
	options := []glamour.TermRendererOption{glamour.WithWordWrap(rg.config.WordWrap)}
	if rg.config.Style == "" || rg.config.Style == "auto" {
		options = append(options, glamour.WithAutoStyle())
	} else {
		options = append(options, glamour.WithStandardStyle(rg.config.Style))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer.Render(markdown)
}

func (rg *ReportGenerator) writeMarkdown(writer io.Writer, text string, data interface{}) error {
	out, err := rg.Markdown(text, data)
	if err != nil {
		return err
	}
	if rg.config.Render {
		if out, err = rg.Render(out); err != nil {
			return err
		}
	}
	_, err = io.WriteString(writer, out)
	return err
}
