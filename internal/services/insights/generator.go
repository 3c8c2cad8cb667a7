// Package insights produces short natural-language summaries of a user's
// dividend history. Generation runs in the background worker; the API only
// serves the latest stored summary.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoon/divtrack/internal/models"
)

// Generator produces a summary text from monthly statistics.
type Generator interface {
	MonthlySummary(ctx context.Context, stats []*models.MonthlyStat) (string, error)
}

// buildPrompt renders monthly statistics as compact lines for the model.
func buildPrompt(stats []*models.MonthlyStat) string {
	var sb strings.Builder
	sb.WriteString("Monthly dividend totals (month, currency, gross, tax, net):\n")
	for _, s := range stats {
		fmt.Fprintf(&sb, "%s %s %.2f %.2f %.2f\n", s.Month, s.Unit, s.Dividend, s.Tax, s.Total)
	}
	sb.WriteString("\nWrite a short summary (3-4 sentences) of this dividend history for the investor. " +
		"Mention the overall trend, the strongest month, and anything notable about taxes. " +
		"Plain text only, no markdown.")
	return sb.String()
}
