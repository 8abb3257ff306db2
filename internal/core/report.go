package core

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/JonMunkholm/csvusers/internal/logging"
)

// ByLabel returns the percentages keyed by bracket label.
func (d AgeDistribution) ByLabel() map[string]int {
	out := make(map[string]int, len(Brackets))
	for _, b := range Brackets {
		out[b.Label()] = d.Percent(b)
	}
	return out
}

// WriteAgeReport prints d as an aligned two-column table.
func WriteAgeReport(w io.Writer, d AgeDistribution) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Age-Group\t% Distribution")
	for _, b := range Brackets {
		fmt.Fprintf(tw, "%s\t%d\n", b.Label(), d.Percent(b))
	}
	return tw.Flush()
}

// LogAgeReport writes the distribution as one structured log entry.
func LogAgeReport(ctx context.Context, d AgeDistribution) {
	logging.FromContext(ctx).Info("age distribution report",
		"under_20", d.Under20,
		"20_to_40", d.From20To40,
		"40_to_60", d.From40To60,
		"over_60", d.Over60,
	)
}
