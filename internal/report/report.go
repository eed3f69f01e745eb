package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/pipeline"
)

// Format controls the output format
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates an output format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatTable, FormatMarkdown:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (supported: table, markdown)", name)
}

func newWriter() table.Writer {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	return w
}

func render(out io.Writer, w table.Writer, f Format) error {
	var s string
	if f == FormatMarkdown {
		s = w.RenderMarkdown()
	} else {
		s = w.Render()
	}
	_, err := fmt.Fprintln(out, s)
	return err
}

// RunReports writes one row per recomputed campaign
func RunReports(out io.Writer, reports []*pipeline.RunReport, f Format) error {
	w := newWriter()
	w.AppendHeader(table.Row{"Campaign", "Run", "Events", "Clusters", "Paths", "Converting", "Item errors", "Duration", "Error"})

	var events, paths, converting, itemErrors int
	for _, r := range reports {
		w.AppendRow(table.Row{
			r.CampaignID,
			r.RunID,
			r.Events,
			r.Clusters,
			r.Paths,
			r.ConvertingPaths,
			itemErrorSummary(r.ItemErrors),
			r.Duration.Round(time.Millisecond),
			r.Error,
		})
		events += r.Events
		paths += r.Paths
		converting += r.ConvertingPaths
		itemErrors += r.TotalItemErrors()
	}
	w.AppendFooter(table.Row{"Total", "", events, "", paths, converting, itemErrors, "", ""})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 9, WidthMax: 48},
	})
	return render(out, w, f)
}

// CampaignROI writes the ROI summary of one campaign and model, followed by
// its segment lift when present
func CampaignROI(out io.Writer, roi *domain.CampaignROI, f Format) error {
	w := newWriter()
	w.AppendHeader(table.Row{"Campaign", "Model", "Attributed value", "Cost", "ROI", "ROAS", "Sample", "Confidence"})
	confidence := string(roi.ConfidenceLevel)
	if roi.Provisional {
		confidence += " (provisional)"
	}
	w.AppendRow(table.Row{
		roi.CampaignID,
		roi.Model,
		fmt.Sprintf("%.2f", roi.TotalAttributedValue),
		fmt.Sprintf("%.2f", roi.CampaignCost),
		ratio(roi.ROI),
		ratio(roi.ROAS),
		roi.SampleSize,
		confidence,
	})
	if err := render(out, w, f); err != nil {
		return err
	}

	if len(roi.Lift) == 0 {
		return nil
	}

	lw := newWriter()
	lw.AppendHeader(table.Row{"Segment", "Paths", "Converting", "Rate", "Baseline", "Lift", "Confidence"})
	for _, l := range roi.Lift {
		lw.AppendRow(table.Row{
			l.Segment,
			l.Paths,
			l.ConvertingPaths,
			fmt.Sprintf("%.4f", l.ConversionRate),
			fmt.Sprintf("%.4f", l.BaselineRate),
			ratio(l.Lift),
			l.ConfidenceLevel,
		})
	}
	return render(out, lw, f)
}

func ratio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}

func itemErrorSummary(errs map[string]int) string {
	if len(errs) == 0 {
		return "0"
	}
	kinds := make([]string, 0, len(errs))
	for k := range errs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, errs[k]))
	}
	return strings.Join(parts, " ")
}
