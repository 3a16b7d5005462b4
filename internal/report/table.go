package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/pricesheet/worker/internal/domain"
	"github.com/pricesheet/worker/internal/usecase"
)

// WriteOffersTable prints the offers of a search as an aligned table,
// followed by the rejection counts.
func WriteOffersTable(w io.Writer, result *usecase.SearchResult) error {
	if result == nil {
		return nil
	}

	lines := offersTable(result.Offers)
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Query: %q, %d of %d fragments accepted, showing %d",
		result.Query, result.Report.Accepted, result.Report.Total, len(result.Offers)))
	if rejected := formatRejected(result.Report.Rejected); rejected != "" {
		lines = append(lines, "Rejected: "+rejected)
	}

	return writeLines(w, lines)
}

// WriteSnapshot prints the offers recorded for a product the same way a
// search prints them, followed by when and where they were written.
func WriteSnapshot(w io.Writer, snapshot *domain.Snapshot, loc *time.Location) error {
	if snapshot == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	lines := offersTable(snapshot.Offers)
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Product: %q, row %d, searched at %s",
		snapshot.ProductName, snapshot.RowIndex, snapshot.SearchedAt.In(loc).Format(domain.TimestampLayout)))

	return writeLines(w, lines)
}

func offersTable(offers []domain.Offer) []string {
	table := [][]string{{"#", "Price", "Link"}}
	for i, o := range offers {
		table = append(table, []string{strconv.Itoa(i + 1), FormatPrice(o.Price), o.Link})
	}
	return renderTable(table)
}

// WriteRunReport prints the summary of a sheet refresh and its failures.
func WriteRunReport(w io.Writer, report *usecase.RunReport) error {
	if report == nil {
		return nil
	}

	summary := [][]string{
		{"Metric", "Value"},
		{"Processed", strconv.Itoa(report.Processed)},
		{"Updated", strconv.Itoa(report.Updated)},
		{"Empty", strconv.Itoa(report.Empty)},
		{"Skipped", strconv.Itoa(report.Skipped)},
		{"Failed", strconv.Itoa(len(report.Failures))},
	}
	if !report.StartedAt.IsZero() && !report.FinishedAt.IsZero() {
		summary = append(summary, []string{"Duration", report.FinishedAt.Sub(report.StartedAt).String()})
	}

	lines := renderTable(summary)

	if len(report.Failures) > 0 {
		failures := [][]string{{"Row", "Product", "Error"}}
		for _, f := range report.Failures {
			failures = append(failures, []string{strconv.Itoa(f.RowIndex), f.Name, f.Error})
		}
		lines = append(lines, "")
		lines = append(lines, renderTable(failures)...)
	}

	return writeLines(w, lines)
}

// FormatPrice renders a price the Brazilian way: R$ 1.299,90
func FormatPrice(price float64) string {
	cents := int64(math.Round(price * 100))
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	return fmt.Sprintf("%sR$ %s,%02d", sign, grouped.String(), cents%100)
}

func formatRejected(rejected map[usecase.RejectReason]int) string {
	if len(rejected) == 0 {
		return ""
	}

	reasons := make([]string, 0, len(rejected))
	for reason := range rejected {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)

	parts := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", reason, rejected[usecase.RejectReason(reason)]))
	}
	return strings.Join(parts, ", ")
}

// renderTable pads every cell to its column's display width. The first row
// is the header and gets a dashed separator below it.
func renderTable(table [][]string) []string {
	if len(table) == 0 {
		return nil
	}

	colCount := 0
	for _, row := range table {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	colWidths := make([]int, colCount)
	for _, row := range table {
		for i, cell := range row {
			if width := runewidth.StringWidth(cell); width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}
	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	result := make([]string, 0, len(table)+1)
	for i, row := range table {
		result = append(result, renderRow(row, colWidths))
		if i == 0 {
			sep := make([]string, colCount)
			for j, width := range colWidths {
				sep[j] = strings.Repeat("-", width)
			}
			result = append(result, renderRow(sep, colWidths))
		}
	}
	return result
}

func renderRow(row []string, colWidths []int) string {
	var sb strings.Builder
	sb.WriteString("|")
	for j, width := range colWidths {
		content := ""
		if j < len(row) {
			content = row[j]
		}
		sb.WriteString(" ")
		sb.WriteString(content)
		if padding := width - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}
		sb.WriteString(" |")
	}
	return sb.String()
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
