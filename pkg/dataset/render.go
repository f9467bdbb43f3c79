package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

// NoDataMarker is the rendering of a result with no rows.
const NoDataMarker = "Query returned no data."

// Render formats the set as a text table for prompts and terminals. At most
// maxRows rows are printed; the footer always carries the true row count.
func (r *ResultSet) Render(maxRows int) string {
	if r.Empty() {
		return NoDataMarker
	}

	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader(r.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(true)

	shown := min(max(maxRows, 0), r.Len())
	for _, row := range r.Rows[:shown] {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		table.Append(cells)
	}
	table.Render()

	fmt.Fprintf(&sb, "[%d rows x %d columns]", r.Len(), len(r.Columns))
	if shown < r.Len() {
		fmt.Fprintf(&sb, " (showing first %d rows)", shown)
	}
	return sb.String()
}

// FormatValue renders a single cell. Floats are rounded to two decimals and
// values longer than 100 runes are truncated.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	case float32:
		if val == float32(int32(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.DateTime)
	case []byte:
		return string(val)
	default:
		s := fmt.Sprintf("%v", v)
		if r := []rune(s); len(r) > 100 {
			s = string(r[:97]) + "..."
		}
		return s
	}
}
