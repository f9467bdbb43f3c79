package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("named rows pass through", func(t *testing.T) {
		t.Parallel()
		rs, err := Normalize(Rows([]string{"name", "qty"}, [][]any{{"Tomato", int64(12)}}), "SELECT name, qty FROM t")
		require.NoError(t, err)
		require.Equal(t, []string{"name", "qty"}, rs.Columns)
		require.Equal(t, [][]any{{"Tomato", int64(12)}}, rs.Rows)
	})

	t.Run("short rows are padded to the column count", func(t *testing.T) {
		t.Parallel()
		rs, err := Normalize(Rows([]string{"a", "b"}, [][]any{{1}, {1, 2, 3}}), "")
		require.NoError(t, err)
		require.Equal(t, [][]any{{1, nil}, {1, 2}}, rs.Rows)
	})

	t.Run("encoded text recovers names from sql", func(t *testing.T) {
		t.Parallel()
		rs, err := Normalize(EncodedText("[('Tomato', 12), ('Onion', 7)]"), "SELECT p.name, sum(oi.quantity) AS total FROM order_items_poc oi JOIN products_poc p USING (product_id) GROUP BY p.name")
		require.NoError(t, err)
		require.Equal(t, []string{"name", "total"}, rs.Columns)
		require.Equal(t, 2, rs.Len())
	})

	t.Run("unrecoverable names fall back to index labels", func(t *testing.T) {
		t.Parallel()
		rs, err := Normalize(Rows(nil, [][]any{{1, "a", true}}), "SELECT * FROM users_poc")
		require.NoError(t, err)
		require.Equal(t, []string{"0", "1", "2"}, rs.Columns)
	})

	t.Run("malformed encoded text yields an empty set and a parse error", func(t *testing.T) {
		t.Parallel()
		rs, err := Normalize(EncodedText("[(1, 'a'"), "SELECT a, b FROM t")
		var perr *ResultParseError
		require.True(t, errors.As(err, &perr))
		require.NotNil(t, rs)
		require.True(t, rs.Empty())
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		rs, err := Normalize(Empty(), "SELECT 1")
		require.NoError(t, err)
		require.True(t, rs.Empty())
		require.Equal(t, NoDataMarker, rs.Render(10))
	})
}

func TestResultSet_Records(t *testing.T) {
	t.Parallel()

	rs := &ResultSet{
		Columns: []string{"day", "revenue"},
		Rows:    [][]any{{"2024-05-01", 10.5}, {"2024-05-02", math.NaN()}, {"2024-05-03", 3.0}},
	}

	require.Equal(t, []map[string]any{
		{"day": "2024-05-01", "revenue": 10.5},
		{"day": "2024-05-02", "revenue": nil},
	}, rs.Preview(2))
	require.Len(t, rs.Records(), 3)
	require.Empty(t, rs.Preview(-1))

	values, ok := rs.ColumnValues("day")
	require.True(t, ok)
	require.Equal(t, []any{"2024-05-01", "2024-05-02", "2024-05-03"}, values)

	_, ok = rs.ColumnValues("missing")
	require.False(t, ok)
	require.True(t, rs.HasColumns("day", "revenue"))
	require.False(t, rs.HasColumns("day", "orders"))
}

func TestResultSet_Render(t *testing.T) {
	t.Parallel()

	t.Run("column count survives rendering", func(t *testing.T) {
		t.Parallel()
		for _, n := range []int{1, 3, 7} {
			for _, m := range []int{1, 10, 25} {
				rs := syntheticSet(n, m)
				out := rs.Render(10)
				require.Len(t, parseRenderedColumns(t, out), n, "columns=%d rows=%d", n, m)
				require.Contains(t, out, fmt.Sprintf("[%d rows x %d columns]", m, n))
			}
		}
	})

	t.Run("small results are rendered in full", func(t *testing.T) {
		t.Parallel()
		out := syntheticSet(2, 10).Render(10)
		require.Contains(t, out, "r9c1")
		require.NotContains(t, out, "showing first")
	})

	t.Run("large results are truncated with the true count", func(t *testing.T) {
		t.Parallel()
		out := syntheticSet(2, 11).Render(10)
		require.Contains(t, out, "r9c1")
		require.NotContains(t, out, "r10c1")
		require.Contains(t, out, "[11 rows x 2 columns] (showing first 10 rows)")
	})
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", FormatValue(nil))
	require.Equal(t, "3", FormatValue(3.0))
	require.Equal(t, "3.14", FormatValue(3.14159))
	require.Equal(t, "abc", FormatValue([]byte("abc")))
	require.Len(t, FormatValue(strings.Repeat("x", 200)), 100)
	require.Equal(t, strings.Repeat("ጤ", 100), FormatValue(strings.Repeat("ጤ", 100)))
}

func TestFormatValue_TruncatesMultiByteTextOnRuneBoundary(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		strings.Repeat("ጤፍ ", 60),
		"a" + strings.Repeat("🥬", 150),
	} {
		got := FormatValue(s)
		require.True(t, utf8.ValidString(got), "truncated value %q is not valid UTF-8", got)
		require.Equal(t, 100, utf8.RuneCountInString(got))
		require.True(t, strings.HasSuffix(got, "..."))
		require.True(t, strings.HasPrefix(s, strings.TrimSuffix(got, "...")))
	}
}

func syntheticSet(cols, rows int) *ResultSet {
	rs := &ResultSet{}
	for c := range cols {
		rs.Columns = append(rs.Columns, fmt.Sprintf("col_%d", c))
	}
	for r := range rows {
		row := make([]any, cols)
		for c := range cols {
			row[c] = fmt.Sprintf("r%dc%d", r, c)
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}

// parseRenderedColumns reads the header row back out of a rendered table.
func parseRenderedColumns(t *testing.T, out string) []string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		var cols []string
		for _, cell := range strings.Split(strings.Trim(line, "|"), "|") {
			cols = append(cols, strings.TrimSpace(cell))
		}
		return cols
	}
	t.Fatalf("no header row in %q", out)
	return nil
}
