package dataset

// RawKind tags the shape of a result as it came back from an executor.
type RawKind int

const (
	// RawEmpty means the executor produced no result at all.
	RawEmpty RawKind = iota
	// RawRows means the executor produced tabular rows.
	RawRows
	// RawEncodedText means the executor produced a textual serialization of
	// rows (e.g. "[(1, 'a'), (2, 'b')]") instead of the rows themselves.
	RawEncodedText
)

func (k RawKind) String() string {
	switch k {
	case RawRows:
		return "rows"
	case RawEncodedText:
		return "encoded_text"
	default:
		return "empty"
	}
}

// RawResult is the executor's output before normalization.
//
// Columns may be nil for Rows results when the executor only knows
// positions; Normalize then falls back to index labels or recovers names
// from the SQL.
type RawResult struct {
	Kind    RawKind
	Columns []string
	Rows    [][]any
	Text    string
}

// Rows returns a RawResult carrying tabular rows.
func Rows(columns []string, rows [][]any) RawResult {
	return RawResult{Kind: RawRows, Columns: columns, Rows: rows}
}

// EncodedText returns a RawResult carrying a textual row serialization.
func EncodedText(text string) RawResult {
	return RawResult{Kind: RawEncodedText, Text: text}
}

// Empty returns a RawResult with no data.
func Empty() RawResult {
	return RawResult{Kind: RawEmpty}
}
