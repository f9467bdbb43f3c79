package dataset

import (
	"regexp"
	"strings"
)

var (
	selectKeywordRe = regexp.MustCompile(`(?i)\bSELECT\s+`)
	nestedSelectRe  = regexp.MustCompile(`(?i)\bSELECT\b`)
)

// RecoverColumns extracts output column names from the first SELECT ... FROM
// clause of sql. It is a best-effort heuristic for simple column lists: each
// top-level comma-separated item contributes its alias (or last token), with
// backticks and double quotes stripped and any table qualifier dropped.
//
// The clause ends at the first FROM outside parentheses and quotes, so
// EXTRACT(YEAR FROM d) stays inside its item. ok is false when the clause is
// missing or unbalanced, selects *, contains a nested SELECT, or yields a
// count different from want.
func RecoverColumns(sql string, want int) (names []string, ok bool) {
	clause, ok := selectList(sql)
	if !ok {
		return nil, false
	}
	if nestedSelectRe.MatchString(clause) {
		return nil, false
	}
	if upper := strings.ToUpper(clause); strings.HasPrefix(upper, "DISTINCT ") {
		clause = strings.TrimSpace(clause[len("DISTINCT "):])
	}

	items, balanced := splitTopLevel(clause)
	if !balanced || len(items) != want {
		return nil, false
	}
	names = make([]string, 0, len(items))
	for _, item := range items {
		if item == "*" || strings.HasSuffix(item, ".*") {
			return nil, false
		}
		name := columnName(item)
		if name == "" {
			return nil, false
		}
		names = append(names, name)
	}
	return names, true
}

// selectList returns the text between the first SELECT and the FROM that
// closes it at depth zero.
func selectList(sql string) (string, bool) {
	loc := selectKeywordRe.FindStringIndex(sql)
	if loc == nil {
		return "", false
	}
	rest := sql[loc[1]:]
	var (
		depth int
		quote byte
	)
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return "", false
			}
		case depth == 0 && keywordAt(rest, i, "FROM"):
			return strings.TrimSpace(rest[:i]), true
		}
	}
	return "", false
}

func keywordAt(s string, i int, kw string) bool {
	end := i + len(kw)
	if end > len(s) || !strings.EqualFold(s[i:end], kw) {
		return false
	}
	if i > 0 && isIdentByte(s[i-1]) {
		return false
	}
	return end == len(s) || !isIdentByte(s[end])
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || c == '`' || c == '"' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// splitTopLevel splits s on commas outside parentheses and quotes. balanced
// is false when a parenthesis or quote is left open or closed too early.
func splitTopLevel(s string) (out []string, balanced bool) {
	var (
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, false
			}
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if depth != 0 || quote != 0 {
		return nil, false
	}
	return append(out, strings.TrimSpace(s[start:])), true
}

func columnName(item string) string {
	fields := strings.Fields(item)
	if len(fields) == 0 {
		return ""
	}
	name := strings.Trim(fields[len(fields)-1], "`\"")
	if strings.HasSuffix(name, ")") {
		// Unaliased expression such as count(id) keeps its full text.
		return strings.Trim(strings.Join(fields, " "), "`\"")
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	}
	return name
}
