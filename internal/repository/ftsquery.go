package repository

import (
	"strings"
)

// ftsColumn maps the field prefixes the query grammar in spec.md §4.S
// exposes (subject:, from:, to:, body:) onto the column names backing the
// emails/emails_fts tables.
var ftsColumn = map[string]string{
	"subject": "subject",
	"from":    "from_address",
	"to":      "to_address",
	"body":    "body",
}

// toFTS5MatchQuery rewrites the public query grammar into a literal FTS5
// MATCH expression. The grammar is already close to FTS5's own syntax
// (AND/OR/NOT, quoted phrases, "word*" prefixes); the one translation
// needed is the field-prefix form ("subject:word" -> "subject:word" is
// already valid FTS5 column-filter syntax once the column exists in the
// virtual table), so this mostly validates/normalizes whitespace and maps
// public field names onto actual column names.
func toFTS5MatchQuery(query string) string {
	tokens := tokenizeQuery(query)
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		if field, rest, ok := splitFieldPrefix(tok); ok {
			if col, known := ftsColumn[field]; known {
				b.WriteString(col)
				b.WriteByte(':')
				b.WriteString(rest)
				continue
			}
		}
		b.WriteString(tok)
	}
	return b.String()
}

// tokenizeQuery splits on whitespace but keeps quoted phrases and the
// boolean keywords AND/OR/NOT intact as single tokens.
func tokenizeQuery(query string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range query {
		switch {
		case r == '"':
			cur.WriteRune(r)
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// splitFieldPrefix splits a token of the form "field:rest" into its parts.
// Quoted phrases and boolean keywords never match.
func splitFieldPrefix(tok string) (field, rest string, ok bool) {
	if strings.HasPrefix(tok, `"`) {
		return "", "", false
	}
	idx := strings.Index(tok, ":")
	if idx <= 0 || idx == len(tok)-1 {
		return "", "", false
	}
	return tok[:idx], tok[idx+1:], true
}

// toPostgresTSQuery performs the same translation against Postgres's
// to_tsquery grammar: AND -> &, OR -> |, NOT -> !, a "quoted phrase" is
// unquoted and flattened to AND-joined words (word order is not
// enforced), and "word*" prefixes become the ":*" prefix-match operator
// tsquery uses natively.
func toPostgresTSQuery(query string) string {
	tokens := tokenizeQuery(query)
	var parts []string
	for _, tok := range tokens {
		field, rest, hasField := splitFieldPrefix(tok)
		if hasField {
			if _, known := ftsColumn[field]; known {
				tok = rest
			}
		}
		switch strings.ToUpper(tok) {
		case "AND":
			parts = append(parts, "&")
			continue
		case "OR":
			parts = append(parts, "|")
			continue
		case "NOT":
			parts = append(parts, "!")
			continue
		}
		tok = strings.Trim(tok, `"`)
		tok = strings.Join(strings.Fields(tok), " & ")
		if strings.HasSuffix(tok, "*") {
			tok = strings.TrimSuffix(tok, "*") + ":*"
		}
		if tok == "" {
			continue
		}
		parts = append(parts, tok)
	}
	// Default operator between bare terms is AND, matching FTS5's default.
	var out []string
	for i, p := range parts {
		if i > 0 {
			prevOp := out[len(out)-1] == "&" || out[len(out)-1] == "|" || out[len(out)-1] == "!"
			curOp := p == "&" || p == "|" || p == "!"
			if !prevOp && !curOp {
				out = append(out, "&")
			}
		}
		out = append(out, p)
	}
	return strings.Join(out, " ")
}
