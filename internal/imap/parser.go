package imap

import "strings"

// parseCommandLine splits a tagged IMAP command line into its tag,
// command verb, and remaining arguments: "a1 LOGIN foo bar" -> ("a1",
// "LOGIN", "foo bar").
func parseCommandLine(line string) (tag, cmd, args string) {
	rest := line
	tag, rest = splitFirst(rest)
	if tag == "" {
		return "", "", ""
	}
	cmd, args = splitFirst(rest)
	return tag, cmd, args
}

// splitFirst splits s on its first run of whitespace, returning the
// leading token and everything after it (already trimmed).
func splitFirst(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}

// parseLoginArgs parses LOGIN's two arguments, each optionally
// double-quoted and possibly containing spaces when quoted.
func parseLoginArgs(args string) (user, pass string, ok bool) {
	tokens := tokenize(args)
	if len(tokens) < 2 {
		return "", "", false
	}
	return tokens[0], tokens[1], true
}

// tokenize splits args into whitespace-separated tokens, honoring
// double-quoted substrings as single tokens.
func tokenize(args string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range args {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case (r == ' ' || r == '\t') && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// unquote strips a single pair of surrounding double quotes, if present.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// parseSequenceSet expands an IMAP sequence set ("1", "1:5", "1,3,5",
// "*", "1:*") into the 1-based indices it denotes, clamped to
// [1, total]. "*" means total (the highest sequence number/UID present).
func parseSequenceSet(set string, total int) []int {
	var result []int
	for _, part := range strings.Split(set, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == "*" {
			if total > 0 {
				result = append(result, total)
			}
			continue
		}
		if strings.Contains(part, ":") {
			bounds := strings.SplitN(part, ":", 2)
			start := resolveSeqBound(bounds[0], total, 1)
			end := resolveSeqBound(bounds[1], total, total)
			if start > end {
				start, end = end, start
			}
			for i := start; i <= end; i++ {
				if i >= 1 && i <= total {
					result = append(result, i)
				}
			}
			continue
		}
		if n := parseUint(part); n >= 1 && n <= total {
			result = append(result, n)
		}
	}
	return result
}

func resolveSeqBound(token string, total, fallback int) int {
	if token == "*" {
		return total
	}
	if n := parseUint(token); n > 0 {
		return n
	}
	return fallback
}

func parseUint(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
