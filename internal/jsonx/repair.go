package jsonx

import (
	"encoding/json"
	"strings"
)

// RepairTruncated attempts a best-effort recovery of a JSON object whose tail
// was cut off (token limits, dropped connections). It is intentionally not a
// JSON parser: the scope is recovering truncated model output, nothing more.
//
// Two strategies run in order; the first whose result parses is returned:
//  1. longest balanced prefix: scan from the first "{" tracking brace depth
//     and string state; if depth returns to zero, parse that prefix.
//  2. close-and-balance: cut back to the last structural boundary, terminate
//     a dangling string if the scan ended inside one, then append closing
//     "]" / "}" runes for every bracket still open.
func RepairTruncated(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	s := strings.TrimSpace(raw[start:])

	if prefix, ok := balancedPrefix(s); ok && json.Valid([]byte(prefix)) {
		return prefix, true
	}
	for _, candidate := range closeCandidates(s) {
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// balancedPrefix returns s up to and including the brace that closes the
// first "{", if the scan ever balances.
func balancedPrefix(s string) (string, bool) {
	depth := 0
	inStr := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
			if depth < 0 {
				return "", false
			}
		}
	}
	return "", false
}

// closeCandidates produces repair candidates for a truncated document, most
// conservative first.
func closeCandidates(s string) []string {
	var out []string

	// Candidate 1: close a dangling string at the cut point, then balance.
	if fixed, ok := closeAndBalance(s); ok {
		out = append(out, fixed)
	}

	// Candidate 2: drop the partial trailing member entirely. Cutting at the
	// last comma (or the opening bracket when there is none) discards a
	// half-emitted key or value that candidate 1 cannot legalize.
	for cut := strings.LastIndexByte(s, ','); cut > 0; cut = strings.LastIndexByte(s[:cut], ',') {
		if fixed, ok := closeAndBalance(s[:cut]); ok {
			out = append(out, fixed)
			break
		}
	}
	return out
}

// closeAndBalance terminates an unfinished string and appends closers for
// every open bracket, in reverse open order. Returns false when the scan is
// malformed beyond this trick (e.g. more closers than openers).
func closeAndBalance(s string) (string, bool) {
	var stack []byte
	inStr := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return "", false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return "", false
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) == 0 {
		return strings.TrimRight(s, ", \t\n"), true
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(s, ", \t\n"))
	if inStr {
		if escaped {
			// A lone backslash at the cut point would escape our quote.
			trimmed := b.String()
			b.Reset()
			b.WriteString(trimmed[:len(trimmed)-1])
		}
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i] {
		case '{':
			b.WriteByte('}')
		case '[':
			b.WriteByte(']')
		}
	}
	return b.String(), true
}
