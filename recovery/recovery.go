// Package recovery repairs syntactically invalid JSON emitted by an LLM
// into a usable payload. Strict parsing is attempted first; on failure a
// fixed sequence of repair strategies is applied, each starting from the
// original text so one bad repair cannot compound into another.
package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Result reports the outcome of parsing one raw LLM response. All failures
// are returned as values; Parse never panics past its boundary.
type Result struct {
	// Data is the valid JSON payload, nil when parsing failed entirely.
	Data json.RawMessage
	// Recovered is true when Data was produced by a repair strategy
	// rather than a strict parse.
	Recovered bool
	// Strategy names the repair strategy that succeeded, empty otherwise.
	Strategy string
	// Err describes the failure when Data is nil.
	Err error
}

// Strategy names reported in Result.Strategy.
const (
	StrategyUnterminatedString = "unterminated-string"
	StrategyBalanceBrackets    = "balance-brackets"
	StrategyTrailingComma      = "trailing-comma"
	StrategyArrayPrefix        = "array-prefix"
)

var errNoPayload = errors.New("no JSON payload found in response")

// codeBlockRe strips markdown code fences from LLM output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// Parse extracts and validates the JSON payload of raw. Markdown fences and
// surrounding prose are stripped before any parse attempt; this pre-step is
// not a repair strategy and applies to all of them.
func Parse(raw string) Result {
	payload, ok := extractPayload(raw)
	if !ok {
		return Result{Err: errNoPayload}
	}

	if json.Valid([]byte(payload)) {
		return Result{Data: json.RawMessage(payload)}
	}

	strategies := []struct {
		name   string
		repair func(string) (string, bool)
	}{
		{StrategyUnterminatedString, repairUnterminatedString},
		{StrategyBalanceBrackets, balanceBrackets},
		{StrategyTrailingComma, stripTrailingCommas},
		{StrategyArrayPrefix, extractArrayPrefix},
	}

	for _, s := range strategies {
		candidate, ok := s.repair(payload)
		if !ok {
			continue
		}
		if json.Valid([]byte(candidate)) {
			return Result{
				Data:      json.RawMessage(candidate),
				Recovered: true,
				Strategy:  s.name,
			}
		}
	}

	return Result{Err: fmt.Errorf("all repair strategies exhausted for %d-byte payload", len(payload))}
}

// extractPayload isolates the JSON object or array inside raw, handling
// common LLM quirks: markdown code blocks and prose before/after the JSON.
func extractPayload(raw string) (string, bool) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		return raw, true
	}

	objStart := strings.IndexAny(raw, "{[")
	if objStart < 0 {
		return "", false
	}
	var end int
	if raw[objStart] == '{' {
		end = strings.LastIndex(raw, "}")
	} else {
		end = strings.LastIndex(raw, "]")
	}
	if end > objStart {
		return raw[objStart : end+1], true
	}
	// Truncated tail with no closer at all; let the strategies work on it.
	return raw[objStart:], true
}

// scanState walks the payload tracking string/escape state and the stack of
// open containers. It is shared by the repair strategies.
type scanState struct {
	inString bool
	stack    []byte // open '{' and '[' in nesting order
}

func scan(s string) scanState {
	var st scanState
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				st.inString = false
			}
			continue
		}
		switch c {
		case '"':
			st.inString = true
		case '{', '[':
			st.stack = append(st.stack, c)
		case '}':
			if n := len(st.stack); n > 0 && st.stack[n-1] == '{' {
				st.stack = st.stack[:n-1]
			}
		case ']':
			if n := len(st.stack); n > 0 && st.stack[n-1] == '[' {
				st.stack = st.stack[:n-1]
			}
		}
	}
	return st
}

// closersFor returns the closing runs for a container stack, innermost first.
func closersFor(stack []byte) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// repairUnterminatedString closes a string literal left open at the point
// of truncation. A response cut mid-string necessarily also truncates the
// string's enclosing containers, so this strategy is documented to compose
// with bracket balancing: the closing quote is followed by the missing
// closers.
func repairUnterminatedString(payload string) (string, bool) {
	st := scan(payload)
	if !st.inString {
		return "", false
	}
	return payload + `"` + closersFor(st.stack), true
}

// balanceBrackets appends the closing brackets and braces missing from the
// tail of the payload, in correct nesting order. It refuses payloads that
// end inside a string literal (that is the unterminated-string strategy's
// case) or that close containers that were never opened.
func balanceBrackets(payload string) (string, bool) {
	st := scan(payload)
	if st.inString || len(st.stack) == 0 {
		return "", false
	}
	return payload + closersFor(st.stack), true
}

// stripTrailingCommas removes commas that directly precede a closing
// bracket or brace, outside string literals.
func stripTrailingCommas(payload string) (string, bool) {
	var b strings.Builder
	b.Grow(len(payload))
	inString, escaped, changed := false, false, false

	for i := 0; i < len(payload); i++ {
		c := payload[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(payload) && isWS(payload[j]) {
				j++
			}
			if j < len(payload) && (payload[j] == '}' || payload[j] == ']') {
				changed = true
				continue // drop the comma
			}
		}
		b.WriteByte(c)
	}

	if !changed {
		return "", false
	}
	return b.String(), true
}

// extractArrayPrefix recovers the longest prefix of complete, individually
// parseable objects from the first array in the payload, discarding a
// truncated tail object. When the array is the value of a key (the usual
// {"elements": [...]} shape) the key is preserved in the rebuilt payload.
func extractArrayPrefix(payload string) (string, bool) {
	arrStart := indexOutsideStrings(payload, '[')
	if arrStart < 0 {
		return "", false
	}

	var objects []string
	i := arrStart + 1
	for i < len(payload) {
		for i < len(payload) && (isWS(payload[i]) || payload[i] == ',') {
			i++
		}
		if i >= len(payload) || payload[i] == ']' {
			break
		}
		if payload[i] != '{' {
			break
		}
		end := matchObject(payload, i)
		if end < 0 {
			break // truncated tail object, discard
		}
		obj := payload[i : end+1]
		if json.Valid([]byte(obj)) {
			objects = append(objects, obj)
		}
		i = end + 1
	}

	if len(objects) == 0 {
		return "", false
	}

	arr := "[" + strings.Join(objects, ",") + "]"
	if key, ok := arrayKey(payload[:arrStart]); ok {
		return `{"` + key + `":` + arr + `}`, true
	}
	return arr, true
}

// matchObject returns the index of the '}' closing the object opening at
// start, or -1 if the object is truncated.
func matchObject(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// arrayKeyRe matches a `"key":` immediately preceding the array opener.
var arrayKeyRe = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"\s*:\s*$`)

func arrayKey(prefix string) (string, bool) {
	m := arrayKeyRe.FindStringSubmatch(prefix)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// indexOutsideStrings finds the first occurrence of target outside string
// literals.
func indexOutsideStrings(s string, target byte) int {
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		if c == target {
			return i
		}
	}
	return -1
}

func isWS(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
