// Package extract recovers typed records from untrusted generative-text
// output that is expected to contain a JSON object. It is pure: no I/O, no
// provider calls.
//
// Recovery runs an ordered chain of strategies and stops at the first one
// that succeeds:
//
//  1. strip markdown fences, take the outermost {...} span, parse directly
//  2. conservatively sanitize the span and parse again
//  3. recover each expected top-level field independently by pattern
//     matching, assembling a best-effort partial record
//  4. fall back to the caller's safe-default record, if one is declared
//
// A strategy failure never escapes; it falls through to the next strategy.
// When every strategy is exhausted the caller gets a *ParseError.
package extract

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Strategy identifies which recovery strategy produced a result.
type Strategy string

const (
	StrategyDirect    Strategy = "direct"
	StrategySanitized Strategy = "sanitized"
	StrategyFields    Strategy = "field_recovery"
	StrategyDefault   Strategy = "safe_default"
)

// Confidence levels reported per strategy. Full structure parsed cleanly
// (directly or after sanitization) is trusted; field recovery and the safe
// default are progressively less so.
const (
	ConfidenceFull     = 1.0
	ConfidenceReduced  = 0.5
	ConfidenceFallback = 0.2
)

// ParseError reports that every recovery strategy failed for input that the
// caller requires full structure from.
type ParseError struct {
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("structured extraction failed: %s", e.Reason)
	}
	return fmt.Sprintf("structured extraction failed: %s (near %q)", e.Reason, e.Snippet)
}

// FieldKind is the value shape expected for a recoverable top-level field.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldNumber
	FieldStringArray
)

// Field names one expected top-level key for field-level recovery.
type Field struct {
	Name string
	Kind FieldKind
}

// Schema describes what the caller expects from the raw text.
type Schema struct {
	// Fields enables strategy 3. Empty means field recovery is skipped.
	Fields []Field
	// Default, when non-nil, supplies the strategy-4 safe-default record.
	// Callers with no sensible default leave it nil and receive a
	// *ParseError instead.
	Default func() any
}

// Result reports how a successful decode was obtained.
type Result struct {
	Strategy   Strategy
	Confidence float64
}

// Decode recovers a JSON object from raw into out (a non-nil pointer).
func Decode(raw string, out any, schema Schema) (Result, error) {
	span := objectSpan(stripFences(raw))

	if span != "" {
		if err := tryUnmarshal([]byte(span), out); err == nil {
			return Result{Strategy: StrategyDirect, Confidence: ConfidenceFull}, nil
		}
		if err := tryUnmarshal([]byte(sanitize(span)), out); err == nil {
			return Result{Strategy: StrategySanitized, Confidence: ConfidenceFull}, nil
		}
	}

	if len(schema.Fields) > 0 {
		if rec, ok := recoverFields(raw, schema.Fields); ok {
			data, err := json.Marshal(rec)
			if err == nil && tryUnmarshal(data, out) == nil {
				return Result{Strategy: StrategyFields, Confidence: ConfidenceReduced}, nil
			}
		}
	}

	if schema.Default != nil {
		data, err := json.Marshal(schema.Default())
		if err == nil && tryUnmarshal(data, out) == nil {
			return Result{Strategy: StrategyDefault, Confidence: ConfidenceFallback}, nil
		}
	}

	return Result{}, &ParseError{
		Reason:  "no JSON object recovered from response",
		Snippet: snippet(raw),
	}
}

// tryUnmarshal parses data into a fresh value of out's type and copies it
// over only on full success, so a failed strategy cannot leave a partially
// populated record behind.
func tryUnmarshal(data []byte, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("out must be a non-nil pointer")
	}
	fresh := reflect.New(rv.Type().Elem())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}

// stripFences removes markdown code-fence wrappers around the payload.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.Contains(s, "```") {
		return s
	}
	if start := strings.Index(s, "```"); start != -1 {
		rest := s[start+3:]
		// Drop an optional language tag like "json".
		if nl := strings.IndexByte(rest, '\n'); nl != -1 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return s
}

// objectSpan returns the outermost {...} span, or "" when no balanced
// object is present.
func objectSpan(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// sanitize applies conservative repairs that cover the common ways models
// break JSON: raw control characters inside string values, doubled escape
// sequences, and trailing commas.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteByte(c)
			case c == '\\':
				escaped = true
				b.WriteByte(c)
			case c == '"':
				inString = false
				b.WriteByte(c)
			case c == '\n':
				b.WriteString(`\n`)
			case c == '\t':
				b.WriteString(`\t`)
			case c == '\r':
				b.WriteString(`\r`)
			case c < 0x20:
				// Other control characters carry no content; drop them.
			default:
				b.WriteByte(c)
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	out := b.String()
	// Collapse doubled escapes the model emitted as literal text.
	for _, esc := range []string{"n", "t", "r", `"`} {
		out = strings.ReplaceAll(out, `\\`+esc, `\`+esc)
	}
	return trailingCommaRe.ReplaceAllString(out, "$1")
}

// recoverFields extracts each expected key independently. At least one
// recovered field is required for the strategy to count as a success.
func recoverFields(raw string, fields []Field) (map[string]any, bool) {
	rec := make(map[string]any)
	for _, f := range fields {
		switch f.Kind {
		case FieldString:
			if v, ok := matchString(raw, f.Name); ok {
				rec[f.Name] = v
			}
		case FieldNumber:
			if v, ok := matchNumber(raw, f.Name); ok {
				rec[f.Name] = v
			}
		case FieldStringArray:
			if v, ok := matchStringArray(raw, f.Name); ok {
				rec[f.Name] = v
			}
		}
	}
	return rec, len(rec) > 0
}

func keyPattern(name string) string {
	return `"` + regexp.QuoteMeta(name) + `"\s*:\s*`
}

func matchString(raw, name string) (string, bool) {
	re := regexp.MustCompile(keyPattern(name) + `"((?:[^"\\]|\\.)*)"`)
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	var v string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &v); err != nil {
		return m[1], true
	}
	return v, true
}

func matchNumber(raw, name string) (float64, bool) {
	re := regexp.MustCompile(keyPattern(name) + `(-?\d+(?:\.\d+)?)`)
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var quotedItemRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)

func matchStringArray(raw, name string) ([]string, bool) {
	re := regexp.MustCompile(`(?s)` + keyPattern(name) + `\[(.*?)\]`)
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	var items []string
	for _, im := range quotedItemRe.FindAllStringSubmatch(m[1], -1) {
		var v string
		if err := json.Unmarshal([]byte(`"`+im[1]+`"`), &v); err != nil {
			v = im[1]
		}
		items = append(items, v)
	}
	return items, items != nil
}

func snippet(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
