// Package repair recovers a JSON object from free-form model output.
//
// Recovery runs an ordered list of stages. Stages are cumulative: stage k
// sees the output of stages 0..k-1, and a parse is attempted after each one.
// The first stage whose output parses as a JSON object wins.
package repair

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrNoObject is returned when no stage yields a JSON object.
var ErrNoObject = errors.New("repair: no JSON object in model output")

const (
	// RawLimit caps the raw reply persisted as a diagnostic trace.
	RawLimit = 4000
	// SnippetLimit caps the reply excerpt shown to the operator.
	SnippetLimit = 800
)

// Stage is one text transformation.
type Stage struct {
	Name  string
	Apply func(string) string
}

// Stages is the recovery order.
var Stages = []Stage{
	{Name: "raw", Apply: strings.TrimSpace},
	{Name: "normalize", Apply: normalize},
	{Name: "fence", Apply: stripFence},
	{Name: "span", Apply: outerSpan},
	{Name: "comments", Apply: stripComments},
	{Name: "trailing_commas", Apply: stripTrailingCommas},
	{Name: "quotes", Apply: straightenQuotes},
}

// Result is a recovered object and the name of the stage that produced it.
type Result struct {
	Object map[string]any
	Stage  string
	Index  int
}

// Parse runs the stages over text.
func Parse(text string) (Result, error) {
	t := text
	for i, st := range Stages {
		t = st.Apply(t)
		if obj, ok := parseObject(t); ok {
			return Result{Object: obj, Stage: st.Name, Index: i}, nil
		}
	}
	return Result{}, ErrNoObject
}

// Object is Parse without the stage bookkeeping.
func Object(text string) (map[string]any, error) {
	r, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return r.Object, nil
}

func parseObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimPrefix(strings.TrimSpace(s), "\ufeff")
	return strings.TrimSpace(s)
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func outerSpan(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return strings.TrimSpace(s[start : end+1])
}

// scan walks s and calls visit for every byte outside string literals.
// visit returns how many bytes it consumed and what to emit in their place;
// consumed == 0 copies the byte through.
func scan(s string, visit func(s string, i int) (consumed int, emit string)) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); {
		c := s[i]
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
			i++
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			i++
			continue
		}
		if n, emit := visit(s, i); n > 0 {
			b.WriteString(emit)
			i += n
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func stripComments(s string) string {
	return scan(s, func(s string, i int) (int, string) {
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, "//"):
			if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
				return nl, ""
			}
			return len(rest), ""
		case strings.HasPrefix(rest, "/*"):
			if end := strings.Index(rest[2:], "*/"); end >= 0 {
				return end + 4, ""
			}
			return len(rest), ""
		}
		return 0, ""
	})
}

func stripTrailingCommas(s string) string {
	return scan(s, func(s string, i int) (int, string) {
		if s[i] != ',' {
			return 0, ""
		}
		j := i + 1
		for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\t' || s[j] == '\r' || s[j] == ',') {
			j++
		}
		if j < len(s) && (s[j] == '}' || s[j] == ']') {
			return 1, ""
		}
		return 0, ""
	})
}

var quoteReplacer = strings.NewReplacer("«", `"`, "»", `"`, "“", `"`, "”", `"`, "„", `"`)

func straightenQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Snippet is the operator-facing excerpt of a reply: SnippetLimit runes plus
// an ellipsis when longer.
func Snippet(s string) string {
	if utf8.RuneCountInString(s) <= SnippetLimit {
		return s
	}
	return Truncate(s, SnippetLimit) + "…"
}
