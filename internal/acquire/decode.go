package acquire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rotisserie/eris"
)

// Tier identifies the decoding strategy that produced a value. Higher tiers
// mean lower confidence.
type Tier int

const (
	// TierStrict is a strict parse of the whole payload, or a payload the
	// provider already returned as structured JSON.
	TierStrict Tier = iota
	// TierFenced is a parse after stripping a code fence and control chars.
	TierFenced
	// TierBraceSpan is a parse of the first "{" to last "}" span.
	TierBraceSpan
	// TierRepaired is a parse after closing structures the output left open.
	TierRepaired
	// TierFieldPattern is record-by-record field extraction.
	TierFieldPattern
)

func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierFenced:
		return "fenced"
	case TierBraceSpan:
		return "brace_span"
	case TierRepaired:
		return "repaired"
	case TierFieldPattern:
		return "field_pattern"
	default:
		return fmt.Sprintf("tier_%d", int(t))
	}
}

// DefaultPreviewBytes bounds raw text carried in errors and diagnostics.
const DefaultPreviewBytes = 800

// Decoded is a value of the caller's type together with its provenance.
type Decoded[T any] struct {
	Value T
	Tier  Tier
	// Records is the number of records kept (1 for object shapes).
	Records int
	// Dropped counts record fragments the schema rejected.
	Dropped int
}

// TierError is the reason one tier failed.
type TierError struct {
	Tier Tier
	Err  error
}

// DecodeError is returned when no tier produced a valid value. It carries a
// bounded preview of the raw text, never the whole text.
type DecodeError struct {
	Schema  string
	Preview string
	Tiers   []TierError
}

func (e *DecodeError) Error() string {
	parts := make([]string, 0, len(e.Tiers))
	for _, te := range e.Tiers {
		parts = append(parts, fmt.Sprintf("tier %d (%s): %v", int(te.Tier), te.Tier, te.Err))
	}
	return fmt.Sprintf("decode %s: no tier produced a valid value: %s", e.Schema, strings.Join(parts, "; "))
}

// Last returns the error of the final tier attempted.
func (e *DecodeError) Last() error {
	if len(e.Tiers) == 0 {
		return nil
	}
	return e.Tiers[len(e.Tiers)-1].Err
}

// Decode runs the tier cascade over p and returns the first value that s
// accepts. It is a pure function of its inputs.
func Decode[T any](p Payload, s Schema) (Decoded[T], error) {
	return decodeWithPreview[T](p, s, DefaultPreviewBytes)
}

func decodeWithPreview[T any](p Payload, s Schema, previewBytes int) (Decoded[T], error) {
	derr := &DecodeError{Schema: s.Name}
	fail := func(t Tier, err error) {
		derr.Tiers = append(derr.Tiers, TierError{Tier: t, Err: err})
	}

	if len(p.Structured) > 0 {
		n, err := parseNormalized(string(p.Structured), s, true)
		if err == nil {
			return finish[T](n, TierStrict)
		}
		fail(TierStrict, err)
		derr.Preview = Preview(string(p.Structured), previewBytes)
		return Decoded[T]{}, derr
	}

	text := p.Text
	derr.Preview = Preview(text, previewBytes)
	if strings.TrimSpace(text) == "" {
		fail(TierStrict, eris.New("empty payload"))
		return Decoded[T]{}, derr
	}

	n, err := parseNormalized(text, s, true)
	if err == nil {
		return finish[T](n, TierStrict)
	}
	fail(TierStrict, err)

	cleaned := stripFence(text)
	n, err = parseNormalized(cleaned, s, true)
	if err == nil {
		return finish[T](n, TierFenced)
	}
	fail(TierFenced, err)

	// A balanced span inside cut-off output is almost always a single inner
	// record, so truncated payloads go straight to repair.
	switch span, ok := braceSpan(cleaned); {
	case p.Truncated:
		fail(TierBraceSpan, eris.New("skipped: payload truncated"))
	case !ok:
		fail(TierBraceSpan, eris.New("no brace-delimited span"))
	default:
		n, err = parseNormalized(span, s, true)
		if err == nil {
			return finish[T](n, TierBraceSpan)
		}
		fail(TierBraceSpan, err)
	}

	n, err = repairTruncated(cleaned, s)
	if err == nil {
		return finish[T](n, TierRepaired)
	}
	fail(TierRepaired, err)

	n, err = extractFields(cleaned, s)
	if err == nil {
		return finish[T](n, TierFieldPattern)
	}
	fail(TierFieldPattern, err)

	return Decoded[T]{}, derr
}

func parseNormalized(text string, s Schema, strict bool) (normalized, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return normalized{}, eris.Wrap(err, "parse")
	}
	return s.normalize(v, strict)
}

func finish[T any](n normalized, tier Tier) (Decoded[T], error) {
	b, err := json.Marshal(n.root)
	if err != nil {
		return Decoded[T]{}, eris.Wrap(err, "re-encode normalized value")
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return Decoded[T]{}, eris.Wrap(err, "decode into target type")
	}
	return Decoded[T]{Value: out, Tier: tier, Records: n.records, Dropped: n.dropped}, nil
}

// stripFence removes control characters (keeping \n, \r, \t), surrounding
// whitespace and one wrapping code fence with an optional language tag.
func stripFence(s string) string {
	s = strings.TrimSpace(stripControl(s))
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = s[3:]

	tag := 0
	for tag < len(s) && isTagChar(s[tag]) {
		tag++
	}
	if tag == len(s) || strings.ContainsRune(" \t\r\n{[", rune(s[tag])) {
		s = s[tag:]
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isTagChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n', r == '\r', r == '\t':
			return r
		case r < 0x20, r == 0x7f:
			return -1
		default:
			return r
		}
	}, s)
}

func braceSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// Preview returns at most n bytes of s, cut on a rune boundary.
func Preview(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// repairTruncated closes structures left open by a cut-off response.
//
// For records shapes it walks back through "}" positions that close a
// record directly inside an array (or the root), trims there, and appends
// the closing tokens still owed. The first candidate that validates wins, so
// only complete records survive. Object shapes go through jsonrepair.
func repairTruncated(s string, schema Schema) (normalized, error) {
	if schema.Records == nil {
		repaired, err := jsonrepair.JSONRepair(s)
		if err != nil {
			return normalized{}, eris.Wrap(err, "jsonrepair")
		}
		return parseNormalized(repaired, schema, true)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return normalized{}, eris.New("no opening bracket")
	}
	s = s[start:]

	boundaries := recordBoundaries(s)
	if len(boundaries) == 0 {
		return normalized{}, eris.New("no complete record boundary")
	}

	var lastErr error
	for i := len(boundaries) - 1; i >= 0; i-- {
		b := boundaries[i]
		candidate := s[:b.end+1] + b.closers
		n, err := parseNormalized(candidate, schema, false)
		switch {
		case err != nil:
			lastErr = err
		case n.records == 0 && n.dropped > 0:
			lastErr = eris.Errorf("%s: repaired span has no valid record (%d rejected)", schema.Name, n.dropped)
		default:
			return n, nil
		}
	}
	return normalized{}, eris.Wrap(lastErr, "no repaired candidate validated")
}

type boundary struct {
	end     int
	closers string
}

// recordBoundaries scans s string-aware and returns every "}" that leaves
// the enclosing container an array (a completed array element) or closes
// the root, along with the tokens needed to close what is still open.
func recordBoundaries(s string) []boundary {
	var (
		stack    []byte
		out      []boundary
		inString bool
		escaped  bool
	)
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
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 || stack[len(stack)-1] == '[' {
				out = append(out, boundary{end: i, closers: closersFor(stack)})
			}
		}
	}
	return out
}

func closersFor(stack []byte) string {
	var buf bytes.Buffer
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			buf.WriteByte('}')
		} else {
			buf.WriteByte(']')
		}
	}
	return buf.String()
}
