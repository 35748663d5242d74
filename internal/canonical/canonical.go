// Package canonical produces the unique byte representation of a value used
// for hashing in the deterministic commitment layer.
//
// The canonical form is UTF-8 JSON with object keys sorted lexicographically
// by code point, compact separators, strict string escaping, and RFC 3339 UTC
// timestamps truncated to microseconds. Semantically equal inputs always
// produce identical bytes regardless of key insertion order.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// timestampRe matches RFC 3339 timestamps with optional fractional seconds
// and either a Z suffix or a numeric offset. Strings matching this pattern
// are normalized to UTC and truncated to microseconds.
var timestampRe = regexp.MustCompile(
	`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)

// Marshal returns the canonical byte encoding of v.
//
// v may be any JSON-marshalable Go value, including the domain structs.
// Values containing NaN or infinities fail deterministically with
// ErrInvalidValue.
func Marshal(v any) ([]byte, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := appendValue(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Timestamp formats t in the canonical timestamp form: RFC 3339, UTC,
// Z suffix, truncated to microseconds.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format("2006-01-02T15:04:05.999999Z07:00")
}

// toTree converts v into a generic JSON value tree via a marshal/unmarshal
// round trip, preserving number literals with json.Number.
func toTree(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		// encoding/json rejects NaN and infinities with an
		// UnsupportedValueError; surface those as ErrInvalidValue.
		var unsupported *json.UnsupportedValueError
		if ok := asUnsupported(err, &unsupported); ok {
			return nil, fmt.Errorf("%w: %s", wardenerrors.ErrInvalidValue, unsupported.Str)
		}
		return nil, fmt.Errorf("%w: %v", wardenerrors.ErrInvalidValue, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: %v", wardenerrors.ErrInvalidValue, err)
	}
	return tree, nil
}

// asUnsupported unwraps an UnsupportedValueError from err.
func asUnsupported(err error, target **json.UnsupportedValueError) bool {
	for err != nil {
		if e, ok := err.(*json.UnsupportedValueError); ok { //nolint:errorlint // manual unwrap loop
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error }) //nolint:errorlint // manual unwrap loop
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// appendValue writes the canonical encoding of tree to buf.
// Object keys are sorted by code point; arrays preserve input order.
func appendValue(buf *bytes.Buffer, tree any) error {
	switch v := tree.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		s := v.String()
		if strings.ContainsAny(s, "nNiI") {
			// NaN / Infinity literals never appear in valid JSON; reject
			// defensively if one slips through.
			return fmt.Errorf("%w: %s", wardenerrors.ErrInvalidValue, s)
		}
		buf.WriteString(s)
	case string:
		appendString(buf, normalizeTimestamp(v))
	case []any:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendString(buf, k)
			buf.WriteByte(':')
			if err := appendValue(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: unsupported type %T", wardenerrors.ErrInvalidValue, tree)
	}
	return nil
}

// normalizeTimestamp rewrites RFC 3339 timestamp strings to the canonical
// UTC/Z microsecond form. Non-timestamp strings pass through unchanged.
func normalizeTimestamp(s string) string {
	if !timestampRe.MatchString(s) {
		return s
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return Timestamp(t)
}

// appendString writes s as a strict JSON string: the short escapes for
// quote, backslash, and the common control characters, \u00XX for the rest
// of the control range, and raw UTF-8 for everything else.
func appendString(buf *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		b := s[i]
		if b < utf8.RuneSelf {
			switch {
			case b == '"':
				buf.WriteString(`\"`)
			case b == '\\':
				buf.WriteString(`\\`)
			case b == '\n':
				buf.WriteString(`\n`)
			case b == '\r':
				buf.WriteString(`\r`)
			case b == '\t':
				buf.WriteString(`\t`)
			case b == '\b':
				buf.WriteString(`\b`)
			case b == '\f':
				buf.WriteString(`\f`)
			case b < 0x20:
				buf.WriteString(`\u00`)
				buf.WriteByte(hex[b>>4])
				buf.WriteByte(hex[b&0xF])
			default:
				buf.WriteByte(b)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			// Invalid UTF-8 byte; encode as replacement character so the
			// output stays valid UTF-8 and deterministic.
			buf.WriteString("�")
			i++
			continue
		}
		buf.WriteString(s[i : i+size])
		i += size
	}
	buf.WriteByte('"')
}
