// Package fields reconciles loosely-typed upstream JSON. Each logical field is
// described by an ordered list of candidate paths; the first candidate that is
// present and not null wins.
package fields

import (
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Doc is a parsed JSON document.
type Doc struct {
	root jsoniter.Any
}

// Parse wraps raw JSON. Invalid JSON yields a document where every lookup misses.
func Parse(raw []byte) Doc {
	return Doc{root: jsoniter.Get(raw)}
}

// IsObject reports whether the document root is a JSON object.
func (d Doc) IsObject() bool {
	return d.root != nil && d.root.ValueType() == jsoniter.ObjectValue
}

// Unwrap descends into the envelope key (e.g. "data") when the root carries
// an object under it, otherwise returns d unchanged.
func (d Doc) Unwrap(key string) Doc {
	if !d.IsObject() {
		return d
	}
	inner := d.root.Get(key)
	if inner.ValueType() == jsoniter.ObjectValue {
		return Doc{root: inner}
	}
	return d
}

// Sub returns the object found at the first matching candidate, if any.
func (d Doc) Sub(candidates ...string) (Doc, bool) {
	v, ok := d.lookup(candidates)
	if !ok || v.ValueType() != jsoniter.ObjectValue {
		return Doc{}, false
	}
	return Doc{root: v}, true
}

// String returns the first present, non-null, non-empty candidate rendered as
// a string. Numbers are formatted without exponent.
func (d Doc) String(candidates ...string) (string, bool) {
	for _, c := range candidates {
		v, ok := d.lookup([]string{c})
		if !ok {
			continue
		}
		switch v.ValueType() {
		case jsoniter.StringValue:
			s := strings.TrimSpace(v.ToString())
			if s != "" {
				return s, true
			}
		case jsoniter.NumberValue:
			return numberString(v), true
		case jsoniter.BoolValue:
			return strconv.FormatBool(v.ToBool()), true
		}
	}
	return "", false
}

// Int64 returns the first candidate that is an integral number or a string of
// digits.
func (d Doc) Int64(candidates ...string) (int64, bool) {
	for _, c := range candidates {
		v, ok := d.lookup([]string{c})
		if !ok {
			continue
		}
		switch v.ValueType() {
		case jsoniter.NumberValue:
			f := v.ToFloat64()
			if f == float64(int64(f)) {
				return int64(f), true
			}
		case jsoniter.StringValue:
			n, err := strconv.ParseInt(strings.TrimSpace(v.ToString()), 10, 64)
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// Float64 returns the first candidate that is a number or a numeric string.
func (d Doc) Float64(candidates ...string) (float64, bool) {
	for _, c := range candidates {
		v, ok := d.lookup([]string{c})
		if !ok {
			continue
		}
		switch v.ValueType() {
		case jsoniter.NumberValue:
			return v.ToFloat64(), true
		case jsoniter.StringValue:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.ToString()), 64)
			if err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Bool accepts JSON booleans as well as "true"/"false"/"1"/"0" strings and 0/1 numbers.
func (d Doc) Bool(candidates ...string) (bool, bool) {
	for _, c := range candidates {
		v, ok := d.lookup([]string{c})
		if !ok {
			continue
		}
		switch v.ValueType() {
		case jsoniter.BoolValue:
			return v.ToBool(), true
		case jsoniter.NumberValue:
			return v.ToFloat64() != 0, true
		case jsoniter.StringValue:
			b, err := strconv.ParseBool(strings.TrimSpace(v.ToString()))
			if err == nil {
				return b, true
			}
		}
	}
	return false, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

const dateLayout = "2006-01-02"

// Time parses the first candidate holding a timestamp. Strings without a zone
// are interpreted in loc. A date-only value is reported with dateOnly set so
// the caller can decide which end of the day it means. Numbers are treated as
// unix seconds, or milliseconds when they are too large to be seconds.
func (d Doc) Time(loc *time.Location, candidates ...string) (t time.Time, dateOnly bool, ok bool) {
	if loc == nil {
		loc = time.UTC
	}
	for _, c := range candidates {
		v, found := d.lookup([]string{c})
		if !found {
			continue
		}
		switch v.ValueType() {
		case jsoniter.NumberValue:
			n := v.ToInt64()
			if n > 1e12 {
				return time.UnixMilli(n).In(loc), false, true
			}
			return time.Unix(n, 0).In(loc), false, true
		case jsoniter.StringValue:
			s := strings.TrimSpace(v.ToString())
			if s == "" {
				continue
			}
			if parsed, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
				return parsed, true, true
			}
			for _, layout := range timeLayouts {
				if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
					return parsed, false, true
				}
			}
		}
	}
	return time.Time{}, false, false
}

// lookup walks dotted candidate paths ("user.fullName") and returns the first
// present, non-null value.
func (d Doc) lookup(candidates []string) (jsoniter.Any, bool) {
	if !d.IsObject() {
		return nil, false
	}
	for _, c := range candidates {
		path := strings.Split(c, ".")
		keys := make([]interface{}, len(path))
		for i, p := range path {
			keys[i] = p
		}
		v := d.root.Get(keys...)
		switch v.ValueType() {
		case jsoniter.InvalidValue, jsoniter.NilValue:
			continue
		}
		return v, true
	}
	return nil, false
}

func numberString(v jsoniter.Any) string {
	f := v.ToFloat64()
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
