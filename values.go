package nodetracer

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"unicode/utf8"
)

const (
	nonSerializableSuffix = " [NON-SERIALIZABLE]"
	redactedPlaceholder   = "[REDACTED]"
)

// sanitizeValue ensures a value can be represented in the wire format.
// Anything json.Marshal rejects is replaced with a string placeholder
// so that recording never fails for ordinary data.
func sanitizeValue(v any) any {
	switch f := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v
	case float32:
		if !finite(float64(f)) {
			return fmt.Sprintf("%v%s", v, nonSerializableSuffix)
		}
		return v
	case float64:
		if !finite(f) {
			return fmt.Sprintf("%v%s", v, nonSerializableSuffix)
		}
		return v
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v%s", v, nonSerializableSuffix)
	}
	return v
}

// finite reports whether f is representable in the wire format. JSON
// has no encoding for NaN or the infinities.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// truncateValue caps string values at limit characters. Non-string
// values and a non-positive limit pass through untouched. The cut is
// made on a rune boundary so truncation never produces invalid UTF-8.
func truncateValue(v any, limit int) any {
	if limit <= 0 {
		return v
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	n := utf8.RuneCountInString(s)
	if n <= limit {
		return v
	}
	return fmt.Sprintf("%s... [TRUNCATED: original_size=%d]", firstRunes(s, limit), n)
}

// firstRunes returns the prefix of s holding at most n runes.
func firstRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// prepareFields runs the recording pipeline over a field bag:
// redaction, serializability, then truncation.
func prepareFields(fields Fields, limit int, redact []*regexp.Regexp) Fields {
	if len(fields) == 0 {
		return nil
	}
	out := make(Fields, len(fields))
	for k, v := range fields {
		if keyRedacted(k, redact) {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = truncateValue(sanitizeValue(v), limit)
	}
	return out
}

func keyRedacted(key string, redact []*regexp.Regexp) bool {
	for _, re := range redact {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}
