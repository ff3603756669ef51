package audit

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// maxExactDigits is the number of significant digits a float64 holds exactly
const maxExactDigits = 15

var numericString = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// isExactNumber reports whether s is a plain decimal that survives a round
// trip through float64
func isExactNumber(s string) bool {
	if !numericString.MatchString(s) {
		return false
	}
	digits := strings.TrimLeft(strings.NewReplacer("-", "", ".", "").Replace(s), "0")
	return len(digits) <= maxExactDigits
}

// EncodeMessage serializes a message for storage. It never fails: values
// that cannot be represented as JSON are stored as their fmt form, and
// strings holding plain decimal numbers are written as JSON numbers unless
// they carry more digits than a float64 keeps.
func EncodeMessage(m Message) []byte {
	if m == nil {
		return []byte("{}")
	}
	normalized := make(map[string]interface{}, len(m))
	for k, v := range m {
		normalized[k] = normalizeValue(v)
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// DecodeMessage parses a stored message. A payload that is not a JSON object
// is returned under the "raw" key instead of failing the read.
func DecodeMessage(data []byte) Message {
	if len(data) == 0 {
		return Message{}
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return Message{"raw": string(data)}
	}
	return m
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if isExactNumber(val) {
			return json.Number(val)
		}
		return val
	case Message:
		return normalizeMap(val)
	case map[string]interface{}:
		return normalizeMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case []string:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		if _, err := json.Marshal(val); err != nil {
			return fmt.Sprintf("%v", val)
		}
		return val
	}
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}
