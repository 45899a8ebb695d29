package toolargs

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxExactInt is the largest integer a float64 holds exactly.
const maxExactInt = 1 << 53

func toInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return parseIntText(n.String())
	case float64:
		return floatToInt(n, strconv.FormatFloat(n, 'f', -1, 64))
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		return parseIntText(n)
	case nil:
		return 0, fmt.Errorf("value is empty")
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func parseIntText(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return 0, fmt.Errorf("value is empty")
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return floatToInt(f, s)
}

func floatToInt(f float64, text string) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxExactInt {
		return 0, fmt.Errorf("%s is out of range", text)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s is not a whole number", text)
	}
	return int64(f), nil
}

func toFloat(v interface{}) (float64, error) {
	var f float64
	var err error
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimSpace(strings.TrimLeft(s, "$€£"))
		if s == "" {
			return 0, fmt.Errorf("value is empty")
		}
		f, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
	case nil:
		return 0, fmt.Errorf("value is empty")
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value is not finite")
	}
	return f, nil
}

// toText renders identifiers. ISBNs often arrive as bare numbers.
func toText(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	default:
		return "", false
	}
}

func canonKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer("-", "_", " ", "_").Replace(k)
}

// lookup returns the first non-null field among keys, matched case-insensitively.
func lookup(obj map[string]interface{}, keys ...string) (interface{}, string, bool) {
	for _, want := range keys {
		for k, v := range obj {
			if v != nil && canonKey(k) == want {
				return v, want, true
			}
		}
	}
	return nil, "", false
}
