package activity

import (
	"encoding/json"
	"math"
	"strconv"
)

// IsNumericString reports whether s is a non-empty run of ASCII digits.
// Signs, whitespace and decimal points are rejected.
func IsNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsValidCategory reports whether n is one of the defined categories.
func IsValidCategory(n int) bool {
	for _, c := range Categories {
		if int(c) == n {
			return true
		}
	}
	return false
}

// isEmpty reports whether a body field counts as empty: sent as null or as "".
func isEmpty[T any](o Optional[T]) bool {
	if o.IsNull() {
		return true
	}
	v, ok := o.Get()
	if !ok {
		return false
	}
	s, isString := any(v).(string)
	return isString && s == ""
}

// bodyCategory converts a decoded body value into a Category. Only integral
// numbers are accepted; a string such as "2" is not a category.
func bodyCategory(v any) (Category, bool) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		if x < math.MinInt32 || x > math.MaxInt32 {
			return 0, false
		}
		n = int(x)
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > math.MaxInt32 {
			return 0, false
		}
		n = int(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return bodyCategory(i)
		}
		// 2.0 and 2e0 are integral too.
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return bodyCategory(f)
	case Category:
		n = int(x)
	default:
		return 0, false
	}
	if !IsValidCategory(n) {
		return 0, false
	}
	return Category(n), true
}

// parseParam validates a raw query parameter with IsNumericString and
// converts it. Values too large for an int are reported as not numeric.
func parseParam(raw string) (int, bool) {
	if !IsNumericString(raw) {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
