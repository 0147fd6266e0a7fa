package rainflow

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Clean coerces mixed scalar input to a Signal rounded to one decimal
// place. Entries that do not parse as a finite number are dropped
// without error; blank spreadsheet cells are the common case.
func Clean(values []any) Signal {
	sig := make(Signal, 0, len(values))
	for _, v := range values {
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		sig = append(sig, RoundRange(f))
	}
	return sig
}

// CleanFloats is Clean for input that is already numeric.
func CleanFloats(values []float64) Signal {
	sig := make(Signal, 0, len(values))
	for _, f := range values {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		sig = append(sig, RoundRange(f))
	}
	return sig
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case json.Number:
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	case []byte:
		return parseFloat(string(x))
	case fmt.Stringer:
		return parseFloat(x.String())
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
