// Package normalize coerces loosely typed upstream values into finite
// numbers and trimmed strings. Every helper is pure and returns an invalid
// null value instead of failing.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"
)

// AsFiniteNumber returns v as a valid float only when it is a finite
// numeric value. Numeric strings are rejected.
func AsFiniteNumber(v any) null.Float {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case null.Float:
		return Finite(x)
	default:
		return null.Float{}
	}
	return Finite(null.FloatFrom(f))
}

// ToNumber is AsFiniteNumber plus trimmed numeric strings, json.Number and
// {"raw": x} wrappers as returned by the quoteSummary endpoint.
func ToNumber(v any) null.Float {
	switch x := v.(type) {
	case string:
		return parseNumber(x)
	case json.Number:
		return parseNumber(string(x))
	case map[string]any:
		if raw, ok := x["raw"]; ok {
			return ToNumber(raw)
		}
		return null.Float{}
	}
	return AsFiniteNumber(v)
}

func parseNumber(s string) null.Float {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}
	}
	return Finite(null.FloatFrom(f))
}

// Finite drops NaN and infinities.
func Finite(f null.Float) null.Float {
	if !f.Valid || math.IsNaN(f.Float64) || math.IsInf(f.Float64, 0) {
		return null.Float{}
	}
	return f
}

// Int returns a whole number of seconds from any numeric input.
func Int(v any) null.Int {
	f := ToNumber(v)
	if !f.Valid {
		return null.Int{}
	}
	return null.IntFrom(int64(f.Float64))
}

// String trims v and rejects non-strings and empty results.
func String(v any) null.String {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case null.String:
		if !x.Valid {
			return null.String{}
		}
		s = x.String
	default:
		return null.String{}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

// Name is String that also rejects a value echoing the symbol it would be
// attached to, compared case-insensitively.
func Name(v any, symbol string) null.String {
	s := String(v)
	if !s.Valid {
		return s
	}
	if sym := Symbol(symbol); sym != "" && strings.ToUpper(s.String) == sym {
		return null.String{}
	}
	return s
}

// Symbol trims and upper-cases a ticker.
func Symbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// UniqueSymbols normalizes symbols, dropping empties and duplicates while
// keeping first-seen order.
func UniqueSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = Symbol(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// PE computes price / eps. EPS must be strictly positive and the result
// finite and positive, otherwise the ratio is discarded.
func PE(price, eps null.Float) null.Float {
	price, eps = Finite(price), Finite(eps)
	if !price.Valid || !eps.Valid || eps.Float64 <= 0 || price.Float64 <= 0 {
		return null.Float{}
	}
	pe := Finite(null.FloatFrom(price.Float64 / eps.Float64))
	if !pe.Valid || pe.Float64 <= 0 {
		return null.Float{}
	}
	return pe
}

// PreferPE keeps a reported positive P/E, otherwise derives one from
// price and EPS.
func PreferPE(reported, price, eps null.Float) null.Float {
	if ValidPE(reported) {
		return reported
	}
	return PE(price, eps)
}

// ValidPE reports whether pe is finite and positive.
func ValidPE(pe null.Float) bool {
	pe = Finite(pe)
	return pe.Valid && pe.Float64 > 0
}

// ValidEPS reports whether eps is finite and non-zero.
func ValidEPS(eps null.Float) bool {
	eps = Finite(eps)
	return eps.Valid && eps.Float64 != 0
}

// PreferFloat returns the first valid finite value.
func PreferFloat(values ...null.Float) null.Float {
	for _, v := range values {
		if v = Finite(v); v.Valid {
			return v
		}
	}
	return null.Float{}
}

// PreferString returns the first valid non-empty value.
func PreferString(values ...null.String) null.String {
	for _, v := range values {
		if v = String(v); v.Valid {
			return v
		}
	}
	return null.String{}
}
