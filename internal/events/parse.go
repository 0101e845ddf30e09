package events

import (
	"math"
	"strconv"
	"strings"
)

// ParseLine turns one analyzer output line of the form
// "<time>\t<type>\t<label>\t<duration>" into an Event.
//
// Nothing is rejected: numbers that are missing or do not parse become NaN
// and missing strings stay empty. Created/Updated are left for the coalescer.
func ParseLine(line string) Event {
	parts := strings.Split(line, "\t")
	field := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	return Event{
		Time:     parseFloat(field(0)),
		Type:     field(1),
		Label:    field(2),
		Duration: parseFloat(field(3)),
	}
}

// parseFloat follows browser parseFloat: leading whitespace is skipped and
// the longest decimal prefix wins ("1.5s" -> 1.5, "1_000" -> 1). Only
// "Infinity" is accepted as a word; "inf" and "nan" give NaN.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	n := numericPrefix(s)
	if n == 0 {
		return math.NaN()
	}
	prefix := s[:n]
	switch strings.TrimLeft(prefix, "+-") {
	case "Infinity":
		if prefix[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	// Out-of-range values come back as ±Inf with ErrRange, like JS.
	f, _ := strconv.ParseFloat(prefix, 64)
	return f
}

// numericPrefix returns the length of the longest prefix of s of the form
// [+-](digits[.digits] | .digits)[(e|E)[+-]digits] or [+-]Infinity.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		return i + len("Infinity")
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
