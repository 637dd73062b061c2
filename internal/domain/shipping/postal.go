package shipping

import (
	"strconv"
	"strings"
	"unicode"
)

// PostalRange maps an inclusive range of numeric postal codes to a province
// and the name of the shipping zone that serves it.
type PostalRange struct {
	Min      int
	Max      int
	Province string
	Zone     string
}

// PostalRanges is checked in order; the first matching range wins.
var PostalRanges = []PostalRange{
	{Min: 5500, Max: 5549, Province: "Mendoza", Zone: "Gran Mendoza"},
	{Min: 5550, Max: 5599, Province: "Mendoza", Zone: "Mendoza Este"},
	{Min: 5600, Max: 5699, Province: "Mendoza", Zone: "Mendoza Sur"},
	{Min: 5400, Max: 5499, Province: "San Juan", Zone: "Cuyo"},
	{Min: 5700, Max: 5799, Province: "San Luis", Zone: "Cuyo"},
	{Min: 5000, Max: 5299, Province: "Córdoba", Zone: "Nacional"},
	{Min: 1000, Max: 1499, Province: "CABA", Zone: "Nacional"},
	{Min: 1600, Max: 1999, Province: "Buenos Aires", Zone: "Nacional"},
}

// ParsePostalCode extracts the four digit numeric part of an Argentine
// postal code. Both "5500" and the CPA form "M5500ABC" are accepted.
func ParsePostalCode(code string) (int, bool) {
	code = strings.TrimSpace(code)
	start := strings.IndexFunc(code, unicode.IsDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(code) && code[end] >= '0' && code[end] <= '9' {
		end++
	}
	if end-start != 4 {
		return 0, false
	}
	n, err := strconv.Atoi(code[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ClassifyPostalCode returns the first range containing code.
func ClassifyPostalCode(ranges []PostalRange, code int) (PostalRange, bool) {
	for _, r := range ranges {
		if code >= r.Min && code <= r.Max {
			return r, true
		}
	}
	return PostalRange{}, false
}
