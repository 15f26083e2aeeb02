package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// distanceRe matches "<number> <unit>", e.g. "1,204.5 km" or "850 m".
var distanceRe = regexp.MustCompile(`^([0-9][0-9,]*(?:\.[0-9]+)?)\s*([A-Za-z]+)$`)

// kmPerUnit converts imperial distance units to kilometres.
var kmPerUnit = map[string]float64{
	"mi": 1.609344,
	"ft": 0.0003048,
}

// minutesPerUnit converts duration units to minutes.
var minutesPerUnit = map[string]float64{
	"day":     1440,
	"days":    1440,
	"hour":    60,
	"hours":   60,
	"hr":      60,
	"hrs":     60,
	"min":     1,
	"mins":    1,
	"minute":  1,
	"minutes": 1,
	"sec":     1.0 / 60,
	"secs":    1.0 / 60,
	"second":  1.0 / 60,
	"seconds": 1.0 / 60,
}

// ParseDistanceKm normalizes a routing distance text to kilometres.
// Metre values are divided by 1000, so "1500 m" is exactly 1.5.
func ParseDistanceKm(text string) (float64, error) {
	m := distanceRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, fmt.Errorf("%w: distance %q", ErrMalformedResponse, text)
	}
	v, err := parseNumber(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: distance %q", ErrMalformedResponse, text)
	}

	unit := strings.ToLower(m[2])
	switch unit {
	case "km":
		return v, nil
	case "m":
		return v / 1000, nil
	}
	factor, ok := kmPerUnit[unit]
	if !ok {
		return 0, fmt.Errorf("%w: distance unit %q", ErrMalformedResponse, m[2])
	}
	return v * factor, nil
}

// ParseDurationMinutes normalizes a routing duration text such as
// "1 hour 5 mins" to minutes.
func ParseDurationMinutes(text string) (float64, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields)%2 != 0 {
		return 0, fmt.Errorf("%w: duration %q", ErrMalformedResponse, text)
	}

	var total float64
	for i := 0; i < len(fields); i += 2 {
		v, err := parseNumber(fields[i])
		if err != nil {
			return 0, fmt.Errorf("%w: duration %q", ErrMalformedResponse, text)
		}
		factor, ok := minutesPerUnit[strings.ToLower(fields[i+1])]
		if !ok {
			return 0, fmt.Errorf("%w: duration unit %q", ErrMalformedResponse, fields[i+1])
		}
		total += v * factor
	}
	return total, nil
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
