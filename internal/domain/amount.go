package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseAmount reads the leading decimal number of s. Anything that does not
// start with a number yields 0.
func ParseAmount(s string) float64 {
	match := leadingNumber.FindString(strings.TrimSpace(s))
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}
