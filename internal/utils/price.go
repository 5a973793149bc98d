package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	rxNotPrice  = regexp.MustCompile(`[^\d.]`)
	rxNumPrefix = regexp.MustCompile(`^\d*\.?\d*`)
)

// ParsePrice парсит цены из скрейпа: "$1,234.50", "JMD 99.9", "12.5.0".
// Всё кроме цифр и точки выкидывается, берётся числовой префикс,
// результат округляется до 2 знаков.
func ParsePrice(s string) (float64, bool) {
	s = rxNotPrice.ReplaceAllString(strings.TrimSpace(s), "")
	// "12.5.0" -> "12.5"
	s = rxNumPrefix.FindString(s)
	if s == "" || s == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return math.Round(f*100) / 100, true
}
