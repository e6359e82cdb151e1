package yomikae

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var kanjiDigits = map[rune]int{
	'〇': 0, '零': 0,
	'一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9,
}

var kanjiUnits = map[rune]int{
	'十': 10, '百': 100, '千': 1000,
}

// iroha is the traditional ordering used to number subitems (イ, ロ, ハ …).
const iroha = "イロハニホヘトチリヌルヲワカヨタレソツネナラムウヰノオクヤマケフコエテアサキユメミシヱヒモセス"

// ParseNumber converts a kanji, full-width or ASCII numeral to an int.
// Both 百十三 and 一一三 read as 113.
func ParseNumber(s string) (int, bool) {
	s = width.Fold.String(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0
	}

	total, section, digit := 0, 0, -1
	for _, r := range s {
		if d, ok := kanjiDigits[r]; ok {
			if digit >= 0 {
				digit = digit*10 + d
			} else {
				digit = d
			}
			continue
		}
		if unit, ok := kanjiUnits[r]; ok {
			if digit < 0 {
				digit = 1
			}
			section += digit * unit
			digit = -1
			continue
		}
		if r == '万' {
			if digit >= 0 {
				section += digit
			}
			if section == 0 {
				section = 1
			}
			total += section * 10000
			section, digit = 0, -1
			continue
		}
		if r >= '0' && r <= '9' {
			d := int(r - '0')
			if digit >= 0 {
				digit = digit*10 + d
			} else {
				digit = d
			}
			continue
		}
		return 0, false
	}
	if digit >= 0 {
		section += digit
	}
	return total + section, true
}

// IrohaIndex returns the 1-based position of a subitem letter.
func IrohaIndex(s string) (int, bool) {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) != 1 {
		return 0, false
	}
	i := 0
	for _, r := range iroha {
		i++
		if r == runes[0] {
			return i, true
		}
	}
	return 0, false
}

// NumKey converts the numerals of 第百十三条の三十八 style designators into
// the e-Gov Num form "113_38". parts are the numerals split on の.
func NumKey(parts ...string) (string, bool) {
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		n, ok := ParseNumber(p)
		if !ok {
			return "", false
		}
		keys = append(keys, strconv.Itoa(n))
	}
	return strings.Join(keys, "_"), len(keys) > 0
}

// shiftNum adds delta to a simple Num such as "5". Branch numbers like "5_2"
// have no well-defined neighbour and are rejected.
func shiftNum(num string, delta int) (string, bool) {
	n, err := strconv.Atoi(num)
	if err != nil || n+delta < 1 {
		return "", false
	}
	return strconv.Itoa(n + delta), true
}
