package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Dates further in the future than this are treated as unparsable.
const maxClockSkew = 24 * time.Hour

var (
	relativeKo  = regexp.MustCompile(`(\d+)\s*(초|분|시간|일|주|개월|달|년)\s*전`)
	relativeEn  = regexp.MustCompile(`(?i)(\d+)\s*(second|sec|minute|min|hour|hr|day|week|month|year)s?\s+ago`)
	absoluteKo  = regexp.MustCompile(`(\d{4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일`)
	countRegex  = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([kKmMbB만천억]?)(?:[^a-zA-Z]|$)`)
	clockRegex  = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{2})$`)
	hoursRegex  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:시간|hours?|hrs?|h)`)
	minuteRegex = regexp.MustCompile(`(?i)(\d+)\s*(?:분|minutes?|mins?|m)`)
	floatRegex  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	amountRegex = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
)

// ParseDate reads a date as listing pages and feeds print them. layout is
// tried first when set. Relative texts ("3일 전", "2 hours ago") are
// resolved against now. The second return value is false when nothing
// could be read.
func ParseDate(text, layout string, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	if layout != "" {
		if t, err := time.Parse(layout, text); err == nil {
			return checkSkew(t, now)
		}
	}

	switch strings.ToLower(text) {
	case "방금 전", "방금", "just now", "now":
		return now, true
	case "어제", "yesterday":
		return now.AddDate(0, 0, -1), true
	}

	if m := relativeKo.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return relative(now, n, m[2]), true
	}
	if m := relativeEn.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return relative(now, n, strings.ToLower(m[2])), true
	}
	if m := absoluteKo.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return checkSkew(time.Date(y, time.Month(mo), d, 0, 0, 0, 0, now.Location()), now)
	}

	t, err := dateparse.ParseIn(strings.TrimSuffix(text, "."), now.Location())
	if err != nil {
		return time.Time{}, false
	}
	return checkSkew(t, now)
}

func relative(now time.Time, n int, unit string) time.Time {
	switch unit {
	case "초", "second", "sec":
		return now.Add(-time.Duration(n) * time.Second)
	case "분", "minute", "min":
		return now.Add(-time.Duration(n) * time.Minute)
	case "시간", "hour", "hr":
		return now.Add(-time.Duration(n) * time.Hour)
	case "일", "day":
		return now.AddDate(0, 0, -n)
	case "주", "week":
		return now.AddDate(0, 0, -7*n)
	case "개월", "달", "month":
		return now.AddDate(0, -n, 0)
	default:
		return now.AddDate(-n, 0, 0)
	}
}

func checkSkew(t, now time.Time) (time.Time, bool) {
	if t.After(now.Add(maxClockSkew)) {
		return time.Time{}, false
	}
	return t, true
}

// ParseCount reads counters such as "1,234", "조회수 1.2K" or "3.4만".
func ParseCount(text string) (int, bool) {
	m := countRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "k", "K", "천":
		v *= 1e3
	case "만":
		v *= 1e4
	case "m", "M":
		v *= 1e6
	case "억":
		v *= 1e8
	case "b", "B":
		v *= 1e9
	}
	return int(math.Round(v)), true
}

// ParseClockDuration reads "12:34" or "1:02:03" into seconds.
func ParseClockDuration(text string) (int, bool) {
	m := clockRegex.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	return h*3600 + min*60 + sec, true
}

// ParseMinutes reads course lengths such as "12시간 30분", "5h 30m",
// "3.5 hours" or "총 90분" into minutes.
func ParseMinutes(text string) (int, bool) {
	total := 0.0
	found := false
	rest := text
	if m := hoursRegex.FindStringSubmatchIndex(rest); m != nil {
		h, _ := strconv.ParseFloat(rest[m[2]:m[3]], 64)
		total += h * 60
		found = true
		rest = rest[:m[0]] + " " + rest[m[1]:]
	}
	if m := minuteRegex.FindStringSubmatch(rest); m != nil {
		v, _ := strconv.Atoi(m[1])
		total += float64(v)
		found = true
	}
	if !found {
		if secs, ok := ParseClockDuration(text); ok {
			return secs / 60, true
		}
		return 0, false
	}
	return int(math.Round(total)), true
}

// minorUnits is how many minor units make one unit of each currency.
var minorUnits = map[string]float64{
	"KRW": 1,
	"USD": 100,
	"EUR": 100,
}

// ParsePrice reads a listing price in the currency's minor unit, so $19.99 is
// 1999 and ₩55,000 is 55000. Free courses return 0. When a card shows the list
// price and the sale price, the last amount is the one charged.
func ParsePrice(text string) (amount int, currency string, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return 0, "", false
	}
	if strings.Contains(lower, "무료") || strings.Contains(lower, "free") {
		return 0, "KRW", true
	}

	amounts := amountRegex.FindAllString(lower, -1)
	if len(amounts) == 0 {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(amounts[len(amounts)-1], ",", ""), 64)
	if err != nil {
		return 0, "", false
	}

	currency = "KRW"
	switch {
	case strings.Contains(lower, "$") || strings.Contains(lower, "usd"):
		currency = "USD"
	case strings.Contains(lower, "€") || strings.Contains(lower, "eur"):
		currency = "EUR"
	}
	return int(math.Round(v * minorUnits[currency])), currency, true
}

// ParseRating reads the first number of text when it is a 0-5 rating.
func ParseRating(text string) (float64, bool) {
	m := floatRegex.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 0 || v > 5 {
		return 0, false
	}
	return v, true
}
