package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DateMatch is a successfully extracted appointment date together with the
// source text it was parsed from.
type DateMatch struct {
	Date time.Time
	Raw  string
}

// Numeric day/month/year token: 15/01/2026, 15-01-26, 15.01.2026, 15 01 2026.
var numericDateRe = regexp.MustCompile(`\b([0-3]?\d)[/\-.\s]([01]?\d)[/\-.\s](\d{4}|\d{2})\b`)

// Month names, English and French, accent-tolerant. Longer alternatives come
// first so abbreviations never shadow full names.
const monthAlt = `septembre|september|décembre|decembre|december|novembre|november|février|fevrier|february|janvier|january|juillet|octobre|october|august|avril|april|march|mars|juin|june|july|juil|janv|févr|fevr|sept|août|aout|déc|dec|nov|oct|sep|aug|jul|jun|apr|avr|mar|feb|jan|mai|may`

var (
	dayMonthRe  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:er|e|st|nd|rd|th)?\s+(` + monthAlt + `)\b\.?,?\s*(\d{4})?`)
	monthDayRe  = regexp.MustCompile(`(?i)\b(` + monthAlt + `)\b\.?\s+(\d{1,2})(?:er|st|nd|rd|th)?,?\s*(\d{4})?`)
	timeOfDayRe = regexp.MustCompile(`\b([01]?\d|2[0-3])[h:]([0-5]\d)\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January, "janvier": time.January, "janv": time.January,
	"february": time.February, "feb": time.February, "février": time.February, "fevrier": time.February, "févr": time.February, "fevr": time.February,
	"march": time.March, "mar": time.March, "mars": time.March,
	"april": time.April, "apr": time.April, "avril": time.April, "avr": time.April,
	"may": time.May, "mai": time.May,
	"june": time.June, "jun": time.June, "juin": time.June,
	"july": time.July, "jul": time.July, "juillet": time.July, "juil": time.July,
	"august": time.August, "aug": time.August, "août": time.August, "aout": time.August,
	"september": time.September, "sep": time.September, "sept": time.September, "septembre": time.September,
	"october": time.October, "oct": time.October, "octobre": time.October,
	"november": time.November, "nov": time.November, "novembre": time.November,
	"december": time.December, "dec": time.December, "décembre": time.December, "déc": time.December,
}

// ExtractDate finds an appointment date in the combined subject, snippet and
// body text. Numeric day/month/year tokens are tried first; when none parses,
// a line-by-line natural-language pass handles English and French spellings
// like "15 janvier 2026 à 10h30" or "January 15, 2026". Returns nil when no
// plausible date is present, which callers must treat as "date unknown".
func ExtractDate(body, subject, snippet string, now time.Time) *DateMatch {
	combined := subject + "\n" + snippet + "\n" + body

	if m := extractNumericDate(combined); m != nil {
		return m
	}

	return extractNaturalDate(combined, now)
}

func extractNumericDate(text string) *DateMatch {
	for _, m := range numericDateRe.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}

		// Day-before-month bias; swap only when the strict reading is not a
		// real calendar date (e.g. 01/15/2026).
		t, ok := makeDate(year, month, day)
		if !ok {
			t, ok = makeDate(year, day, month)
		}
		if !ok {
			continue
		}

		return &DateMatch{Date: t, Raw: m[0]}
	}

	return nil
}

func extractNaturalDate(text string, now time.Time) *DateMatch {
	for _, line := range textLines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if utf8.RuneCountInString(trimmed) < 5 || allDigits(trimmed) {
			continue
		}

		cleaned := strings.TrimLeft(trimmed, "- ")
		cleaned = strings.ReplaceAll(cleaned, "Date:", "")
		cleaned = strings.TrimSpace(cleaned)

		day, month, year, ok := findDayAndMonth(cleaned)
		if !ok {
			continue
		}

		explicitYear := year != 0
		if !explicitYear {
			year = now.Year()
		}

		t, ok := makeDate(year, int(month), day)
		if !ok {
			continue
		}

		if hour, minute, found := findTimeOfDay(cleaned); found {
			t = time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
		}

		if !explicitYear && t.Before(now) {
			t = t.AddDate(1, 0, 0)
		}

		// Guard against misparsed years (a stray number read as a year).
		if t.Year() < now.Year()-1 || t.Year() > now.Year()+2 {
			continue
		}

		return &DateMatch{Date: t, Raw: trimmed}
	}

	return nil
}

func findDayAndMonth(line string) (day int, month time.Month, year int, ok bool) {
	if m := dayMonthRe.FindStringSubmatch(line); m != nil {
		day, _ = strconv.Atoi(m[1])
		month = monthsByName[strings.ToLower(m[2])]
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		return day, month, year, month != 0
	}

	if m := monthDayRe.FindStringSubmatch(line); m != nil {
		month = monthsByName[strings.ToLower(m[1])]
		day, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		return day, month, year, month != 0
	}

	return 0, 0, 0, false
}

func findTimeOfDay(line string) (hour, minute int, found bool) {
	m := timeOfDayRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, true
}

// makeDate builds a date and verifies it is a real calendar date, rejecting
// normalized overflows like 31 February.
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
