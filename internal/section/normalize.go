// Package section canonicalizes free-text course and section descriptors so
// that different spellings of the same section compare equal.
//
//	Normalize("Section 2 (Mon/Wed 10:00 AM)") == Normalize("2 mw 10am") // "2 mw 10am"
//
// All functions are pure and total: malformed input is canonicalized on a
// best-effort basis and never causes an error.
package section

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/garyellow/ntpu-section-swap/internal/stringutil"
)

// maxPasses bounds the fixpoint loop in Normalize. Every pass after the first
// only shortens its input, so the loop settles well before this.
const maxPasses = 8

const daySep = `\s*(?:/|&|,|-|\+|\band\b)?\s*`

var (
	// "section 2", "sec. 2", "Sec2", "section2"
	sectionWordRe = regexp.MustCompile(`\b(?:sections?|sec)\.?(\d|\b)`)

	mondayWednesdayFridayRe = regexp.MustCompile(
		`\b(?:monday|mon|mo|m)` + daySep + `(?:wednesday|wed|we|w)` + daySep + `(?:friday|fri|fr|f)\b`)
	mondayWednesdayRe = regexp.MustCompile(
		`\b(?:monday|mon|mo|m)` + daySep + `(?:wednesday|wed|we|w)\b`)
	sunTueThuRe = regexp.MustCompile(
		`\b(?:sunday|sun|su|s)` + daySep + `(?:tuesday|tues|tue|tu|t)` + daySep + `(?:thursday|thurs|thur|thu|th|t)\b`)

	cjkMondayWednesdayFridayRe = regexp.MustCompile(
		`(?:週|周|星期|禮拜)一\s*[、,/及和與]?\s*(?:週|周|星期|禮拜)?三\s*[、,/及和與]?\s*(?:週|周|星期|禮拜)?五`)
	cjkMondayWednesdayRe = regexp.MustCompile(
		`(?:週|周|星期|禮拜)一\s*[、,/及和與]?\s*(?:週|周|星期|禮拜)?三`)
	cjkSunTueThuRe = regexp.MustCompile(
		`(?:週|周|星期|禮拜)[日天]\s*[、,/]?\s*(?:週|周|星期|禮拜)?二\s*[、,/]?\s*(?:週|周|星期|禮拜)?四`)

	// 10:00 am, 10am, 10 a.m., 09:30pm
	meridiemRe = regexp.MustCompile(`\b0?(\d{1,2})(?::([0-5]\d))?\s*([ap])\.?\s*m\b\.?`)
	// 24-hour clock without a meridiem: 14:00, 9:30
	clockRe = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)

	timeTokenRe = regexp.MustCompile(`^\d{1,4}[ap]m$`)
)

// dayTokens maps recognised day words to their canonical short form.
var dayTokens = map[string]string{
	"mw":  "mw",
	"mwf": "mwf",
	"stt": "stt",

	"mon": "mon", "monday": "mon",
	"tue": "tue", "tues": "tue", "tuesday": "tue",
	"wed": "wed", "wednesday": "wed",
	"thu": "thu", "thur": "thu", "thurs": "thu", "thursday": "thu",
	"fri": "fri", "friday": "fri",
	"sat": "sat", "saturday": "sat",
	"sun": "sun", "sunday": "sun",
}

// Normalize returns the canonical form of a section descriptor.
//
// The pipeline lowercases, folds full-width characters, drops the word
// "section", compacts times to "10am" or "1030am", collapses
// Monday/Wednesday(/Friday) spellings to "mw" ("mwf") and
// Sunday/Tuesday/Thursday spellings to "stt", unwraps parenthesized groups
// that only hold schedule tokens and drops any other parenthesized note, turns
// punctuation into spaces and strips leading zeros from numbers. It is
// repeated until the result is stable, so Normalize is idempotent.
func Normalize(s string) string {
	for range maxPasses {
		next := normalizePass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func normalizePass(s string) string {
	s = width.Fold.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = sectionWordRe.ReplaceAllString(s, " ${1}")
	s = compactTimes(s)
	s = collapseDays(s)
	s = resolveGroups(s)
	return trimNumbers(stringutil.AlnumWords(s))
}

// trimNumbers turns "02" into "2" so numbered sections compare equal.
func trimNumbers(s string) string {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if stringutil.IsNumeric(tok) {
			tokens[i] = stringutil.TrimLeadingZeros(tok)
		}
	}
	return strings.Join(tokens, " ")
}

func collapseDays(s string) string {
	s = cjkMondayWednesdayFridayRe.ReplaceAllString(s, " mwf ")
	s = cjkMondayWednesdayRe.ReplaceAllString(s, " mw ")
	s = cjkSunTueThuRe.ReplaceAllString(s, " stt ")
	s = mondayWednesdayFridayRe.ReplaceAllString(s, " mwf ")
	s = mondayWednesdayRe.ReplaceAllString(s, " mw ")
	return sunTueThuRe.ReplaceAllString(s, " stt ")
}

func compactTimes(s string) string {
	s = meridiemRe.ReplaceAllStringFunc(s, func(m string) string {
		g := meridiemRe.FindStringSubmatch(m)
		return clockToken(g[1], g[2], g[3]+"m")
	})
	return clockRe.ReplaceAllStringFunc(s, func(m string) string {
		g := clockRe.FindStringSubmatch(m)
		hour, _ := strconv.Atoi(g[1])
		suffix := "am"
		switch {
		case hour == 0:
			hour = 12
		case hour == 12:
			suffix = "pm"
		case hour > 12:
			hour -= 12
			suffix = "pm"
		}
		return clockToken(strconv.Itoa(hour), g[2], suffix)
	})
}

func clockToken(hour, minute, suffix string) string {
	hour = stringutil.TrimLeadingZeros(hour)
	if minute == "" || minute == "00" {
		return hour + suffix
	}
	return hour + minute + suffix
}

// resolveGroups unwraps "(mw 10am)" into " mw 10am " and removes notes such as
// "(online)" entirely, innermost group first. Any closing bracket closes the
// innermost open group; unbalanced brackets are dropped. It makes one pass
// over s.
func resolveGroups(s string) string {
	stack := []*strings.Builder{{}}
	for _, r := range s {
		switch r {
		case '(', '[':
			stack = append(stack, &strings.Builder{})
		case ')', ']':
			if len(stack) == 1 {
				stack[0].WriteByte(' ')
				continue
			}
			inner := stack[len(stack)-1].String()
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			if isSchedule(inner) {
				parent.WriteString(" " + strings.TrimSpace(inner) + " ")
			} else {
				parent.WriteByte(' ')
			}
		default:
			stack[len(stack)-1].WriteRune(r)
		}
	}
	for len(stack) > 1 {
		inner := stack[len(stack)-1].String()
		stack = stack[:len(stack)-1]
		stack[len(stack)-1].WriteString(" " + inner)
	}
	return stack[0].String()
}

func isSchedule(s string) bool {
	tokens := strings.Fields(stringutil.AlnumWords(s))
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if _, ok := dayTokens[tok]; ok {
			continue
		}
		if stringutil.IsNumeric(tok) || timeTokenRe.MatchString(tok) {
			continue
		}
		return false
	}
	return true
}

// SectionsMatch reports whether two descriptors normalize to the same string.
func SectionsMatch(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Describe renders structured section fields for messages,
// e.g. "Section 2 (Mon/Wed 10:00 AM)".
func Describe(number, day, start string) string {
	number = strings.TrimSpace(number)
	schedule := stringutil.CollapseSpaces(day + " " + start)

	var b strings.Builder
	if number != "" {
		if !strings.HasPrefix(strings.ToLower(number), "section") {
			b.WriteString("Section ")
		}
		b.WriteString(number)
	}
	if schedule != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "(%s)", schedule)
	}
	return b.String()
}
