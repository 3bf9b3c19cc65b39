package section

import (
	"strings"

	"golang.org/x/text/width"

	"github.com/garyellow/ntpu-section-swap/internal/stringutil"
)

// Key is the comparable identity of a section descriptor. Empty components
// mean the descriptor did not state them.
type Key struct {
	Course string // CourseToken of the course, empty for bare sections
	Number string // section number without leading zeros
	Day    string // "mw", "stt" or concatenated day codes such as "tuethu"
	Time   string // start time token such as "10am" or "1030am"
}

// ParseKey extracts a Key from a free-text descriptor such as
// "Section 02 (Mon/Wed 10:00 AM)". Course is left empty.
func ParseKey(descriptor string) Key {
	var k Key
	var days strings.Builder
	for _, tok := range strings.Fields(Normalize(descriptor)) {
		switch {
		case k.Number == "" && stringutil.IsNumeric(tok):
			k.Number = stringutil.TrimLeadingZeros(tok)
		case k.Time == "" && timeTokenRe.MatchString(tok):
			k.Time = tok
		default:
			if code, ok := dayTokens[tok]; ok {
				days.WriteString(code)
			}
		}
	}
	k.Day = days.String()
	return k
}

// FieldsKey builds a Key from structured section fields.
func FieldsKey(number, day, start string) Key {
	return ParseKey(Describe(number, day, start))
}

// WithCourse returns k scoped to course.
func (k Key) WithCourse(course string) Key {
	k.Course = CourseToken(course)
	return k
}

// IsZero reports whether no section component was recognised.
func (k Key) IsZero() bool {
	return k.Number == "" && k.Day == "" && k.Time == ""
}

// String renders the key as "course|number|day|time".
func (k Key) String() string {
	return strings.Join([]string{k.Course, k.Number, k.Day, k.Time}, "|")
}

// KeyFromString parses the output of Key.String. Malformed input yields the
// zero Key.
func KeyFromString(s string) Key {
	parts := strings.Split(s, "|")
	if len(parts) != 4 {
		return Key{}
	}
	return Key{Course: parts[0], Number: parts[1], Day: parts[2], Time: parts[3]}
}

// SameSection reports whether two keys are identical in every section
// component. A zero key never matches. Course is not considered.
func SameSection(a, b Key) bool {
	if a.IsZero() {
		return false
	}
	return a.Number == b.Number && a.Day == b.Day && a.Time == b.Time
}

// Equivalent reports whether two section keys are compatible: a component is
// compared only when both sides state it, and at least one component must be
// compared. Course is not considered. Use it where a loosely stated want may
// accept a fuller offer; swaps use SameSection.
func Equivalent(a, b Key) bool {
	compared := false
	for _, pair := range [][2]string{{a.Number, b.Number}, {a.Day, b.Day}, {a.Time, b.Time}} {
		if pair[0] == "" || pair[1] == "" {
			continue
		}
		if pair[0] != pair[1] {
			return false
		}
		compared = true
	}
	return compared
}

// SameNumber reports whether both keys state the same section number.
func SameNumber(a, b Key) bool {
	return a.Number != "" && a.Number == b.Number
}

// CourseToken folds a course name to a comparison token: lowercase, half-width,
// letters and digits only ("CS 101" and "cs-101" both become "cs101").
func CourseToken(course string) string {
	return stringutil.KeepAlnum(strings.ToLower(width.Fold.String(course)))
}

// CourseNamesOverlap reports whether either course token contains the other.
//
// This is deliberately loose so that "CS101" matches "CS 101 Intro to
// Programming". It also makes "CS101" match "CS1010"; callers accept that
// false positive.
func CourseNamesOverlap(a, b string) bool {
	ta, tb := CourseToken(a), CourseToken(b)
	if ta == "" || tb == "" {
		return false
	}
	return strings.Contains(ta, tb) || strings.Contains(tb, ta)
}

// PairCourse picks the course label shared by two overlapping course names:
// the one with the shorter token, ties broken by the smaller token so that
// both directions of a pair agree.
func PairCourse(a, b string) string {
	ta, tb := CourseToken(a), CourseToken(b)
	switch {
	case len(ta) < len(tb):
		return a
	case len(tb) < len(ta):
		return b
	case tb < ta:
		return b
	default:
		return a
	}
}
