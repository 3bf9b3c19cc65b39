package section

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only spaces", "   ", ""},
		{"free text with schedule", "Section 2 (Mon/Wed 10:00 AM)", "2 mw 10am"},
		{"already compact", "2 mw 10am", "2 mw 10am"},
		{"upper case", "2 MW 10AM", "2 mw 10am"},
		{"sun tue thu with minutes", "Section 02 (Sun/Tue/Thu 09:30 a.m.)", "2 stt 930am"},
		{"long day names", "sections 4 [Monday and Wednesday 1 pm]", "4 mw 1pm"},
		{"note in parentheses dropped", "Sec 3 (online) M/W 14:00", "3 mw 2pm"},
		{"twenty four hour noon", "12:00", "12pm"},
		{"midnight", "00:15", "1215am"},
		{"chinese days", "週一三 10:00", "mw 10am"},
		{"chinese sun tue thu", "星期日、二、四 9am", "stt 9am"},
		{"full width", "Ｓｅｃｔｉｏｎ　２（ＭＷ　１０ＡＭ）", "2 mw 10am"},
		{"punctuation stripped", "#5 - mw!", "5 mw"},
		{"lone bracket", "(", ""},
		{"nested notes", "2 (lab (room 101))", "2"},
		{"section word inside other words kept", "intersection 1", "intersection 1"},
		{"sec glued to number", "Sec2", "2"},
		{"section glued to number", "section2 (MW)", "2 mw"},
		{"sec with period", "Sec.3", "3"},
		{"leading zeros", "Section 007", "7"},
		{"time before day word", "10 a.m wed", "10am wed"},
		{"mwf", "MWF 9am", "mwf 9am"},
		{"mon wed fri spelled out", "Mon/Wed/Fri 9:00", "mwf 9am"},
		{"chinese mon wed fri", "週一三五 9am", "mwf 9am"},
		{"unbalanced closer", "2) mw", "2 mw"},
		{"unclosed group keeps text", "2 (mw", "2 mw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Section 2 (Mon/Wed 10:00 AM)",
		"sec-tion 3",
		"(m)(w) 10 : 00 am",
		"週一 三 (晚上)",
		"Monday, Wednesday",
		"s/t/t 9:05pm",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_DeepNesting(t *testing.T) {
	t.Parallel()

	deep := strings.Repeat("(", 5000) + "note" + strings.Repeat(")", 5000)
	assert.Equal(t, "3", Normalize("3 "+deep))

	schedule := strings.Repeat("[", 2000) + "mw 10am" + strings.Repeat("]", 2000)
	assert.Equal(t, "3 mw 10am", Normalize("3 "+schedule))
}

func TestSectionsMatch(t *testing.T) {
	t.Parallel()

	assert.True(t, SectionsMatch("Section 2 (Mon/Wed 10:00 AM)", "2 MW 10am"))
	assert.True(t, SectionsMatch("2 MW 10am", "Section 2 (Mon/Wed 10:00 AM)"))
	assert.True(t, SectionsMatch("  2   mw  10am ", "2 mw 10am (waitlist)"))
	assert.True(t, SectionsMatch("Section 02", "Section 2"))
	assert.True(t, SectionsMatch("Sec2", "section 2"))
	assert.False(t, SectionsMatch("2 mw 10am", "2 stt 10am"))
	assert.False(t, SectionsMatch("2 mw 10am", "3 mw 10am"))
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Section 2 (Mon/Wed 10:00 AM)", Describe("2", "Mon/Wed", "10:00 AM"))
	assert.Equal(t, "Section 4", Describe("4", "", ""))
	assert.Equal(t, "Section 5 (MW)", Describe("Section 5", "MW", ""))
	assert.Equal(t, "(STT 9am)", Describe("", "STT", "9am"))
	assert.Empty(t, Describe("", "", ""))
}

func FuzzNormalizeIdempotent(f *testing.F) {
	for _, seed := range []string{
		"Section 2 (Mon/Wed 10:00 AM)",
		"2 mw 10am",
		"sun tue thu 23:59",
		"((([",
		"週日二四",
		"sections sec section",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}
