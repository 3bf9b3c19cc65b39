package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

func TestMutualSwap(t *testing.T) {
	t.Parallel()
	a := swap("a", "ua", "CS101", sec1MW10(), want2STT9())
	b := swap("b", "ub", "CS101", sec2STT9(), want1MW10())

	r := MutualSwap{}.Evaluate(a, b)
	assert.True(t, r.IsMatch)
	assert.Equal(t, RuleMutualSwap, r.Rule)
	assert.Equal(t, 100, r.Quality)
	assert.Equal(t, BothParties, r.Audience)
	assert.NotEmpty(t, r.Reason)

	// symmetric
	assert.True(t, MutualSwap{}.Evaluate(b, a).IsMatch)
}

func TestMutualSwap_FreeTextEquivalence(t *testing.T) {
	t.Parallel()
	a := swap("a", "ua", "CS101", sec("Section 1", "M/W", "10am"), want("02", "sun tue thu", "09:00"))
	b := swap("b", "ub", "cs 101", sec("2", "Sun/Tue/Thu", "9:00 a.m."), want("1", "MW", "10:00 AM"))

	assert.True(t, MutualSwap{}.Evaluate(a, b).IsMatch)
}

func TestMutualSwap_NoMatch(t *testing.T) {
	t.Parallel()
	a := swap("a", "ua", "CS101", sec1MW10(), want2STT9())

	tests := []struct {
		name      string
		candidate *storage.Intent
	}{
		{"different course", swap("b", "ub", "MATH200", sec2STT9(), want1MW10())},
		{"one side only", swap("c", "uc", "CS101", sec2STT9(), want("3", "", ""))},
		{"not a swap", drop("d", "ud", "CS101", sec2STT9())},
		{"different time", swap("e", "ue", "CS101", sec("2", "Sun/Tue/Thu", "11:00 AM"), want1MW10())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.False(t, MutualSwap{}.Evaluate(a, tt.candidate).IsMatch)
		})
	}
}

func TestSwapRules_RequireEqualKeys(t *testing.T) {
	t.Parallel()

	a := swap("a", "ua", "CS101", sec1MW10(), want("2", "", ""))
	b := swap("b", "ub", "CS101", sec2STT9(), want("1", "", ""))
	assert.False(t, MutualSwap{}.Evaluate(a, b).IsMatch, "numbers alone do not equal full sections")
	assert.False(t, PartialSwap{}.Evaluate(a, b).IsMatch)

	dayOnly := swap("d", "ud", "CS101", sec1MW10(), want("", "Mon/Wed", ""))
	c := swap("c", "uc", "CS101", sec("7", "MW", "3pm"), want("1", "Mon/Wed", "10:00 AM"))
	r := MutualSwap{}.Evaluate(dayOnly, c)
	assert.False(t, r.IsMatch)
	r = PartialSwap{}.Evaluate(dayOnly, c)
	assert.True(t, r.IsMatch, "c still wants exactly what d holds")
	assert.Equal(t, CandidateOnly, r.Audience)

	// equally sparse keys on both sides are equal
	x := swap("x", "ux", "CS101", sec("1", "", ""), want("2", "", ""))
	y := swap("y", "uy", "CS101", sec("2", "", ""), want("1", "", ""))
	assert.True(t, MutualSwap{}.Evaluate(x, y).IsMatch)
}

func TestPartialSwap(t *testing.T) {
	t.Parallel()
	a := swap("a", "ua", "CS101", sec1MW10(), want2STT9())
	c := swap("c", "uc", "CS101", sec2STT9(), want("3", "", ""))

	r := PartialSwap{}.Evaluate(a, c)
	assert.True(t, r.IsMatch)
	assert.Equal(t, 80, r.Quality)
	assert.Equal(t, SourceOnly, r.Audience, "A's want is the satisfied side")

	r = PartialSwap{}.Evaluate(c, a)
	assert.True(t, r.IsMatch)
	assert.Equal(t, CandidateOnly, r.Audience)

	b := swap("b", "ub", "CS101", sec2STT9(), want1MW10())
	assert.False(t, PartialSwap{}.Evaluate(a, b).IsMatch, "mutual pairs are not partial")
}

func TestPartialQuality(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 60, PartialQuality(0))
	assert.Equal(t, 80, PartialQuality(1))
	assert.Equal(t, 100, PartialQuality(2))
}

func TestDropToRequest(t *testing.T) {
	t.Parallel()
	d := drop("d", "ud", "CourseX", sec("4", "", ""))

	tests := []struct {
		name      string
		requester *storage.Intent
		want      bool
	}{
		{"any section", request("r1", "ur", "CourseX", anySection()), true},
		{"same number", request("r2", "ur", "coursex", want("Section 4", "", "")), true},
		{"other number", request("r3", "ur", "CourseX", want("5", "", "")), false},
		{"other course", request("r4", "ur", "CourseY", anySection()), false},
		{"loose course", request("r5", "ur", "CourseX Lab", anySection()), true},
		{
			"drop_and_request wanting it",
			&storage.Intent{ID: "r6", OwnerID: "ur", Kind: storage.KindDropAndRequest,
				Course: "CourseY", RequestCourse: "CourseX", Current: sec("1", "", ""), Desired: anySection()},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := DropToRequest{}.Evaluate(d, tt.requester)
			assert.Equal(t, tt.want, r.IsMatch, r.Reason)
			if tt.want {
				assert.Equal(t, BothParties, r.Audience)
			}
		})
	}
}

func TestDropToRequest_DropAndRequestAsDropper(t *testing.T) {
	t.Parallel()
	dr := &storage.Intent{ID: "dr", OwnerID: "u1", Kind: storage.KindDropAndRequest,
		Course: "CourseX", RequestCourse: "CourseY", Current: sec("4", "", ""), Desired: anySection()}

	assert.True(t, DropToRequest{}.Evaluate(dr, request("r", "u2", "CourseX", want("4", "", ""))).IsMatch)
	assert.False(t, DropToRequest{}.Evaluate(dr, request("r", "u2", "CourseY", anySection())).IsMatch,
		"the requested course is not on offer")
}

func TestRequestToDrop(t *testing.T) {
	t.Parallel()
	r := request("r", "ur", "CourseX", want("4", "", ""))

	assert.True(t, RequestToDrop{}.Evaluate(r, drop("d", "ud", "CourseX", sec("4", "Mon/Wed", ""))).IsMatch)
	assert.False(t, RequestToDrop{}.Evaluate(r, drop("d", "ud", "CourseX", sec("5", "", ""))).IsMatch)

	got := RequestToDrop{}.Evaluate(r, drop("d", "ud", "CourseX", sec("4", "", "")))
	assert.Equal(t, RuleRequestDrop, got.Rule)
	assert.Equal(t, "CourseX", got.Course)
}

func TestCrossTypeMatch(t *testing.T) {
	t.Parallel()
	swapper := swap("s", "us", "CS101", sec("3", "", ""), want("4", "", ""))

	tests := []struct {
		name   string
		source *storage.Intent
		want   bool
	}{
		{"drop of wanted section", drop("d", "ud", "CS101", sec("4", "", "")), true},
		{"drop of other section", drop("d", "ud", "CS101", sec("5", "", "")), false},
		{"request of held section", request("r", "ur", "CS101", want("3", "", "")), true},
		{"request of any section", request("r", "ur", "CS101", anySection()), true},
		{"request of other section", request("r", "ur", "CS101", want("7", "", "")), false},
		{"different course", drop("d", "ud", "MATH200", sec("4", "", "")), false},
		{"swap source", swap("x", "ux", "CS101", sec("4", "", ""), want("3", "", "")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CrossTypeMatch{}.Evaluate(tt.source, swapper).IsMatch)
		})
	}
}

func TestEvaluate_PriorityOrder(t *testing.T) {
	t.Parallel()
	a := swap("a", "ua", "CS101", sec1MW10(), want2STT9())
	b := swap("b", "ub", "CS101", sec2STT9(), want1MW10())

	r, ok := Evaluate(DefaultPredicates(), a, b)
	assert.True(t, ok)
	assert.Equal(t, RuleMutualSwap, r.Rule)

	_, ok = Evaluate(DefaultPredicates(), a, drop("d", "ud", "MATH200", sec("9", "", "")))
	assert.False(t, ok)
}

func TestPredicates_CourseLabelIsSymmetric(t *testing.T) {
	t.Parallel()
	a := swap("a", "ua", "CS101 Intro to Programming", sec1MW10(), want2STT9())
	b := swap("b", "ub", "CS 101", sec2STT9(), want1MW10())

	ab := MutualSwap{}.Evaluate(a, b)
	ba := MutualSwap{}.Evaluate(b, a)
	assert.Equal(t, "CS 101", ab.Course)
	assert.Equal(t, ab.Course, ba.Course)
}
