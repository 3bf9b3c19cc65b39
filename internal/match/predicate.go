package match

import (
	"fmt"

	"github.com/garyellow/ntpu-section-swap/internal/section"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

// Rule names a matching rule. It is stored on every match record.
type Rule string

// Rules in priority order.
const (
	RuleMutualSwap  Rule = "mutual_swap"
	RulePartialSwap Rule = "partial_swap"
	RuleDropRequest Rule = "drop_to_request"
	RuleRequestDrop Rule = "request_to_drop"
	RuleCrossType   Rule = "cross_type"
)

// Quality scores.
const (
	QualityMutual      = 100
	QualityPartialBase = 60
	QualityPerSide     = 20
)

// Audience says which parties receive a match record.
type Audience int

const (
	BothParties   Audience = iota // one record per direction
	SourceOnly                    // only the source's want is satisfied
	CandidateOnly                 // only the candidate's want is satisfied
)

// Result is the outcome of one predicate for a source/candidate pair.
type Result struct {
	IsMatch  bool
	Rule     Rule
	Reason   string
	Quality  int
	Course   string // course label shared by the pair
	Audience Audience
}

// Predicate is one directional compatibility rule.
type Predicate interface {
	Rule() Rule
	Evaluate(source, candidate *storage.Intent) Result
}

// DefaultPredicates returns the rules in evaluation order.
func DefaultPredicates() []Predicate {
	return []Predicate{MutualSwap{}, PartialSwap{}, DropToRequest{}, RequestToDrop{}, CrossTypeMatch{}}
}

// Evaluate runs predicates in order and returns the first match. ok is false
// when no predicate fires.
func Evaluate(predicates []Predicate, source, candidate *storage.Intent) (Result, bool) {
	for _, p := range predicates {
		if r := p.Evaluate(source, candidate); r.IsMatch {
			return r, true
		}
	}
	return Result{}, false
}

func noMatch(rule Rule, reason string) Result {
	return Result{Rule: rule, Reason: reason}
}

// MutualSwap fires when each swapper holds exactly what the other wants.
type MutualSwap struct{}

func (MutualSwap) Rule() Rule { return RuleMutualSwap }

func (p MutualSwap) Evaluate(source, candidate *storage.Intent) Result {
	if source.Kind != storage.KindSwap || candidate.Kind != storage.KindSwap {
		return noMatch(p.Rule(), "not a swap pair")
	}
	if !section.CourseNamesOverlap(source.Course, candidate.Course) {
		return noMatch(p.Rule(), "different course")
	}
	gets, gives := swapSides(source, candidate)
	if !gets || !gives {
		return noMatch(p.Rule(), "not mutual")
	}
	return Result{
		IsMatch: true,
		Rule:    p.Rule(),
		Reason: fmt.Sprintf("%s holds %s and wants %s",
			candidate.OwnerID, candidate.CurrentLabel(), candidate.DesiredLabel()),
		Quality:  QualityMutual,
		Course:   section.PairCourse(source.Course, candidate.Course),
		Audience: BothParties,
	}
}

// PartialSwap fires when exactly one swapper's want is satisfied by the other.
type PartialSwap struct{}

func (PartialSwap) Rule() Rule { return RulePartialSwap }

func (p PartialSwap) Evaluate(source, candidate *storage.Intent) Result {
	if source.Kind != storage.KindSwap || candidate.Kind != storage.KindSwap {
		return noMatch(p.Rule(), "not a swap pair")
	}
	if !section.CourseNamesOverlap(source.Course, candidate.Course) {
		return noMatch(p.Rule(), "different course")
	}
	gets, gives := swapSides(source, candidate)
	if gets == gives {
		return noMatch(p.Rule(), "zero or two sides satisfied")
	}

	r := Result{
		IsMatch: true,
		Rule:    p.Rule(),
		Quality: PartialQuality(1),
		Course:  section.PairCourse(source.Course, candidate.Course),
	}
	if gets {
		r.Audience = SourceOnly
		r.Reason = fmt.Sprintf("%s holds the wanted %s", candidate.OwnerID, source.DesiredLabel())
	} else {
		r.Audience = CandidateOnly
		r.Reason = fmt.Sprintf("%s wants the held %s", candidate.OwnerID, source.CurrentLabel())
	}
	return r
}

// PartialQuality scores a swap by the number of satisfied sides.
func PartialQuality(sides int) int {
	if sides >= 2 {
		return QualityMutual
	}
	return QualityPartialBase + QualityPerSide*sides
}

// swapSides reports whether the candidate holds what the source wants (gets)
// and whether the candidate wants what the source holds (gives). Both sides
// need equal normalized keys; a want of "2" does not take "2 stt 9am".
func swapSides(source, candidate *storage.Intent) (gets, gives bool) {
	gets = section.SameSection(candidate.CurrentKey(), source.DesiredKey())
	gives = section.SameSection(candidate.DesiredKey(), source.CurrentKey())
	return gets, gives
}

// DropToRequest fires when the source gives up a seat the candidate asks for.
// It covers both plain drops and drop_and_request intents acting as dropper.
type DropToRequest struct{}

func (DropToRequest) Rule() Rule { return RuleDropRequest }

func (p DropToRequest) Evaluate(source, candidate *storage.Intent) Result {
	if !source.Drops() || !candidate.Requests() {
		return noMatch(p.Rule(), "not a drop/request pair")
	}
	return seatMatch(p.Rule(), source, candidate,
		fmt.Sprintf("%s wants the dropped %s", candidate.OwnerID, source.CurrentLabel()))
}

// RequestToDrop is DropToRequest seen from the requester.
type RequestToDrop struct{}

func (RequestToDrop) Rule() Rule { return RuleRequestDrop }

func (p RequestToDrop) Evaluate(source, candidate *storage.Intent) Result {
	if !source.Requests() || !candidate.Drops() {
		return noMatch(p.Rule(), "not a request/drop pair")
	}
	return seatMatch(p.Rule(), candidate, source,
		fmt.Sprintf("%s drops the wanted %s", candidate.OwnerID, candidate.CurrentLabel()))
}

// seatMatch checks a dropper's seat against a requester's want.
func seatMatch(rule Rule, dropper, requester *storage.Intent, reason string) Result {
	if !section.CourseNamesOverlap(dropper.DropCourse(), requester.WantedCourse()) {
		return noMatch(rule, "different course")
	}
	if !wants(requester, dropper.CurrentKey()) {
		return noMatch(rule, "section not wanted")
	}
	return Result{
		IsMatch:  true,
		Rule:     rule,
		Reason:   reason,
		Course:   section.PairCourse(dropper.DropCourse(), requester.WantedCourse()),
		Audience: BothParties,
	}
}

// CrossTypeMatch pairs a drop or request with a swapper: the swapper wants the
// dropped section, or holds the requested one.
type CrossTypeMatch struct{}

func (CrossTypeMatch) Rule() Rule { return RuleCrossType }

func (p CrossTypeMatch) Evaluate(source, candidate *storage.Intent) Result {
	if source.Kind == storage.KindSwap || candidate.Kind != storage.KindSwap {
		return noMatch(p.Rule(), "not a cross-type pair")
	}

	if source.Drops() &&
		section.CourseNamesOverlap(source.DropCourse(), candidate.Course) &&
		section.SameNumber(candidate.DesiredKey(), source.CurrentKey()) {
		return Result{
			IsMatch:  true,
			Rule:     p.Rule(),
			Reason:   fmt.Sprintf("%s swaps into the dropped %s", candidate.OwnerID, source.CurrentLabel()),
			Course:   section.PairCourse(source.DropCourse(), candidate.Course),
			Audience: BothParties,
		}
	}

	if source.Requests() &&
		section.CourseNamesOverlap(source.WantedCourse(), candidate.Course) &&
		(source.AcceptsAnySection() || section.SameNumber(candidate.CurrentKey(), source.DesiredKey())) {
		return Result{
			IsMatch:  true,
			Rule:     p.Rule(),
			Reason:   fmt.Sprintf("%s swaps out of the requested %s", candidate.OwnerID, candidate.CurrentLabel()),
			Course:   section.PairCourse(source.WantedCourse(), candidate.Course),
			Audience: BothParties,
		}
	}

	return noMatch(p.Rule(), "no section overlap")
}

// wants reports whether a requester would take the offered seat. A stated
// section number decides on its own; otherwise the remaining components are
// compared.
func wants(requester *storage.Intent, offered section.Key) bool {
	if requester.AcceptsAnySection() {
		return true
	}
	desired := requester.DesiredKey()
	if desired.Number != "" && offered.Number != "" {
		return desired.Number == offered.Number
	}
	return section.Equivalent(desired, offered)
}
