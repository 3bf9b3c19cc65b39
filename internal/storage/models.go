package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/garyellow/ntpu-section-swap/internal/section"
)

// IntentKind is the role an intent plays in matching.
type IntentKind string

// Intent kinds.
const (
	KindSwap           IntentKind = "swap"             // has current, wants desired
	KindDrop           IntentKind = "drop"             // gives up current
	KindRequest        IntentKind = "request"          // wants desired
	KindDropAndRequest IntentKind = "drop_and_request" // gives up one course, wants another
)

// Kinds lists every intent kind.
var Kinds = []IntentKind{KindSwap, KindDrop, KindRequest, KindDropAndRequest}

// Section is a concrete section a student holds.
type Section struct {
	Number     string `json:"number" validate:"max=64"`
	DayPattern string `json:"day_pattern,omitempty" validate:"max=64"`
	StartTime  string `json:"start_time,omitempty" validate:"max=32"`
}

// DesiredSection is the section a student wants. AnySection accepts every
// section of the course.
type DesiredSection struct {
	Number     string `json:"number,omitempty" validate:"max=64"`
	DayPattern string `json:"day_pattern,omitempty" validate:"max=64"`
	StartTime  string `json:"start_time,omitempty" validate:"max=32"`
	AnySection bool   `json:"any_section"`
}

// Intent is a student's swap, drop or request posting.
//
// For drop_and_request, Course is the course being dropped and RequestCourse
// the course being requested.
type Intent struct {
	ID            string          `json:"id" validate:"required,max=128"`
	OwnerID       string          `json:"owner_id" validate:"required,max=128"`
	Kind          IntentKind      `json:"kind" validate:"required,oneof=swap drop request drop_and_request"`
	Course        string          `json:"course" validate:"required,max=200"`
	RequestCourse string          `json:"request_course,omitempty" validate:"max=200"`
	Current       *Section        `json:"current_section,omitempty"`
	Desired       *DesiredSection `json:"desired_section,omitempty"`
	Anonymous     bool            `json:"anonymous"`
	ContactHandle string          `json:"contact_handle,omitempty" validate:"max=200"`
	DisplayName   string          `json:"display_name,omitempty" validate:"max=200"`
	CreatedAt     time.Time       `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}

// Drops reports whether the intent gives up a seat (drop or drop_and_request).
func (i *Intent) Drops() bool {
	return i.Kind == KindDrop || i.Kind == KindDropAndRequest
}

// Requests reports whether the intent asks for a seat (request or drop_and_request).
func (i *Intent) Requests() bool {
	return i.Kind == KindRequest || i.Kind == KindDropAndRequest
}

// DropCourse is the course whose seat the intent gives up or offers in a swap.
func (i *Intent) DropCourse() string {
	switch i.Kind {
	case KindSwap, KindDrop, KindDropAndRequest:
		return i.Course
	}
	return ""
}

// WantedCourse is the course the intent wants a seat in.
func (i *Intent) WantedCourse() string {
	switch i.Kind {
	case KindSwap, KindRequest:
		return i.Course
	case KindDropAndRequest:
		return i.RequestCourse
	}
	return ""
}

// CurrentKey is the normalized key of the held section.
func (i *Intent) CurrentKey() section.Key {
	if i.Current == nil {
		return section.Key{}
	}
	return section.FieldsKey(i.Current.Number, i.Current.DayPattern, i.Current.StartTime).WithCourse(i.DropCourse())
}

// DesiredKey is the normalized key of the wanted section.
func (i *Intent) DesiredKey() section.Key {
	if i.Desired == nil {
		return section.Key{}
	}
	return section.FieldsKey(i.Desired.Number, i.Desired.DayPattern, i.Desired.StartTime).WithCourse(i.WantedCourse())
}

// AcceptsAnySection reports whether the intent wants any section.
func (i *Intent) AcceptsAnySection() bool {
	return i.Desired != nil && i.Desired.AnySection
}

// CurrentLabel renders the held section for messages.
func (i *Intent) CurrentLabel() string {
	if i.Current == nil {
		return ""
	}
	return section.Describe(i.Current.Number, i.Current.DayPattern, i.Current.StartTime)
}

// DesiredLabel renders the wanted section for messages.
func (i *Intent) DesiredLabel() string {
	if i.Desired == nil {
		return ""
	}
	if i.Desired.AnySection && i.Desired.Number == "" {
		return "any section"
	}
	return section.Describe(i.Desired.Number, i.Desired.DayPattern, i.Desired.StartTime)
}

// ContentHash fingerprints the fields that influence matching, so that a
// re-submitted but unchanged intent keeps its processed marker.
func (i *Intent) ContentHash() string {
	payload, _ := json.Marshal(struct {
		OwnerID       string
		Kind          IntentKind
		Course        string
		RequestCourse string
		Current       *Section
		Desired       *DesiredSection
		Anonymous     bool
		ContactHandle string
		DisplayName   string
	}{i.OwnerID, i.Kind, i.Course, i.RequestCourse, i.Current, i.Desired, i.Anonymous, i.ContactHandle, i.DisplayName})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// MatchRecord is a directional confirmation that the requester's intent is
// compatible with the matched user's intent. It names the other party.
type MatchRecord struct {
	ID                 string    `json:"id"`
	RequesterUserID    string    `json:"requester_user_id"`
	MatchedUserID      string    `json:"matched_user_id"`
	RequesterIntentID  string    `json:"requester_intent_id"`
	MatchedIntentID    string    `json:"matched_intent_id"`
	Course             string    `json:"course"`
	CourseKey          string    `json:"-"`
	Rule               string    `json:"rule"`
	Quality            int       `json:"quality"`
	CurrentSection     string    `json:"current_section,omitempty"`
	DesiredSection     string    `json:"desired_section,omitempty"`
	NormalizedCurrent  string    `json:"normalized_current,omitempty"`
	NormalizedDesired  string    `json:"normalized_desired,omitempty"`
	MatchedCurrent     string    `json:"matched_current,omitempty"` // normalized key of the other party's held section
	MatchedDesired     string    `json:"matched_desired,omitempty"` // normalized key of the other party's wanted section
	MatchContactHandle string    `json:"match_contact_handle,omitempty"`
	MatchDisplayName   string    `json:"match_display_name"`
	CreatedAt          time.Time `json:"created_at"`
}

// Profile is the contact information of a user, used when an intent carries
// none of its own.
type Profile struct {
	UserID      string    `json:"user_id"`
	Handle      string    `json:"handle,omitempty" validate:"max=200"`
	DisplayName string    `json:"display_name,omitempty" validate:"max=200"`
	ChatRef     string    `json:"chat_ref,omitempty" validate:"max=200"` // LINE user id for push messages
	UpdatedAt   time.Time `json:"updated_at"`
}

// CandidateQuery narrows the intent pool for one source intent.
type CandidateQuery struct {
	SourceID   string
	OwnerID    string
	CourseKeys []string // course tokens of the source; loosely matched both ways
	Kinds      []IntentKind
	Limit      int
}

// pairOrder returns the two user ids in lexical order.
func pairOrder(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
