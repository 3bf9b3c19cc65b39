package match

import (
	"context"
	"time"

	"github.com/garyellow/ntpu-section-swap/internal/section"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

// AnonymousName is shown for parties without a usable display name.
const AnonymousName = "Anonymous"

// ProfileLookup resolves contact information by owner id. It is best-effort:
// a nil profile means nothing is known.
type ProfileLookup interface {
	GetProfile(ctx context.Context, userID string) (*storage.Profile, error)
}

// RecordWriter persists match records.
type RecordWriter interface {
	InsertMatches(ctx context.Context, records ...*storage.MatchRecord) (int, error)
}

// Contact is how a party can be reached and shown.
type Contact struct {
	Handle      string
	DisplayName string // empty for anonymous parties
	Ref         string // delivery reference for notifications
}

// Name returns the display name or AnonymousName.
func (c Contact) Name() string {
	if c.DisplayName == "" {
		return AnonymousName
	}
	return c.DisplayName
}

// Recorder builds and writes directional match records.
type Recorder struct {
	writer   RecordWriter
	profiles ProfileLookup
}

// NewRecorder creates a Recorder. profiles may be nil.
func NewRecorder(writer RecordWriter, profiles ProfileLookup) *Recorder {
	return &Recorder{writer: writer, profiles: profiles}
}

// Contact resolves the contact of an intent's owner: the intent's own fields
// first, then the profile. The chat reference comes from the profile and
// falls back to the handle. Anonymous intents never expose a display name.
// A lookup error is returned together with whatever the intent provided.
func (r *Recorder) Contact(ctx context.Context, in *storage.Intent) (Contact, error) {
	c := Contact{Handle: in.ContactHandle, DisplayName: in.DisplayName}

	var err error
	if r.profiles != nil {
		var p *storage.Profile
		p, err = r.profiles.GetProfile(ctx, in.OwnerID)
		if err == nil && p != nil {
			if c.Handle == "" {
				c.Handle = p.Handle
			}
			if c.DisplayName == "" {
				c.DisplayName = p.DisplayName
			}
			c.Ref = p.ChatRef
		}
	}

	if in.Anonymous {
		c.DisplayName = ""
	}
	if c.Ref == "" {
		c.Ref = c.Handle
	}
	return c, err
}

// Build returns the records for res: two for BothParties, otherwise one for
// the party whose want is satisfied.
func (r *Recorder) Build(res Result, source, candidate *storage.Intent, sourceContact, candidateContact Contact, now time.Time) []*storage.MatchRecord {
	switch res.Audience {
	case SourceOnly:
		return []*storage.MatchRecord{directional(res, source, candidate, candidateContact, now)}
	case CandidateOnly:
		return []*storage.MatchRecord{directional(res, candidate, source, sourceContact, now)}
	default:
		return []*storage.MatchRecord{
			directional(res, source, candidate, candidateContact, now),
			directional(res, candidate, source, sourceContact, now),
		}
	}
}

// Record writes records atomically and returns how many were new.
func (r *Recorder) Record(ctx context.Context, records []*storage.MatchRecord) (int, error) {
	return r.writer.InsertMatches(ctx, records...)
}

func directional(res Result, requester, matched *storage.Intent, matchedContact Contact, now time.Time) *storage.MatchRecord {
	return &storage.MatchRecord{
		RequesterUserID:    requester.OwnerID,
		MatchedUserID:      matched.OwnerID,
		RequesterIntentID:  requester.ID,
		MatchedIntentID:    matched.ID,
		Course:             res.Course,
		CourseKey:          section.CourseToken(res.Course),
		Rule:               string(res.Rule),
		Quality:            res.Quality,
		CurrentSection:     requester.CurrentLabel(),
		DesiredSection:     requester.DesiredLabel(),
		NormalizedCurrent:  keyString(requester.CurrentKey()),
		NormalizedDesired:  keyString(requester.DesiredKey()),
		MatchedCurrent:     keyString(matched.CurrentKey()),
		MatchedDesired:     keyString(matched.DesiredKey()),
		MatchContactHandle: matchedContact.Handle,
		MatchDisplayName:   matchedContact.Name(),
		CreatedAt:          now,
	}
}

func keyString(k section.Key) string {
	if k.IsZero() {
		return ""
	}
	return k.String()
}
