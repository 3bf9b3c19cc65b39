package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

type recordingSource struct {
	queries []storage.CandidateQuery
	results map[string][]storage.Intent
	errFor  string
}

func (r *recordingSource) FindCandidates(_ context.Context, q storage.CandidateQuery) ([]storage.Intent, error) {
	r.queries = append(r.queries, q)
	key := q.CourseKeys[0]
	if key == r.errFor {
		return nil, errors.New("query failed")
	}
	return r.results[key], nil
}

func TestFetcher_Swap(t *testing.T) {
	t.Parallel()
	src := &recordingSource{results: map[string][]storage.Intent{
		"cs101": {{ID: "x"}, {ID: "y"}},
	}}
	f := NewFetcher(src, 0)

	got, err := f.Fetch(context.Background(), swap("a", "u1", "CS 101", sec("1", "", ""), want("2", "", "")))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.Len(t, src.queries, 1)
	q := src.queries[0]
	assert.Equal(t, "a", q.SourceID)
	assert.Equal(t, "u1", q.OwnerID)
	assert.Equal(t, []string{"cs101"}, q.CourseKeys)
	assert.Equal(t, []storage.IntentKind{storage.KindSwap}, q.Kinds)
	assert.Equal(t, DefaultCandidateLimit, q.Limit)
}

func TestFetcher_DropAndRequestQueriesBothCourses(t *testing.T) {
	t.Parallel()
	src := &recordingSource{results: map[string][]storage.Intent{
		"cs101":   {{ID: "x"}, {ID: "shared"}},
		"math200": {{ID: "shared"}, {ID: "z"}},
	}}
	f := NewFetcher(src, 3)

	in := &storage.Intent{ID: "a", OwnerID: "u1", Kind: storage.KindDropAndRequest,
		Course: "CS101", RequestCourse: "MATH200", Current: sec("1", "", ""), Desired: anySection()}
	got, err := f.Fetch(context.Background(), in)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"x", "shared", "z"}, ids)
	assert.Len(t, src.queries, 2)
}

func TestFetcher_PartialFailure(t *testing.T) {
	t.Parallel()
	src := &recordingSource{
		results: map[string][]storage.Intent{"math200": {{ID: "z"}}},
		errFor:  "cs101",
	}
	in := &storage.Intent{ID: "a", OwnerID: "u1", Kind: storage.KindDropAndRequest,
		Course: "CS101", RequestCourse: "MATH200", Current: sec("1", "", ""), Desired: anySection()}

	got, err := NewFetcher(src, 10).Fetch(context.Background(), in)
	assert.Error(t, err)
	assert.Len(t, got, 1)
}

func TestCandidateKinds(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []storage.IntentKind{storage.KindSwap}, CandidateKinds(storage.KindSwap))
	assert.NotContains(t, CandidateKinds(storage.KindDrop), storage.KindDrop)
	assert.NotContains(t, CandidateKinds(storage.KindRequest), storage.KindRequest)
	assert.Len(t, CandidateKinds(storage.KindDropAndRequest), 4)
	assert.Nil(t, CandidateKinds("unknown"))
}
