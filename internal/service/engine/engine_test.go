package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosspath/internal/domain/engine"
	"crosspath/internal/domain/geo"
	"crosspath/internal/domain/post"
)

func TestPublishPost_EnforcesCap(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	for i := 0; i < 5; i++ {
		_, err := publishAt(e, fmt.Sprintf("post %d", i), 0, 0)
		require.NoError(t, err)
	}

	_, err := publishAt(e, "one too many", 0, 0)
	assert.ErrorIs(t, err, post.ErrCapacityExceeded)
	assert.Len(t, e.OwnPosts(), 5)
}

func TestDeletePost(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	p, err := publishAt(e, "short lived", 0, 0)
	require.NoError(t, err)

	require.NoError(t, e.DeletePost(context.Background(), p.ID))
	assert.Empty(t, e.OwnPosts())

	assert.ErrorIs(t, e.DeletePost(context.Background(), p.ID), post.ErrPostNotFound)
}

func TestVisibleCandidates_EmptyWithoutOwnPosts(t *testing.T) {
	e := newTestEngine(nil, nil, nil)
	seedCandidates(e, candidateAt("c1", "Ana", 0, 0.0001, post.StatusPending))

	assert.Empty(t, e.VisibleCandidates())
}

func TestVisibleCandidates_WithinRadiusOfAnyOwnPost(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	// Two own posts far apart; each pulls in its own neighborhood
	_, err := publishAt(e, "home", 0, 0)
	require.NoError(t, err)
	_, err = publishAt(e, "office", 0, 1)
	require.NoError(t, err)

	seedCandidates(e,
		candidateAt("near-home", "Ana", 0, 0.001, post.StatusPending),
		candidateAt("near-office", "Bruno", 0, 1.001, post.StatusPending),
		candidateAt("nowhere", "Chiara", 0, 0.5, post.StatusPending),
	)

	visible := e.VisibleCandidates()
	require.Len(t, visible, 2)

	ids := []string{visible[0].ID, visible[1].ID}
	assert.ElementsMatch(t, []string{"near-home", "near-office"}, ids)
}

func TestVisibleCandidates_HiddenToggle(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	_, err := publishAt(e, "home", 0, 0)
	require.NoError(t, err)

	seedCandidates(e, candidateAt("c1", "Ana", 0, 0.001, post.StatusPending))

	require.NoError(t, e.Reject(context.Background(), "c1"))
	assert.Empty(t, e.VisibleCandidates())

	e.SetShowHidden(true)
	require.Len(t, e.VisibleCandidates(), 1)
	assert.Equal(t, post.StatusHidden, e.VisibleCandidates()[0].Status)
}

func TestVisibleCandidates_TagFilter(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	_, err := publishAt(e, "home", 0, 0)
	require.NoError(t, err)

	coffee := candidateAt("coffee", "Ana", 0, 0.001, post.StatusPending)
	walk := candidateAt("walk", "Bruno", 0, 0.0011, post.StatusPending)
	walk.Tags = []post.Tag{post.TagWalk}

	seedCandidates(e, coffee, walk)

	// Empty filter set means no filtering
	assert.Len(t, e.VisibleCandidates(), 2)

	e.SetTagFilter([]post.Tag{post.TagWalk})
	visible := e.VisibleCandidates()
	require.Len(t, visible, 1)
	assert.Equal(t, "walk", visible[0].ID)

	e.SetTagFilter(nil)
	assert.Len(t, e.VisibleCandidates(), 2)
}

func TestNearbyCounts_PerOwnPost(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	home, err := publishAt(e, "home", 0, 0)
	require.NoError(t, err)
	office, err := publishAt(e, "office", 0, 1)
	require.NoError(t, err)

	seedCandidates(e,
		candidateAt("a", "Ana", 0, 0.0005, post.StatusPending),
		candidateAt("b", "Bruno", 0, 0.001, post.StatusPending),
		candidateAt("c", "Chiara", 0, 1.0005, post.StatusPending),
	)

	counts := e.NearbyCounts()
	require.Len(t, counts, 2)

	byID := map[string]int{}
	for _, c := range counts {
		byID[c.PostID] = c.Count
	}

	assert.Equal(t, 2, byID[home.ID])
	assert.Equal(t, 1, byID[office.ID])
}

func TestRefreshCandidates_MergesByID(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	seedCandidates(e, candidateAt("c1", "Ana", 0, 0.001, post.StatusPending))

	// Re-seeding the same id plus a new one only adds the new one
	src := &stubCandidateSource{batch: []post.CandidatePost{
		candidateAt("c1", "Ana", 0, 0.001, post.StatusLikedByThem),
		candidateAt("c2", "Bruno", 0, 0.002, post.StatusPending),
	}}
	e.candidates = src

	added, err := e.RefreshCandidates(context.Background(), geo.Coordinate{})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	// The existing candidate's status is untouched by the re-send
	c, err := e.Candidate("c1")
	require.NoError(t, err)
	assert.Equal(t, post.StatusPending, c.Status)
}

func TestRefreshCandidates_SourceFailureLeavesCatalog(t *testing.T) {
	e := newTestEngine(nil, nil, nil)
	seedCandidates(e, candidateAt("c1", "Ana", 0, 0.001, post.StatusPending))

	e.candidates = &stubCandidateSource{err: errUnavailable}

	added, err := e.RefreshCandidates(context.Background(), geo.Coordinate{})
	require.NoError(t, err)
	assert.Zero(t, added)

	_, err = e.Candidate("c1")
	assert.NoError(t, err)
}

func TestMarkers_CategoryToggles(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	_, err := publishAt(e, "home", 0, 0)
	require.NoError(t, err)

	seedCandidates(e,
		candidateAt("pending", "Ana", 0.006, 0, post.StatusPending),
		candidateAt("inbound", "Bruno", 0.011, 0, post.StatusLikedByThem),
	)

	// Both candidates are far from the only own post, so they fail the
	// proximity rule and only the own post renders
	set := e.Markers(16)
	require.Len(t, set.Singles, 1)

	// Bring candidates into range with own posts about 111m away from
	// them, inside the match radius but outside the fine cluster band
	_, err = publishAt(e, "park", 0.005, 0)
	require.NoError(t, err)
	_, err = publishAt(e, "gym", 0.01, 0)
	require.NoError(t, err)

	set = e.Markers(16)
	assert.Len(t, set.Singles, 5)

	e.SetMapFilter(engine.MapFilter{ShowOwn: true, ShowPending: false, ShowLikedByThem: true})
	set = e.Markers(16)
	assert.Len(t, set.Singles, 4)

	e.SetMapFilter(engine.MapFilter{ShowPending: true, ShowLikedByThem: true})
	set = e.Markers(16)
	assert.Len(t, set.Singles, 2)
}

func TestMarkers_ClustersClosePosts(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	_, err := publishAt(e, "home", 0, 0)
	require.NoError(t, err)

	seedCandidates(e,
		candidateAt("a", "Ana", 0, 0.001, post.StatusPending),
		candidateAt("b", "Bruno", 0, -0.001, post.StatusPending),
	)

	// Coarse zoom clusters everything within 500m into one marker
	set := e.Markers(5)
	require.Len(t, set.Clusters, 1)
	assert.Equal(t, 3, set.Clusters[0].Count)
	assert.Empty(t, set.Singles)

	// Fine zoom splits them apart
	set = e.Markers(16)
	assert.Len(t, set.Singles, 3)
	assert.Empty(t, set.Clusters)
}

func TestRestore_ReloadsPostsAndStatuses(t *testing.T) {
	store := newMemStore()

	first := newTestEngine(store, nil, nil)
	_, err := publishAt(first, "home", 0, 0)
	require.NoError(t, err)

	seedCandidates(first, candidateAt("c1", "Ana", 0, 0.001, post.StatusLikedByThem))
	_, err = first.Connect(context.Background(), "c1")
	require.NoError(t, err)

	// A fresh engine against the same store sees posts and statuses but
	// no sessions
	second := newTestEngine(store, nil, nil)
	require.NoError(t, second.Restore(context.Background()))

	assert.Len(t, second.OwnPosts(), 1)

	c, err := second.Candidate("c1")
	require.NoError(t, err)
	assert.Equal(t, post.StatusMatched, c.Status)

	assert.Empty(t, second.Sessions())
}
