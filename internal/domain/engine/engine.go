package engine

import (
	"context"
	"time"

	"crosspath/internal/domain/chat"
	"crosspath/internal/domain/geo"
	"crosspath/internal/domain/post"
)

// MapFilter holds the per-category map toggles
type MapFilter struct {
	ShowOwn         bool
	ShowPending     bool
	ShowLikedByThem bool
	ShowMatched     bool
	ShowHidden      bool
}

// DefaultMapFilter shows everything except hidden posts
func DefaultMapFilter() MapFilter {
	return MapFilter{
		ShowOwn:         true,
		ShowPending:     true,
		ShowLikedByThem: true,
		ShowMatched:     true,
		ShowHidden:      false,
	}
}

// NearbyCount is the per-own-post drill-down summary: how many visible
// candidates sit within the match radius of that specific post
type NearbyCount struct {
	PostID string
	Title  string
	Count  int
}

// MatchEvent is emitted when a pair transitions into matched
type MatchEvent struct {
	PostID      string
	PartnerName string
	MatchedAt   time.Time
}

// Engine defines the interface for the proximity visibility and matching core
type Engine interface {
	// Restore reloads persisted posts and candidate statuses
	Restore(ctx context.Context) error

	// RefreshCandidates pulls a fresh batch from the candidate source and
	// merges it into the catalog; returns the number of new candidates
	RefreshCandidates(ctx context.Context, near geo.Coordinate) (int, error)

	// PublishPost creates an own post, enforcing the post cap
	PublishPost(ctx context.Context, draft post.Draft) (*post.OwnPost, error)

	// DeletePost removes an own post
	DeletePost(ctx context.Context, id string) error

	// OwnPosts returns the user's published posts
	OwnPosts() []post.OwnPost

	// Connect likes a candidate; liking an inbound like forms a match
	Connect(ctx context.Context, id string) (post.Status, error)

	// Reject hides a candidate
	Reject(ctx context.Context, id string) error

	// Unmatch resets a matched candidate to pending and destroys its session
	Unmatch(ctx context.Context, id string) error

	// Candidate returns a candidate by id, hidden ones included
	Candidate(id string) (*post.CandidatePost, error)

	// VisibleCandidates returns the discoverable candidate set
	VisibleCandidates() []post.CandidatePost

	// NearbyCounts returns the per-own-post nearby candidate counts
	NearbyCounts() []NearbyCount

	// Markers returns the clustered marker set for a zoom level
	Markers(zoom int) geo.MarkerSet

	// SetShowHidden toggles hidden candidates in the visible set
	SetShowHidden(show bool)

	// SetMapFilter replaces the per-category map toggles
	SetMapFilter(filter MapFilter)

	// SetTagFilter replaces the tag filter; empty means no filtering
	SetTagFilter(tags []post.Tag)

	// OpenChat focuses a session, creating one lazily for a matched
	// candidate that lost its session, and clears its unread count
	OpenChat(ctx context.Context, postID string) (*chat.Session, error)

	// CloseChat unfocuses the session if it is the focused one
	CloseChat(postID string)

	// Session returns a session by post id
	Session(postID string) (*chat.Session, error)

	// SendMessage appends a user message and schedules the partner reply
	SendMessage(ctx context.Context, postID, text string) (*chat.Message, error)

	// Sessions returns summaries of all live sessions
	Sessions() []chat.Summary

	// UnreadTotal returns the aggregate unread badge count
	UnreadTotal() int

	// RegisterMatchHandler registers a callback for match events
	RegisterMatchHandler(handler func(MatchEvent))

	// Stop cancels pending reply tasks and waits for them to drain
	Stop(ctx context.Context) error
}
