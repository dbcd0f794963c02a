package engine

import (
	"crosspath/internal/domain/engine"
	"crosspath/internal/domain/geo"
	"crosspath/internal/domain/post"
)

// VisibleCandidates returns the discoverable candidate set. Discovery is
// reciprocal: a user with no published posts discovers nothing. A candidate
// qualifies when it sits within the match radius of any own post, not just
// the nearest one. The tag filter is applied last.
func (e *MatchEngine) VisibleCandidates() []post.CandidatePost {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []post.CandidatePost
	for _, c := range e.visibleLocked() {
		if !c.HasAnyTag(e.tagFilter) {
			continue
		}
		out = append(out, c)
	}

	return out
}

// visibleLocked computes the visible set without the tag filter. Callers
// must hold the engine mutex.
func (e *MatchEngine) visibleLocked() []post.CandidatePost {
	if len(e.ownPosts) == 0 {
		return nil
	}

	var out []post.CandidatePost
	for _, c := range e.catalog {
		if c.Status == post.StatusHidden && !e.showHidden {
			continue
		}

		if e.nearAnyOwnPostLocked(c.Position) {
			out = append(out, c)
		}
	}

	return out
}

// nearAnyOwnPostLocked reports whether a position is within the match radius
// of at least one own post
func (e *MatchEngine) nearAnyOwnPostLocked(pos geo.Coordinate) bool {
	for _, p := range e.ownPosts {
		if e.geo.IsWithinRadius(p.Position, pos, e.config.MatchRadiusMeters) {
			return true
		}
	}
	return false
}

// NearbyCounts returns, for each own post, how many visible candidates sit
// within the match radius of that specific post. The counts are recomputed
// from the radius rule, not cached.
func (e *MatchEngine) NearbyCounts() []engine.NearbyCount {
	e.mu.Lock()
	defer e.mu.Unlock()

	counts := make([]engine.NearbyCount, 0, len(e.ownPosts))
	for _, p := range e.ownPosts {
		count := 0
		for _, c := range e.catalog {
			if c.Status == post.StatusHidden && !e.showHidden {
				continue
			}
			if e.geo.IsWithinRadius(p.Position, c.Position, e.config.MatchRadiusMeters) {
				count++
			}
		}

		counts = append(counts, engine.NearbyCount{
			PostID: p.ID,
			Title:  p.Title,
			Count:  count,
		})
	}

	return counts
}

// Markers returns the clustered marker set for a zoom level. Own posts are
// included when their toggle is on; candidates must pass both the proximity
// rule and the category toggle for their status.
func (e *MatchEngine) Markers(zoom int) geo.MarkerSet {
	e.mu.Lock()

	var points []geo.Point

	if e.mapFilter.ShowOwn {
		for _, p := range e.ownPosts {
			points = append(points, geo.Point{PostID: p.ID, Position: p.Position})
		}
	}

	if len(e.ownPosts) > 0 {
		for _, c := range e.catalog {
			if !e.categoryEnabledLocked(c.Status) {
				continue
			}
			if !e.nearAnyOwnPostLocked(c.Position) {
				continue
			}
			points = append(points, geo.Point{PostID: c.ID, Position: c.Position})
		}
	}

	threshold := e.geo.ThresholdForZoom(zoom)
	e.mu.Unlock()

	return e.geo.ClusterPoints(points, threshold)
}

// categoryEnabledLocked maps a candidate status to its map toggle
func (e *MatchEngine) categoryEnabledLocked(s post.Status) bool {
	switch s {
	case post.StatusPending, post.StatusLikedByMe:
		return e.mapFilter.ShowPending
	case post.StatusLikedByThem:
		return e.mapFilter.ShowLikedByThem
	case post.StatusMatched:
		return e.mapFilter.ShowMatched
	case post.StatusHidden:
		return e.mapFilter.ShowHidden
	default:
		return false
	}
}
