package post

import (
	"context"

	"crosspath/internal/domain/geo"
)

// CandidateSource synthesizes candidate posts near a coordinate. At most one
// element of a returned batch may already carry StatusLikedByThem; this is
// the only entry point that sets that status.
type CandidateSource interface {
	GenerateCandidates(ctx context.Context, near geo.Coordinate) ([]CandidatePost, error)
}

// LocationSource reports the viewer's current position. Callers fall back to
// a configured coordinate on failure rather than blocking.
type LocationSource interface {
	CurrentCoordinate(ctx context.Context) (geo.Coordinate, error)
}
