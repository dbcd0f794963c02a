package generator

import (
	"context"

	"crosspath/internal/domain/geo"
)

// FixedLocationSource reports a configured coordinate. It stands in for a
// device location sensor and implements post.LocationSource.
type FixedLocationSource struct {
	position geo.Coordinate
}

// NewFixedLocationSource creates a location source pinned to one coordinate
func NewFixedLocationSource(position geo.Coordinate) *FixedLocationSource {
	return &FixedLocationSource{position: position}
}

// CurrentCoordinate returns the configured coordinate
func (s *FixedLocationSource) CurrentCoordinate(ctx context.Context) (geo.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return geo.Coordinate{}, err
	}
	return s.position, nil
}
