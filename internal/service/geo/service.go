package geo

import (
	"math"

	"crosspath/internal/domain/geo"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula
const earthRadiusMeters = 6371000.0

// GeoConfig contains configuration for the geospatial service
type GeoConfig struct {
	// Clustering distance bands, coarsest first. Thresholds shrink as the
	// map zooms in so that zoomed-out views group more aggressively.
	ClusterCoarseMeters float64
	ClusterMediumMeters float64
	ClusterFineMeters   float64

	// Zoom cutoffs between the bands
	MediumZoom int
	FineZoom   int
}

// GeoService implements the geo.Service interface
type GeoService struct {
	config GeoConfig
}

// NewGeoService creates a new geospatial service
func NewGeoService(config GeoConfig) *GeoService {
	return &GeoService{config: config}
}

// DistanceMeters calculates the great-circle distance between two coordinates
func (s *GeoService) DistanceMeters(a, b geo.Coordinate) float64 {
	// Haversine formula for distance on a sphere
	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	// Clamp before Asin; floating error can push h a hair past 1 for
	// near-antipodal points
	if h > 1 {
		h = 1
	}

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// IsWithinRadius reports whether b lies within radiusMeters of a. The
// boundary is inclusive.
func (s *GeoService) IsWithinRadius(a, b geo.Coordinate, radiusMeters float64) bool {
	return s.DistanceMeters(a, b) <= radiusMeters
}

// ThresholdForZoom returns the clustering distance for a zoom level
func (s *GeoService) ThresholdForZoom(zoom int) float64 {
	switch {
	case zoom >= s.config.FineZoom:
		return s.config.ClusterFineMeters
	case zoom >= s.config.MediumZoom:
		return s.config.ClusterMediumMeters
	default:
		return s.config.ClusterCoarseMeters
	}
}

// ClusterPoints partitions points into single markers and clusters using
// greedy single-seed grouping: each unassigned point seeds a group and pulls
// in every remaining unassigned point within thresholdMeters of the seed.
// Membership is decided against the seed, not other members, so the output
// depends on input order. For a fixed input order it is deterministic.
func (s *GeoService) ClusterPoints(points []geo.Point, thresholdMeters float64) geo.MarkerSet {
	var set geo.MarkerSet
	if len(points) == 0 {
		return set
	}

	assigned := make(map[int]bool)

	for i, seed := range points {
		if assigned[i] {
			continue
		}

		// Start a new group with this point
		group := []geo.Point{seed}
		assigned[i] = true

		// Pull in unassigned points near the seed
		for j := i + 1; j < len(points); j++ {
			if assigned[j] {
				continue
			}

			if s.DistanceMeters(seed.Position, points[j].Position) < thresholdMeters {
				group = append(group, points[j])
				assigned[j] = true
			}
		}

		if len(group) == 1 {
			set.Singles = append(set.Singles, geo.Marker{
				PostID:   seed.PostID,
				Position: seed.Position,
			})
			continue
		}

		set.Clusters = append(set.Clusters, makeCluster(group))
	}

	return set
}

// makeCluster builds a cluster marker at the mean coordinate of the group
func makeCluster(group []geo.Point) geo.Cluster {
	var sumLat, sumLng float64
	ids := make([]string, 0, len(group))

	for _, p := range group {
		sumLat += p.Position.Latitude
		sumLng += p.Position.Longitude
		ids = append(ids, p.PostID)
	}

	n := float64(len(group))

	return geo.Cluster{
		Centroid: geo.Coordinate{
			Latitude:  sumLat / n,
			Longitude: sumLng / n,
		},
		Count:   len(group),
		PostIDs: ids,
	}
}
