package geo

// Coordinate represents a geographic point
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Point ties a post id to its map position; it is the clustering input
type Point struct {
	PostID   string
	Position Coordinate
}

// Marker is a single post rendered individually on the map
type Marker struct {
	PostID   string
	Position Coordinate
}

// Cluster is an aggregate marker for a group of nearby posts.
// Centroid is the arithmetic mean of the member positions.
type Cluster struct {
	Centroid Coordinate
	Count    int
	PostIDs  []string
}

// MarkerSet is the full clustering output for one map render
type MarkerSet struct {
	Singles  []Marker
	Clusters []Cluster
}

// Service defines the interface for geospatial computation
type Service interface {
	// DistanceMeters returns the great-circle distance between two coordinates
	DistanceMeters(a, b Coordinate) float64

	// IsWithinRadius reports whether b lies within radiusMeters of a (inclusive)
	IsWithinRadius(a, b Coordinate, radiusMeters float64) bool

	// ThresholdForZoom returns the clustering distance for a zoom level
	ThresholdForZoom(zoom int) float64

	// ClusterPoints partitions points into single markers and clusters
	ClusterPoints(points []Point, thresholdMeters float64) MarkerSet
}
