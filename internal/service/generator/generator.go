package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"crosspath/internal/domain/geo"
	"crosspath/internal/domain/post"
)

// metersPerDegreeLat approximates one degree of latitude
const metersPerDegreeLat = 111320.0

// GeneratorConfig contains configuration for the candidate generator
type GeneratorConfig struct {
	BatchSize    int
	SpreadMeters float64
	InboundLikes int
}

// CandidateGenerator synthesizes candidate posts scattered around a
// coordinate. It implements post.CandidateSource.
type CandidateGenerator struct {
	config GeneratorConfig
	rand   *rand.Rand
	mu     sync.Mutex
}

// NewCandidateGenerator creates a new candidate generator
func NewCandidateGenerator(config GeneratorConfig) *CandidateGenerator {
	return &CandidateGenerator{
		config: config,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var candidateNames = []string{
	"Ana", "Bruno", "Chiara", "Daan", "Elif", "Femke", "Giorgio", "Hana",
	"Imre", "Jonas", "Katya", "Luca", "Mireia", "Noor", "Oskar", "Priya",
}

var candidateTitles = []string{
	"Coffee before work?",
	"Evening walk by the river",
	"Record store digging",
	"Pickup basketball at the park",
	"Trying that new ramen place",
	"Gallery opening tonight",
	"Study session at the library",
	"Late night jazz bar",
}

var titleTags = map[string][]post.Tag{
	"Coffee before work?":           {post.TagCoffee},
	"Evening walk by the river":     {post.TagWalk},
	"Record store digging":          {post.TagMusic},
	"Pickup basketball at the park": {post.TagSports},
	"Trying that new ramen place":   {post.TagFood},
	"Gallery opening tonight":       {post.TagArt},
	"Study session at the library":  {post.TagStudy},
	"Late night jazz bar":           {post.TagNightlife, post.TagMusic},
}

// GenerateCandidates synthesizes a batch of candidate posts near the given
// coordinate. Up to InboundLikes of them carry the liked-by-them status,
// simulating inbound likes; this is the only place that status is set.
func (g *CandidateGenerator) GenerateCandidates(ctx context.Context, near geo.Coordinate) ([]post.CandidatePost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	batch := make([]post.CandidatePost, 0, g.config.BatchSize)
	for i := 0; i < g.config.BatchSize; i++ {
		name := candidateNames[g.rand.Intn(len(candidateNames))]
		title := candidateTitles[g.rand.Intn(len(candidateTitles))]

		c := post.CandidatePost{
			ID: uuid.New().String(),
			Author: post.Author{
				Name:      name,
				AvatarURL: fmt.Sprintf("https://avatars.crosspath.dev/%s.png", name),
			},
			Title:       title,
			Description: fmt.Sprintf("%s is up for: %s", name, title),
			Tags:        titleTags[title],
			Position:    g.scatter(near),
			CreatedAt:   time.Now(),
			Status:      post.StatusPending,
		}

		if i < g.config.InboundLikes {
			c.Status = post.StatusLikedByThem
		}

		batch = append(batch, c)
	}

	return batch, nil
}

// scatter offsets a coordinate by up to SpreadMeters in each axis
func (g *CandidateGenerator) scatter(near geo.Coordinate) geo.Coordinate {
	latOffset := (g.rand.Float64()*2 - 1) * g.config.SpreadMeters / metersPerDegreeLat

	metersPerDegreeLng := metersPerDegreeLat * math.Cos(near.Latitude*math.Pi/180)
	if metersPerDegreeLng < 1 {
		metersPerDegreeLng = 1
	}
	lngOffset := (g.rand.Float64()*2 - 1) * g.config.SpreadMeters / metersPerDegreeLng

	return geo.Coordinate{
		Latitude:  near.Latitude + latOffset,
		Longitude: near.Longitude + lngOffset,
	}
}
