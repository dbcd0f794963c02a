package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"crosspath/internal/domain/chat"
	"crosspath/internal/domain/geo"
	"crosspath/internal/domain/post"
	geoService "crosspath/internal/service/geo"
)

// stubCandidateSource returns a fixed batch
type stubCandidateSource struct {
	batch []post.CandidatePost
	err   error
}

func (s *stubCandidateSource) GenerateCandidates(ctx context.Context, near geo.Coordinate) ([]post.CandidatePost, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.batch, nil
}

// stubOpenerSource returns fixed lines
type stubOpenerSource struct {
	opener    string
	reply     string
	openerErr error
	replyErr  error
}

func (s *stubOpenerSource) GenerateOpener(ctx context.Context, postTitle string) (string, error) {
	if s.openerErr != nil {
		return "", s.openerErr
	}
	return s.opener, nil
}

func (s *stubOpenerSource) GenerateReply(ctx context.Context, message string) (string, error) {
	if s.replyErr != nil {
		return "", s.replyErr
	}
	return s.reply, nil
}

// memStore is an in-memory Store for restore tests
type memStore struct {
	mu         sync.Mutex
	ownPosts   map[string]post.OwnPost
	candidates map[string]post.CandidatePost
	sessions   map[string]chat.Session
}

func newMemStore() *memStore {
	return &memStore{
		ownPosts:   make(map[string]post.OwnPost),
		candidates: make(map[string]post.CandidatePost),
		sessions:   make(map[string]chat.Session),
	}
}

func (m *memStore) SaveOwnPost(ctx context.Context, p post.OwnPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownPosts[p.ID] = p
	return nil
}

func (m *memStore) DeleteOwnPost(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ownPosts, id)
	return nil
}

func (m *memStore) SaveCandidate(ctx context.Context, c post.CandidatePost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates[c.ID] = c
	return nil
}

func (m *memStore) SaveSession(ctx context.Context, s chat.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.PostID] = s
	return nil
}

func (m *memStore) DeleteSession(ctx context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, postID)
	return nil
}

func (m *memStore) LoadOwnPosts(ctx context.Context) ([]post.OwnPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]post.OwnPost, 0, len(m.ownPosts))
	for _, p := range m.ownPosts {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) LoadCandidates(ctx context.Context) ([]post.CandidatePost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]post.CandidatePost, 0, len(m.candidates))
	for _, c := range m.candidates {
		out = append(out, c)
	}
	return out, nil
}

var errUnavailable = errors.New("collaborator unavailable")

func testGeoService() geo.Service {
	return geoService.NewGeoService(geoService.GeoConfig{
		ClusterCoarseMeters: 500,
		ClusterMediumMeters: 200,
		ClusterFineMeters:   80,
		MediumZoom:          12,
		FineZoom:            15,
	})
}

func testEngineConfig() EngineConfig {
	return EngineConfig{
		Viewer:            post.Author{Name: "You"},
		MatchRadiusMeters: 150,
		MaxOwnPosts:       5,
		ReplyDelay:        20 * time.Millisecond,
		DefaultOpener:     "Hey! Looks like we crossed paths",
		DefaultReply:      "Sounds good!",
		EventsTopic:       "encounter",
	}
}

func newTestEngine(store Store, candidates post.CandidateSource, openers chat.OpenerSource) *MatchEngine {
	if candidates == nil {
		candidates = &stubCandidateSource{}
	}
	if openers == nil {
		openers = &stubOpenerSource{opener: "Nice post!", reply: "For sure"}
	}

	return NewMatchEngine(
		store,
		testGeoService(),
		candidates,
		openers,
		nil,
		testEngineConfig(),
		zap.NewNop(),
	)
}

func candidateAt(id, name string, lat, lng float64, status post.Status) post.CandidatePost {
	return post.CandidatePost{
		ID:        id,
		Author:    post.Author{Name: name},
		Title:     "Coffee before work?",
		Tags:      []post.Tag{post.TagCoffee},
		Position:  geo.Coordinate{Latitude: lat, Longitude: lng},
		CreatedAt: time.Now(),
		Status:    status,
	}
}

// seedCandidates loads candidates into an engine through the refresh path
func seedCandidates(e *MatchEngine, cands ...post.CandidatePost) {
	src := &stubCandidateSource{batch: cands}
	e.candidates = src
	e.RefreshCandidates(context.Background(), geo.Coordinate{})
}

// publishAt publishes an own post at a coordinate
func publishAt(e *MatchEngine, title string, lat, lng float64) (*post.OwnPost, error) {
	return e.PublishPost(context.Background(), post.Draft{
		Title:    title,
		Tags:     []post.Tag{post.TagCoffee},
		Position: geo.Coordinate{Latitude: lat, Longitude: lng},
	})
}
