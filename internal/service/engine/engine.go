package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"crosspath/internal/domain/chat"
	"crosspath/internal/domain/engine"
	"crosspath/internal/domain/geo"
	"crosspath/internal/domain/post"
)

// Store defines the persistence interface for engine state. The in-memory
// state is authoritative; the store is written through best-effort and read
// once at startup. Sessions are snapshotted but never restored, so a matched
// candidate that lost its session takes the lazy recovery path.
type Store interface {
	// SaveOwnPost saves an own post
	SaveOwnPost(ctx context.Context, p post.OwnPost) error

	// DeleteOwnPost deletes an own post
	DeleteOwnPost(ctx context.Context, id string) error

	// SaveCandidate saves a candidate post including its status
	SaveCandidate(ctx context.Context, c post.CandidatePost) error

	// SaveSession snapshots a chat session
	SaveSession(ctx context.Context, s chat.Session) error

	// DeleteSession removes a session snapshot
	DeleteSession(ctx context.Context, postID string) error

	// LoadOwnPosts loads all own posts
	LoadOwnPosts(ctx context.Context) ([]post.OwnPost, error)

	// LoadCandidates loads all candidates with their statuses
	LoadCandidates(ctx context.Context) ([]post.CandidatePost, error)
}

// EngineConfig contains configuration for the match engine
type EngineConfig struct {
	Viewer            post.Author
	MatchRadiusMeters float64
	MaxOwnPosts       int
	ReplyDelay        time.Duration
	DefaultOpener     string
	DefaultReply      string
	EventsTopic       string
}

// MatchEngine implements the engine.Engine interface. All state belongs to a
// single viewer session; a multi-user deployment runs one engine per user.
type MatchEngine struct {
	store      Store
	geo        geo.Service
	candidates post.CandidateSource
	openers    chat.OpenerSource
	eventBus   *nats.Conn
	config     EngineConfig
	logger     *zap.Logger

	mu            sync.Mutex
	ownPosts      []post.OwnPost
	catalog       []post.CandidatePost
	catalogIndex  map[string]int
	sessions      map[string]*chat.Session
	focusedPostID string
	showHidden    bool
	mapFilter     engine.MapFilter
	tagFilter     []post.Tag
	replyTasks    map[string]*replyTask
	matchHandlers []func(engine.MatchEvent)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMatchEngine creates a new match engine
func NewMatchEngine(
	store Store,
	geoService geo.Service,
	candidates post.CandidateSource,
	openers chat.OpenerSource,
	eventBus *nats.Conn,
	config EngineConfig,
	logger *zap.Logger,
) *MatchEngine {
	ctx, cancel := context.WithCancel(context.Background())

	return &MatchEngine{
		store:        store,
		geo:          geoService,
		candidates:   candidates,
		openers:      openers,
		eventBus:     eventBus,
		config:       config,
		logger:       logger,
		catalogIndex: make(map[string]int),
		sessions:     make(map[string]*chat.Session),
		mapFilter:    engine.DefaultMapFilter(),
		replyTasks:   make(map[string]*replyTask),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Restore reloads own posts and candidate statuses from storage. Sessions
// are deliberately not restored.
func (e *MatchEngine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	own, err := e.store.LoadOwnPosts(ctx)
	if err != nil {
		return fmt.Errorf("error loading own posts: %w", err)
	}

	cands, err := e.store.LoadCandidates(ctx)
	if err != nil {
		return fmt.Errorf("error loading candidates: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ownPosts = own
	e.catalog = cands
	e.catalogIndex = make(map[string]int, len(cands))
	for i, c := range cands {
		e.catalogIndex[c.ID] = i
	}

	return nil
}

// RefreshCandidates pulls a fresh batch from the candidate source and merges
// it into the catalog by id. A source failure leaves the catalog unchanged.
func (e *MatchEngine) RefreshCandidates(ctx context.Context, near geo.Coordinate) (int, error) {
	batch, err := e.candidates.GenerateCandidates(ctx, near)
	if err != nil {
		// Collaborator failures degrade, they never surface as fatal
		e.logger.Warn("candidate source unavailable", zap.Error(err))
		return 0, nil
	}

	e.mu.Lock()

	var added []post.CandidatePost
	for _, c := range batch {
		if _, exists := e.catalogIndex[c.ID]; exists {
			continue
		}

		if c.Status == "" {
			c.Status = post.StatusPending
		}

		e.catalogIndex[c.ID] = len(e.catalog)
		e.catalog = append(e.catalog, c)
		added = append(added, c)
	}

	e.mu.Unlock()

	for _, c := range added {
		e.persistCandidate(ctx, c)
	}

	return len(added), nil
}

// PublishPost creates an own post, enforcing the post cap
func (e *MatchEngine) PublishPost(ctx context.Context, draft post.Draft) (*post.OwnPost, error) {
	e.mu.Lock()

	if len(e.ownPosts) >= e.config.MaxOwnPosts {
		e.mu.Unlock()
		return nil, post.ErrCapacityExceeded
	}

	p := post.OwnPost{
		ID:          uuid.New().String(),
		Author:      e.config.Viewer,
		Title:       draft.Title,
		Description: draft.Description,
		Tags:        draft.Tags,
		ImageURL:    draft.ImageURL,
		Position:    draft.Position,
		CreatedAt:   time.Now(),
	}

	e.ownPosts = append(e.ownPosts, p)
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveOwnPost(ctx, p); err != nil {
			e.logger.Warn("error saving own post", zap.String("post_id", p.ID), zap.Error(err))
		}
	}

	return &p, nil
}

// DeletePost removes an own post
func (e *MatchEngine) DeletePost(ctx context.Context, id string) error {
	e.mu.Lock()

	found := false
	for i, p := range e.ownPosts {
		if p.ID == id {
			e.ownPosts = append(e.ownPosts[:i], e.ownPosts[i+1:]...)
			found = true
			break
		}
	}

	e.mu.Unlock()

	if !found {
		return post.ErrPostNotFound
	}

	if e.store != nil {
		if err := e.store.DeleteOwnPost(ctx, id); err != nil {
			e.logger.Warn("error deleting own post", zap.String("post_id", id), zap.Error(err))
		}
	}

	return nil
}

// OwnPosts returns the user's published posts in creation order
func (e *MatchEngine) OwnPosts() []post.OwnPost {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]post.OwnPost, len(e.ownPosts))
	copy(out, e.ownPosts)
	return out
}

// Candidate returns a candidate by id, hidden ones included
func (e *MatchEngine) Candidate(id string) (*post.CandidatePost, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.catalogIndex[id]
	if !ok {
		return nil, post.ErrPostNotFound
	}

	c := e.catalog[i]
	return &c, nil
}

// SetShowHidden toggles hidden candidates in the visible set
func (e *MatchEngine) SetShowHidden(show bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.showHidden = show
}

// SetMapFilter replaces the per-category map toggles
func (e *MatchEngine) SetMapFilter(filter engine.MapFilter) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mapFilter = filter
}

// SetTagFilter replaces the tag filter; an empty set disables filtering
func (e *MatchEngine) SetTagFilter(tags []post.Tag) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tagFilter = append([]post.Tag(nil), tags...)
}

// RegisterMatchHandler registers a callback for match events
func (e *MatchEngine) RegisterMatchHandler(handler func(engine.MatchEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.matchHandlers = append(e.matchHandlers, handler)
}

// Stop cancels pending reply tasks and waits for them to drain
func (e *MatchEngine) Stop(ctx context.Context) error {
	// Signal all reply goroutines to stop
	e.cancel()

	c := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(c)
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// persistCandidate writes a candidate through to storage, logging failures
func (e *MatchEngine) persistCandidate(ctx context.Context, c post.CandidatePost) {
	if e.store == nil {
		return
	}

	if err := e.store.SaveCandidate(ctx, c); err != nil {
		e.logger.Warn("error saving candidate", zap.String("post_id", c.ID), zap.Error(err))
	}
}

// persistSession snapshots a session, logging failures
func (e *MatchEngine) persistSession(ctx context.Context, s chat.Session) {
	if e.store == nil {
		return
	}

	if err := e.store.SaveSession(ctx, s); err != nil {
		e.logger.Warn("error saving session", zap.String("post_id", s.PostID), zap.Error(err))
	}
}
