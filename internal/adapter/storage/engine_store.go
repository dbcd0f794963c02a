package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"crosspath/internal/domain/chat"
	"crosspath/internal/domain/post"
)

// EngineStore implements write-through persistence for engine state. The
// engine stays authoritative in memory; this adapter only has to survive a
// restart with posts and candidate statuses intact. Session snapshots are
// written but never read back by the engine, which recovers matched sessions
// lazily.
type EngineStore struct {
	db *pgxpool.Pool
}

// NewEngineStore creates a new engine store
func NewEngineStore(db *pgxpool.Pool) *EngineStore {
	return &EngineStore{
		db: db,
	}
}

// SaveOwnPost saves an own post
func (s *EngineStore) SaveOwnPost(ctx context.Context, p post.OwnPost) error {
	query := `
		INSERT INTO own_posts (
			id, author_name, author_avatar_url, title, description,
			tags, image_url, latitude, longitude, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.Exec(
		ctx,
		query,
		p.ID,
		p.Author.Name,
		p.Author.AvatarURL,
		p.Title,
		p.Description,
		tagStrings(p.Tags),
		p.ImageURL,
		p.Position.Latitude,
		p.Position.Longitude,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving own post: %w", err)
	}

	return nil
}

// DeleteOwnPost deletes an own post
func (s *EngineStore) DeleteOwnPost(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM own_posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error deleting own post: %w", err)
	}
	return nil
}

// SaveCandidate saves a candidate post including its status
func (s *EngineStore) SaveCandidate(ctx context.Context, c post.CandidatePost) error {
	query := `
		INSERT INTO candidate_posts (
			id, author_name, author_avatar_url, title, description,
			tags, image_url, latitude, longitude, created_at, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET status = $11
	`

	_, err := s.db.Exec(
		ctx,
		query,
		c.ID,
		c.Author.Name,
		c.Author.AvatarURL,
		c.Title,
		c.Description,
		tagStrings(c.Tags),
		c.ImageURL,
		c.Position.Latitude,
		c.Position.Longitude,
		c.CreatedAt,
		string(c.Status),
	)
	if err != nil {
		return fmt.Errorf("error saving candidate: %w", err)
	}

	return nil
}

// SaveSession snapshots a chat session. Messages are stored as a JSON
// document; the engine never queries inside them.
func (s *EngineStore) SaveSession(ctx context.Context, session chat.Session) error {
	messagesJSON, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("error marshaling messages: %w", err)
	}

	query := `
		INSERT INTO chat_sessions (
			post_id, partner_name, partner_avatar_url, messages, unread, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (post_id) DO UPDATE
		SET messages = $4, unread = $5
	`

	_, err = s.db.Exec(
		ctx,
		query,
		session.PostID,
		session.PartnerName,
		session.PartnerAvatarURL,
		messagesJSON,
		session.Unread,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	return nil
}

// DeleteSession removes a session snapshot
func (s *EngineStore) DeleteSession(ctx context.Context, postID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM chat_sessions WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// LoadOwnPosts loads all own posts in creation order
func (s *EngineStore) LoadOwnPosts(ctx context.Context) ([]post.OwnPost, error) {
	query := `
		SELECT id, author_name, author_avatar_url, title, description,
		       tags, image_url, latitude, longitude, created_at
		FROM own_posts
		ORDER BY created_at
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var posts []post.OwnPost
	for rows.Next() {
		var p post.OwnPost
		var tags []string

		if err := rows.Scan(
			&p.ID, &p.Author.Name, &p.Author.AvatarURL, &p.Title, &p.Description,
			&tags, &p.ImageURL, &p.Position.Latitude, &p.Position.Longitude, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		p.Tags = postTags(tags)
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return posts, nil
}

// LoadCandidates loads all candidates with their statuses in creation order
func (s *EngineStore) LoadCandidates(ctx context.Context) ([]post.CandidatePost, error) {
	query := `
		SELECT id, author_name, author_avatar_url, title, description,
		       tags, image_url, latitude, longitude, created_at, status
		FROM candidate_posts
		ORDER BY created_at
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var candidates []post.CandidatePost
	for rows.Next() {
		var c post.CandidatePost
		var tags []string
		var status string

		if err := rows.Scan(
			&c.ID, &c.Author.Name, &c.Author.AvatarURL, &c.Title, &c.Description,
			&tags, &c.ImageURL, &c.Position.Latitude, &c.Position.Longitude, &c.CreatedAt,
			&status,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		c.Tags = postTags(tags)
		c.Status = post.Status(status)
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return candidates, nil
}

// tagStrings converts tags for a text[] column
func tagStrings(tags []post.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

// postTags converts a text[] column back to tags
func postTags(tags []string) []post.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]post.Tag, len(tags))
	for i, t := range tags {
		out[i] = post.Tag(t)
	}
	return out
}
