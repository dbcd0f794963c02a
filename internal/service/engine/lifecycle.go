package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"crosspath/internal/domain/chat"
	"crosspath/internal/domain/engine"
	"crosspath/internal/domain/post"
)

// Connect likes a candidate. Liking a pending candidate records the like;
// liking an inbound like forms a match and seeds its chat session. Connect
// is undefined on matched or hidden candidates.
func (e *MatchEngine) Connect(ctx context.Context, id string) (post.Status, error) {
	e.mu.Lock()

	i, ok := e.catalogIndex[id]
	if !ok {
		e.mu.Unlock()
		return "", post.ErrPostNotFound
	}

	c := e.catalog[i]

	switch c.Status {
	case post.StatusPending:
		e.catalog[i].Status = post.StatusLikedByMe
		updated := e.catalog[i]
		e.mu.Unlock()

		e.persistCandidate(ctx, updated)
		e.publishStatusEvent(updated.ID, post.StatusPending, post.StatusLikedByMe)
		e.logger.Info("like sent", zap.String("post_id", id))

		return post.StatusLikedByMe, nil

	case post.StatusLikedByThem:
		e.catalog[i].Status = post.StatusMatched
		updated := e.catalog[i]

		session := e.seedSessionLocked(ctx, updated)
		e.mu.Unlock()

		e.persistCandidate(ctx, updated)
		e.persistSession(ctx, *session)

		event := engine.MatchEvent{
			PostID:      updated.ID,
			PartnerName: updated.Author.Name,
			MatchedAt:   time.Now(),
		}
		e.publishMatchEvent(event)
		e.callMatchHandlers(event)

		return post.StatusMatched, nil

	default:
		e.mu.Unlock()
		return "", post.ErrInvalidTransition
	}
}

// Reject hides a candidate. The post stays in the catalog and remains
// addressable. Reject is undefined on matched candidates and on inbound
// likes, which must either be connected or left pending.
func (e *MatchEngine) Reject(ctx context.Context, id string) error {
	e.mu.Lock()

	i, ok := e.catalogIndex[id]
	if !ok {
		e.mu.Unlock()
		return post.ErrPostNotFound
	}

	prev := e.catalog[i].Status
	if prev != post.StatusPending && prev != post.StatusLikedByMe {
		e.mu.Unlock()
		return post.ErrInvalidTransition
	}

	e.catalog[i].Status = post.StatusHidden
	updated := e.catalog[i]
	e.mu.Unlock()

	e.persistCandidate(ctx, updated)
	e.publishStatusEvent(id, prev, post.StatusHidden)

	return nil
}

// Unmatch resets a matched candidate to pending so the pair can re-enter
// discovery, destroys its chat session and cancels any in-flight reply.
func (e *MatchEngine) Unmatch(ctx context.Context, id string) error {
	e.mu.Lock()

	i, ok := e.catalogIndex[id]
	if !ok {
		e.mu.Unlock()
		return post.ErrPostNotFound
	}

	if e.catalog[i].Status != post.StatusMatched {
		e.mu.Unlock()
		return post.ErrInvalidTransition
	}

	e.catalog[i].Status = post.StatusPending
	updated := e.catalog[i]

	delete(e.sessions, id)
	if e.focusedPostID == id {
		e.focusedPostID = ""
	}
	e.cancelReplyLocked(id)
	e.mu.Unlock()

	e.persistCandidate(ctx, updated)

	if e.store != nil {
		if err := e.store.DeleteSession(ctx, id); err != nil {
			e.logger.Warn("error deleting session", zap.String("post_id", id), zap.Error(err))
		}
	}

	e.publishStatusEvent(id, post.StatusMatched, post.StatusPending)

	return nil
}

// seedSessionLocked creates the chat session for a fresh match: a system
// message, a partner opener, unread count 1 to surface the badge. Callers
// must hold the engine mutex.
func (e *MatchEngine) seedSessionLocked(ctx context.Context, c post.CandidatePost) *chat.Session {
	now := time.Now()

	session := &chat.Session{
		PostID:           c.ID,
		PartnerName:      c.Author.Name,
		PartnerAvatarURL: c.Author.AvatarURL,
		Unread:           1,
		CreatedAt:        now,
	}

	session.Messages = append(session.Messages, e.systemMatchMessage(c.Author.Name, now))

	opener, err := e.openers.GenerateOpener(ctx, c.Title)
	if err != nil {
		// Opener failures never abort a match
		e.logger.Warn("opener source unavailable", zap.String("post_id", c.ID), zap.Error(err))
		opener = e.config.DefaultOpener
	}

	session.Messages = append(session.Messages, chat.Message{
		ID:     newMessageID(),
		Sender: chat.SenderPartner,
		Text:   opener,
		SentAt: now,
	})

	e.sessions[c.ID] = session
	return session
}

// callMatchHandlers calls all registered match handlers
func (e *MatchEngine) callMatchHandlers(event engine.MatchEvent) {
	e.mu.Lock()
	handlers := make([]func(engine.MatchEvent), len(e.matchHandlers))
	copy(handlers, e.matchHandlers)
	e.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}
