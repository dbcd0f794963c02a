package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crosspath/internal/domain/chat"
	"crosspath/internal/domain/post"
)

// replyTask is a scheduled partner reply, cancellable by session
type replyTask struct {
	cancel chan struct{}
}

// OpenChat focuses a session and clears its unread count. A matched
// candidate without a session gets one seeded lazily with only the system
// message; this is the recovery path for state restored without sessions.
func (e *MatchEngine) OpenChat(ctx context.Context, postID string) (*chat.Session, error) {
	e.mu.Lock()

	session, ok := e.sessions[postID]
	if !ok {
		i, exists := e.catalogIndex[postID]
		if !exists || e.catalog[i].Status != post.StatusMatched {
			e.mu.Unlock()
			return nil, chat.ErrSessionNotFound
		}

		c := e.catalog[i]
		now := time.Now()
		session = &chat.Session{
			PostID:           c.ID,
			PartnerName:      c.Author.Name,
			PartnerAvatarURL: c.Author.AvatarURL,
			Messages:         []chat.Message{e.systemMatchMessage(c.Author.Name, now)},
			CreatedAt:        now,
		}
		e.sessions[postID] = session
	}

	session.Unread = 0
	e.focusedPostID = postID

	snapshot := copySession(session)
	e.mu.Unlock()

	e.persistSession(ctx, *snapshot)

	return snapshot, nil
}

// CloseChat unfocuses the session if it is the focused one
func (e *MatchEngine) CloseChat(postID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.focusedPostID == postID {
		e.focusedPostID = ""
	}
}

// Session returns a session snapshot by post id
func (e *MatchEngine) Session(postID string) (*chat.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, ok := e.sessions[postID]
	if !ok {
		return nil, chat.ErrSessionNotFound
	}

	return copySession(session), nil
}

// SendMessage appends a user message, flags the partner as typing and
// schedules the delayed reply
func (e *MatchEngine) SendMessage(ctx context.Context, postID, text string) (*chat.Message, error) {
	e.mu.Lock()

	session, ok := e.sessions[postID]
	if !ok {
		e.mu.Unlock()
		return nil, chat.ErrSessionNotFound
	}

	msg := chat.Message{
		ID:     newMessageID(),
		Sender: chat.SenderUser,
		Text:   text,
		SentAt: time.Now(),
	}

	session.Messages = append(session.Messages, msg)
	session.PartnerTyping = true

	// A newer message supersedes any reply still pending
	e.cancelReplyLocked(postID)

	task := &replyTask{cancel: make(chan struct{})}
	e.replyTasks[postID] = task

	snapshot := copySession(session)
	e.mu.Unlock()

	e.persistSession(ctx, *snapshot)
	e.publishChatEvent("message", postID, msg)
	e.publishTypingEvent(postID, true)

	e.wg.Add(1)
	go e.runReplyTask(postID, text, task)

	return &msg, nil
}

// Sessions returns summaries of all live sessions, oldest first
func (e *MatchEngine) Sessions() []chat.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]chat.Summary, 0, len(e.sessions))
	for _, s := range e.sessions {
		summary := chat.Summary{
			PostID:      s.PostID,
			PartnerName: s.PartnerName,
			Unread:      s.Unread,
		}
		if len(s.Messages) > 0 {
			summary.LastMessage = s.Messages[len(s.Messages)-1].Text
		}
		out = append(out, summary)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := e.sessions[out[i].PostID], e.sessions[out[j].PostID]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return out[i].PostID < out[j].PostID
	})

	return out
}

// UnreadTotal returns the aggregate unread badge count
func (e *MatchEngine) UnreadTotal() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0
	for _, s := range e.sessions {
		total += s.Unread
	}
	return total
}

// runReplyTask waits out the reply delay, then delivers the partner reply
// unless the task was cancelled or the engine stopped
func (e *MatchEngine) runReplyTask(postID, userText string, task *replyTask) {
	defer e.wg.Done()

	timer := time.NewTimer(e.config.ReplyDelay)
	defer timer.Stop()

	select {
	case <-e.ctx.Done():
		return
	case <-task.cancel:
		return
	case <-timer.C:
	}

	// Generate the reply outside the lock; the source is fallible and
	// bounded-latency
	reply, err := e.openers.GenerateReply(e.ctx, userText)
	if err != nil {
		e.logger.Warn("reply source unavailable", zap.String("post_id", postID), zap.Error(err))
		reply = e.config.DefaultReply
	}

	e.mu.Lock()

	// Re-validate: the session must still exist, still belong to a matched
	// candidate, and this task must still be the current one. A stale reply
	// is discarded, never queued.
	session, ok := e.sessions[postID]
	if !ok || e.replyTasks[postID] != task {
		e.mu.Unlock()
		return
	}

	if i, exists := e.catalogIndex[postID]; !exists || e.catalog[i].Status != post.StatusMatched {
		e.mu.Unlock()
		return
	}

	msg := chat.Message{
		ID:     newMessageID(),
		Sender: chat.SenderPartner,
		Text:   reply,
		SentAt: time.Now(),
	}

	session.Messages = append(session.Messages, msg)
	session.PartnerTyping = false

	// A reply landing in an unfocused session surfaces as unread
	if e.focusedPostID != postID {
		session.Unread++
	}

	delete(e.replyTasks, postID)
	snapshot := copySession(session)
	e.mu.Unlock()

	e.persistSession(e.ctx, *snapshot)
	e.publishTypingEvent(postID, false)
	e.publishChatEvent("message", postID, msg)
}

// cancelReplyLocked cancels the pending reply for a session if one exists.
// Callers must hold the engine mutex.
func (e *MatchEngine) cancelReplyLocked(postID string) {
	if task, ok := e.replyTasks[postID]; ok {
		close(task.cancel)
		delete(e.replyTasks, postID)
	}
}

// systemMatchMessage builds the system seed message for a new session
func (e *MatchEngine) systemMatchMessage(partnerName string, at time.Time) chat.Message {
	return chat.Message{
		ID:     newMessageID(),
		Sender: chat.SenderSystem,
		Text:   fmt.Sprintf("You matched with %s", partnerName),
		SentAt: at,
	}
}

// newMessageID generates a message id
func newMessageID() string {
	return uuid.New().String()
}

// copySession returns a deep copy so callers never see concurrent mutation
func copySession(s *chat.Session) *chat.Session {
	out := *s
	out.Messages = make([]chat.Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return &out
}
