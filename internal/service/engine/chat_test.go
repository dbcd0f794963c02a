package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosspath/internal/domain/chat"
	"crosspath/internal/domain/post"
)

func matchCandidate(t *testing.T, e *MatchEngine, id, name string) {
	t.Helper()

	seedCandidates(e, candidateAt(id, name, 0, 0.001, post.StatusLikedByThem))
	_, err := e.Connect(context.Background(), id)
	require.NoError(t, err)
}

func messageCount(e *MatchEngine, postID string) int {
	session, err := e.Session(postID)
	if err != nil {
		return -1
	}
	return len(session.Messages)
}

func TestOpenChat_ClearsUnreadAndFocuses(t *testing.T) {
	e := newTestEngine(nil, nil, nil)
	matchCandidate(t, e, "c1", "Ana")

	session, err := e.OpenChat(context.Background(), "c1")
	require.NoError(t, err)
	assert.Zero(t, session.Unread)
	assert.Zero(t, e.UnreadTotal())
}

func TestOpenChat_RecoversMissingSession(t *testing.T) {
	store := newMemStore()

	first := newTestEngine(store, nil, nil)
	matchCandidate(t, first, "c1", "Ana")

	// Restart: statuses survive, sessions do not
	second := newTestEngine(store, nil, nil)
	require.NoError(t, second.Restore(context.Background()))

	session, err := second.OpenChat(context.Background(), "c1")
	require.NoError(t, err)

	// Recovery seeds only the system message, no synthesized opener
	require.Len(t, session.Messages, 1)
	assert.Equal(t, chat.SenderSystem, session.Messages[0].Sender)
	assert.Zero(t, session.Unread)
}

func TestOpenChat_UnknownOrUnmatched(t *testing.T) {
	e := newTestEngine(nil, nil, nil)
	seedCandidates(e, candidateAt("c1", "Ana", 0, 0.001, post.StatusPending))

	_, err := e.OpenChat(context.Background(), "c1")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)

	_, err = e.OpenChat(context.Background(), "missing")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestSendMessage_FocusedSessionStaysRead(t *testing.T) {
	e := newTestEngine(nil, nil, &stubOpenerSource{opener: "Hi!", reply: "For sure"})
	matchCandidate(t, e, "c1", "Ana")

	_, err := e.OpenChat(context.Background(), "c1")
	require.NoError(t, err)

	msg, err := e.SendMessage(context.Background(), "c1", "How about tomorrow?")
	require.NoError(t, err)
	assert.Equal(t, chat.SenderUser, msg.Sender)

	// Typing flag is up until the reply lands
	session, err := e.Session("c1")
	require.NoError(t, err)
	assert.True(t, session.PartnerTyping)

	require.Eventually(t, func() bool {
		return messageCount(e, "c1") == 4
	}, time.Second, 5*time.Millisecond)

	session, err = e.Session("c1")
	require.NoError(t, err)
	assert.False(t, session.PartnerTyping)
	assert.Equal(t, "For sure", session.Messages[3].Text)
	assert.Equal(t, chat.SenderPartner, session.Messages[3].Sender)

	// The focused session never accrues unread
	assert.Zero(t, session.Unread)
}

func TestSendMessage_UnfocusedSessionAccruesUnread(t *testing.T) {
	e := newTestEngine(nil, nil, nil)
	matchCandidate(t, e, "c1", "Ana")

	_, err := e.OpenChat(context.Background(), "c1")
	require.NoError(t, err)

	_, err = e.SendMessage(context.Background(), "c1", "Walk later?")
	require.NoError(t, err)

	// The user navigates away before the reply lands
	e.CloseChat("c1")

	require.Eventually(t, func() bool {
		return messageCount(e, "c1") == 4
	}, time.Second, 5*time.Millisecond)

	session, err := e.Session("c1")
	require.NoError(t, err)
	assert.Equal(t, 1, session.Unread)
	assert.Equal(t, 1, e.UnreadTotal())
}

func TestSendMessage_ReplyFailureFallsBack(t *testing.T) {
	e := newTestEngine(nil, nil, &stubOpenerSource{opener: "Hi!", replyErr: errUnavailable})
	matchCandidate(t, e, "c1", "Ana")

	_, err := e.OpenChat(context.Background(), "c1")
	require.NoError(t, err)

	_, err = e.SendMessage(context.Background(), "c1", "Hello?")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return messageCount(e, "c1") == 4
	}, time.Second, 5*time.Millisecond)

	session, err := e.Session("c1")
	require.NoError(t, err)
	assert.Equal(t, testEngineConfig().DefaultReply, session.Messages[3].Text)
}

func TestSendMessage_NoSession(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	_, err := e.SendMessage(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestUnmatch_DiscardsPendingReply(t *testing.T) {
	e := newTestEngine(nil, nil, nil)
	matchCandidate(t, e, "c1", "Ana")

	_, err := e.OpenChat(context.Background(), "c1")
	require.NoError(t, err)

	_, err = e.SendMessage(context.Background(), "c1", "Actually, never mind")
	require.NoError(t, err)

	require.NoError(t, e.Unmatch(context.Background(), "c1"))

	// Wait well past the reply delay; the stale reply must not resurrect
	// the destroyed session
	time.Sleep(5 * testEngineConfig().ReplyDelay)

	_, err = e.Session("c1")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	assert.Empty(t, e.Sessions())
}

func TestStop_CancelsPendingReplies(t *testing.T) {
	e := newTestEngine(nil, nil, nil)
	matchCandidate(t, e, "c1", "Ana")

	_, err := e.OpenChat(context.Background(), "c1")
	require.NoError(t, err)

	_, err = e.SendMessage(context.Background(), "c1", "Still there?")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Stop(ctx))

	time.Sleep(5 * testEngineConfig().ReplyDelay)

	// The user message is the last one; no reply was appended
	assert.Equal(t, 3, messageCount(e, "c1"))
}

func TestSessions_SummariesAndBadge(t *testing.T) {
	e := newTestEngine(nil, nil, &stubOpenerSource{opener: "Hey there", reply: "Yes"})
	matchCandidate(t, e, "c1", "Ana")
	matchCandidate(t, e, "c2", "Bruno")

	summaries := e.Sessions()
	require.Len(t, summaries, 2)
	assert.Equal(t, "Hey there", summaries[0].LastMessage)
	assert.Equal(t, 2, e.UnreadTotal())

	_, err := e.OpenChat(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.UnreadTotal())
}
