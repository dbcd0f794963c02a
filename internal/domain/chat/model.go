package chat

import (
	"context"
	"errors"
	"time"
)

// Sender identifies who authored a message
type Sender string

const (
	SenderUser    Sender = "user"
	SenderPartner Sender = "partner"
	SenderSystem  Sender = "system"
)

// Message is a single chat line. Immutable once appended; ordering is append
// order, the timestamp is informational only.
type Message struct {
	ID     string
	Sender Sender
	Text   string
	SentAt time.Time
}

// Session is the message thread for a matched candidate post. Sessions are
// keyed by the originating post id and destroyed on unmatch.
type Session struct {
	PostID           string
	PartnerName      string
	PartnerAvatarURL string
	Messages         []Message
	Unread           int
	PartnerTyping    bool
	CreatedAt        time.Time
}

// Summary is the list-view projection of a session
type Summary struct {
	PostID      string
	PartnerName string
	LastMessage string
	Unread      int
}

// ErrSessionNotFound is returned when no session exists for the given post id
var ErrSessionNotFound = errors.New("chat session not found")

// OpenerSource generates partner-authored chat lines. Failures degrade to
// fixed fallback text; they never abort a match.
type OpenerSource interface {
	// GenerateOpener returns an opening line keyed by the post title
	GenerateOpener(ctx context.Context, postTitle string) (string, error)

	// GenerateReply returns a reply to a user message
	GenerateReply(ctx context.Context, message string) (string, error)
}
