package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// OpenerGenerator produces partner-authored chat lines. It implements
// chat.OpenerSource.
type OpenerGenerator struct {
	rand *rand.Rand
	mu   sync.Mutex
}

// NewOpenerGenerator creates a new opener generator
func NewOpenerGenerator() *OpenerGenerator {
	return &OpenerGenerator{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var openerTemplates = []string{
	"Hey! I saw your post \"%s\" and had to say hi",
	"\"%s\" sounds exactly like my kind of plan",
	"So, about \"%s\" - when were you thinking?",
	"I was just about to post something like \"%s\" myself!",
}

var replyLines = []string{
	"Ha, good point!",
	"Exactly what I was thinking",
	"Okay, you've convinced me",
	"Tell me more about that",
	"Same here, honestly",
	"Deal. What time works for you?",
}

// GenerateOpener returns an opening line keyed by the post title
func (g *OpenerGenerator) GenerateOpener(ctx context.Context, postTitle string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	template := openerTemplates[g.rand.Intn(len(openerTemplates))]
	return fmt.Sprintf(template, postTitle), nil
}

// GenerateReply returns a reply to a user message
func (g *OpenerGenerator) GenerateReply(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return replyLines[g.rand.Intn(len(replyLines))], nil
}
