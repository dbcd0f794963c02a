package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crosspath/internal/domain/chat"
	"crosspath/internal/domain/engine"
	"crosspath/internal/domain/post"
)

// publish sends an event to the bus. The bus is optional and publish
// failures only get logged; events are a side channel, not engine state.
func (e *MatchEngine) publish(subject string, payload interface{}) {
	if e.eventBus == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Warn("error marshaling event", zap.String("subject", subject), zap.Error(err))
		return
	}

	if err := e.eventBus.Publish(subject, data); err != nil {
		e.logger.Warn("error publishing event", zap.String("subject", subject), zap.Error(err))
	}
}

// publishMatchEvent publishes a match-formed event
func (e *MatchEngine) publishMatchEvent(event engine.MatchEvent) {
	subject := fmt.Sprintf("%s.match.formed", e.config.EventsTopic)
	e.publish(subject, map[string]interface{}{
		"post_id":      event.PostID,
		"partner_name": event.PartnerName,
		"matched_at":   event.MatchedAt,
	})
}

// publishStatusEvent publishes a candidate status change
func (e *MatchEngine) publishStatusEvent(postID string, prev, next post.Status) {
	subject := fmt.Sprintf("%s.status.changed", e.config.EventsTopic)
	e.publish(subject, map[string]interface{}{
		"post_id":     postID,
		"prev_status": prev,
		"new_status":  next,
	})
}

// publishChatEvent publishes chat activity scoped to a session subject so
// websocket clients can subscribe per chat
func (e *MatchEngine) publishChatEvent(kind, postID string, msg chat.Message) {
	subject := fmt.Sprintf("%s.chat.%s.%s", e.config.EventsTopic, kind, postID)
	e.publish(subject, map[string]interface{}{
		"post_id": postID,
		"id":      msg.ID,
		"sender":  msg.Sender,
		"text":    msg.Text,
		"sent_at": msg.SentAt,
	})
}

// publishTypingEvent publishes the partner typing flag for a session
func (e *MatchEngine) publishTypingEvent(postID string, typing bool) {
	subject := fmt.Sprintf("%s.chat.typing.%s", e.config.EventsTopic, postID)
	e.publish(subject, map[string]interface{}{
		"post_id": postID,
		"typing":  typing,
		"at":      time.Now(),
	})
}
