package mq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tablematch/models"
	"tablematch/rdx"
)

const channelPrefix = "session-events:"

// Publisher pushes a change event onto a session's channel. Delivery is
// best effort and at most once; state reads never depend on it.
type Publisher interface {
	Publish(ctx context.Context, event models.ChangeEvent)
}

// RedisEmitter publishes change events over redis pub/sub so every gateway
// process sees mutations committed by its peers.
type RedisEmitter struct{}

func (RedisEmitter) Publish(ctx context.Context, event models.ChangeEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[mq] marshal event: %v", err)
		return
	}
	if err := rdx.Conn.Publish(ctx, channelPrefix+event.SessionID, data).Err(); err != nil {
		log.Printf("[mq] publish %s to session %s: %v", event.Topic, event.SessionID, err)
	}
}

// Subscribe fans every session's change events into one channel until ctx
// is cancelled. Used by the live hub to feed websocket rooms.
func Subscribe(ctx context.Context) <-chan models.ChangeEvent {
	out := make(chan models.ChangeEvent, 64)
	sub := rdx.Conn.PSubscribe(ctx, channelPrefix+"*")

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var event models.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("[mq] parse event: %v", err)
					continue
				}
				select {
				case out <- event:
				default:
					log.Printf("[mq] dropping %s event for session %s: subscriber backlog", event.Topic, event.SessionID)
				}
			}
		}
	}()
	return out
}

// NopPublisher drops events. Used in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.ChangeEvent) {}
