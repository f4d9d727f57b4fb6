package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notifications:"

// Event is the envelope pushed to websocket clients.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Publisher fans events out through Redis so every API instance can reach
// its own websocket clients. Without Redis it delivers to the local hub.
type Publisher struct {
	rdb *redis.Client
	hub *Hub
	log *slog.Logger
}

func NewPublisher(rdb *redis.Client, hub *Hub, log *slog.Logger) *Publisher {
	return &Publisher{rdb: rdb, hub: hub, log: log}
}

func (p *Publisher) Notify(ctx context.Context, recipients []uuid.UUID, eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, At: time.Now().UTC()})
	if err != nil {
		p.log.Error("marshal event", "type", eventType, "err", err)
		return
	}

	seen := make(map[uuid.UUID]bool, len(recipients))
	for _, uid := range recipients {
		if uid == uuid.Nil || seen[uid] {
			continue
		}
		seen[uid] = true

		if p.rdb != nil {
			err := p.rdb.Publish(ctx, channelPrefix+uid.String(), payload).Err()
			if err == nil {
				continue
			}
			p.log.Warn("redis publish failed, delivering locally", "user_id", uid, "err", err)
		}
		p.hub.SendToUser(uid, payload)
	}
}

// Subscribe forwards every notifications:* message to the local hub until
// ctx is cancelled. It is a no-op without Redis.
func (p *Publisher) Subscribe(ctx context.Context) error {
	if p.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := p.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			uid, err := uuid.Parse(strings.TrimPrefix(msg.Channel, channelPrefix))
			if err != nil {
				p.log.Warn("ignoring message on unexpected channel", "channel", msg.Channel)
				continue
			}
			p.hub.SendToUser(uid, []byte(msg.Payload))
		}
	}
}
