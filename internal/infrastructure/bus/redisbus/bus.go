package redisbus

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"folio/internal/application/port"
	"folio/internal/domain/model"
)

// Bus carries invalidation events over a redis pub/sub channel so that
// every process sharing the cache hears about upstream data changes.
type Bus struct {
	rdb     *redis.Client
	channel string
}

func New(rdb *redis.Client, channel string) *Bus {
	if channel == "" {
		channel = "folio:invalidations"
	}
	return &Bus{rdb: rdb, channel: channel}
}

func (b *Bus) Publish(ctx context.Context, ev model.InvalidationEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, string(payload)).Err()
}

// Subscribe returns a channel of decoded events. The channel closes when ctx
// is cancelled. Messages that fail to decode are dropped with a warning so a
// bad producer cannot wedge every consumer.
func (b *Bus) Subscribe(ctx context.Context) (<-chan model.InvalidationEvent, error) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan model.InvalidationEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev model.InvalidationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn().Err(err).Str("channel", b.channel).Msg("dropping undecodable invalidation message")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error { return b.rdb.Close() }

var (
	_ port.InvalidationPublisher  = (*Bus)(nil)
	_ port.InvalidationSubscriber = (*Bus)(nil)
)
