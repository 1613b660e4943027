package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisNotifier publishes events as JSON on a pub/sub channel.
type RedisNotifier struct {
	rdb     *goredis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisNotifier connects using a redis:// URL and pings the server.
func NewRedisNotifier(ctx context.Context, url, channel string, logger *slog.Logger) (*RedisNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if channel == "" {
		channel = "contracts:status"
	}
	return &RedisNotifier{rdb: rdb, channel: channel, logger: logger}, nil
}

func (n *RedisNotifier) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		n.logger.Warn("notify.redis.publish_failed", "doc_id", ev.DocumentID, "error", err)
		return err
	}
	return nil
}

// Subscribe delivers decoded events to fn until ctx is done.
func (n *RedisNotifier) Subscribe(ctx context.Context, fn func(Event)) error {
	sub := n.rdb.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				n.logger.Warn("notify.redis.bad_payload", "error", err)
				continue
			}
			fn(ev)
		}
	}
}

func (n *RedisNotifier) Close() error { return n.rdb.Close() }
