package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the Redis list an external mail worker pops from.
const DefaultQueue = "techauth:notifications"

// Job is the JSON document pushed onto the queue.
type Job struct {
	Message
	From     string    `json:"from,omitempty"`
	QueuedAt time.Time `json:"queued_at"`
}

// RedisNotifier enqueues rendered messages with LPUSH; a separate worker is
// expected to BRPOP and deliver them.
type RedisNotifier struct {
	mailer
	client *redis.Client
	queue  string
	from   string
}

func NewRedisNotifier(r *Renderer, client *redis.Client, queue, from string) *RedisNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	n := &RedisNotifier{client: client, queue: queue, from: from}
	n.mailer = mailer{renderer: r, deliver: n.deliver}
	return n
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (n *RedisNotifier) deliver(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(Job{Message: msg, From: n.from, QueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := n.client.LPush(ctx, n.queue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue %s notification: %w", msg.Kind, err)
	}
	return nil
}
