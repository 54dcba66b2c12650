// Package redispresence keeps participant presence in redis so every server
// instance sees the same online flags.
package redispresence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 2 * time.Minute

// Tracker stores one hash per room, duel:presence:{code}, mapping participant
// id to open connection count. The key expires after TTL without activity so a
// crashed server does not leave participants online forever.
type Tracker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewTracker(client redis.UniversalClient, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{client: client, ttl: ttl}
}

func Key(code string) string {
	return "duel:presence:{" + code + "}"
}

func (t *Tracker) Connected(ctx context.Context, code, participantID string) error {
	key := Key(code)
	pipe := t.client.TxPipeline()
	pipe.HIncrBy(ctx, key, participantID, 1)
	pipe.Expire(ctx, key, t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence connect: %w", err)
	}
	return nil
}

var decrScript = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
if n <= 0 then
  redis.call('HDEL', KEYS[1], ARGV[1])
end
return n
`)

func (t *Tracker) Disconnected(ctx context.Context, code, participantID string) error {
	if err := decrScript.Run(ctx, t.client, []string{Key(code)}, participantID).Err(); err != nil {
		return fmt.Errorf("presence disconnect: %w", err)
	}
	return nil
}

func (t *Tracker) IsOnline(ctx context.Context, code, participantID string) (bool, error) {
	n, err := t.client.HGet(ctx, Key(code), participantID).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("presence lookup: %w", err)
	}
	return n > 0, nil
}

// Touch extends the room key's TTL while connections are alive.
func (t *Tracker) Touch(ctx context.Context, code string) error {
	return t.client.Expire(ctx, Key(code), t.ttl).Err()
}
