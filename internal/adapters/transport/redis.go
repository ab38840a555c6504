package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NetCenter-Dev/Fetcher/internal/ports"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisMode selects how frames reach Redis.
type RedisMode string

const (
	RedisList    RedisMode = "list"    // RPUSH onto a key, consumers BLPOP
	RedisChannel RedisMode = "channel" // PUBLISH, no buffering
)

// redisWriter is the subset of *redis.Client the transport uses.
type redisWriter interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Envelope is what Redis consumers receive. Frame is the encoded packet,
// base64 in JSON.
type Envelope struct {
	Sender      string `json:"sender"`
	Agent       string `json:"agent"`
	Class       string `json:"class"`
	TimestampMs uint64 `json:"ts_ms"`
	Frame       []byte `json:"frame"`
}

type Redis struct {
	rdb    redisWriter
	key    string
	mode   RedisMode
	sender string
}

func NewRedis(rdb redisWriter, key string, mode RedisMode, sender uuid.UUID) (*Redis, error) {
	if key == "" {
		return nil, fmt.Errorf("redis transport: empty key")
	}
	switch mode {
	case "":
		mode = RedisList
	case RedisList, RedisChannel:
	default:
		return nil, fmt.Errorf("redis transport: unknown mode %q", mode)
	}
	return &Redis{rdb: rdb, key: key, mode: mode, sender: sender.String()}, nil
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (t *Redis) Name() string { return "redis-" + string(t.mode) }

func (t *Redis) Send(ctx context.Context, f ports.Frame) error {
	payload, err := json.Marshal(Envelope{
		Sender:      t.sender,
		Agent:       f.Agent,
		Class:       f.Class.String(),
		TimestampMs: f.TimestampMs,
		Frame:       f.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if t.mode == RedisChannel {
		return t.rdb.Publish(ctx, t.key, payload).Err()
	}
	return t.rdb.RPush(ctx, t.key, payload).Err()
}

var _ ports.Transport = (*Redis)(nil)
var _ redisWriter = (*redis.Client)(nil)
