package transport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

type fakeRedis struct {
	op      string
	key     string
	payload []byte
	err     error
}

func (f *fakeRedis) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.op, f.key, f.payload = "rpush", key, values[0].([]byte)
	return redis.NewIntResult(1, f.err)
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.op, f.key, f.payload = "publish", channel, message.([]byte)
	return redis.NewIntResult(0, f.err)
}

func TestRedisModes(t *testing.T) {
	sender := uuid.New()
	frame := ports.Frame{Agent: "mem", Class: domain.SeverityWarning, TimestampMs: 42, Data: []byte{0xca, 0xfe}}

	for _, tc := range []struct {
		mode RedisMode
		op   string
	}{{"", "rpush"}, {RedisList, "rpush"}, {RedisChannel, "publish"}} {
		fake := &fakeRedis{}
		tr, err := NewRedis(fake, "fetcher:frames", tc.mode, sender)
		if err != nil {
			t.Fatalf("new %q: %v", tc.mode, err)
		}
		if err := tr.Send(context.Background(), frame); err != nil {
			t.Fatalf("send %q: %v", tc.mode, err)
		}
		if fake.op != tc.op || fake.key != "fetcher:frames" {
			t.Fatalf("mode %q used %s on %s", tc.mode, fake.op, fake.key)
		}

		var env Envelope
		if err := json.Unmarshal(fake.payload, &env); err != nil {
			t.Fatalf("envelope: %v", err)
		}
		if env.Sender != sender.String() || env.Agent != "mem" || env.Class != "warning" || env.TimestampMs != 42 {
			t.Fatalf("unexpected envelope %+v", env)
		}
		if string(env.Frame) != string(frame.Data) {
			t.Fatalf("frame bytes %v", env.Frame)
		}
	}
}

func TestRedisSendError(t *testing.T) {
	fake := &fakeRedis{err: errors.New("READONLY")}
	tr, _ := NewRedis(fake, "k", RedisList, uuid.New())
	if err := tr.Send(context.Background(), ports.Frame{}); err == nil {
		t.Fatalf("expected redis error")
	}
}

func TestNewRedisValidates(t *testing.T) {
	if _, err := NewRedis(&fakeRedis{}, "", RedisList, uuid.New()); err == nil {
		t.Fatalf("expected empty key error")
	}
	if _, err := NewRedis(&fakeRedis{}, "k", "stream", uuid.New()); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}
