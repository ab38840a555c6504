package transport

import (
	"context"
	"encoding/hex"

	"github.com/NetCenter-Dev/Fetcher/internal/ports"
	"go.uber.org/zap"
)

// Log writes every frame to a zap logger. It is the default transport
// and never fails.
type Log struct {
	log  *zap.Logger
	dump bool
}

// NewLog returns a log transport. With dump set the frame bytes are
// included as hex.
func NewLog(logger *zap.Logger, dump bool) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{log: logger.With(zap.String("mod", "transport")), dump: dump}
}

func (t *Log) Name() string { return "log" }

func (t *Log) Send(_ context.Context, f ports.Frame) error {
	fields := []zap.Field{
		zap.String("agent", f.Agent),
		zap.Stringer("class", f.Class),
		zap.Uint64("ts_ms", f.TimestampMs),
		zap.Int("bytes", len(f.Data)),
	}
	if t.dump {
		fields = append(fields, zap.String("frame", hex.EncodeToString(f.Data)))
	}
	t.log.Info("frame", fields...)
	return nil
}

var _ ports.Transport = (*Log)(nil)
