package ports

import (
	"context"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
)

// Frame is one encoded packet plus the metadata transports may index on.
type Frame struct {
	Agent       string
	Class       domain.SeverityClass
	TimestampMs uint64
	Data        []byte
}

type Transport interface {
	Send(ctx context.Context, f Frame) error
	Name() string
}
