package ports

import (
	"context"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
)

// Reading is what a sampler observed for an agent on one tick.
// Code selects the agent's message template; Text fills its %m.
type Reading struct {
	Value any
	Code  int
	Text  string
}

type Sampler interface {
	Sample(ctx context.Context, agent *domain.Agent) (Reading, error)
	Name() string
}
