package fetcher

import (
	"context"
	"errors"
)

// Flow chains Conf → StreamIN → StreamOUT into a Runtime.
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption runs once the configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the sampler/queue side of the pipeline.
type StreamInOption func(*Flow)

// StreamOutOption configures the transport/observability side of the pipeline.
type StreamOutOption func(*Flow)

// Conf reads the YAML config at path and starts a Flow.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig starts a Flow from a Config built in code.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, errors.New("fetcher: config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config exposes the configuration; edits apply to runtimes built afterwards.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw RuntimeOption values to the builder.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN records sampling-side overrides.
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT records delivery-side overrides and builds a Runtime ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Runtime, error) {
	if f == nil {
		return nil, errors.New("fetcher: nil flow")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run builds the runtime and blocks in Runtime.Run until ctx is done.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends RuntimeOption values during Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInSampler binds a custom sampler to one agent.
func StreamInSampler(agent string, s Sampler) StreamInOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSampler(agent, s))
		}
	}
}

// StreamInAgents uses pre-parsed agents instead of the config's agent files.
func StreamInAgents(agents ...*Agent) StreamInOption {
	return func(f *Flow) {
		if f != nil && len(agents) > 0 {
			f.appendOptions(WithAgents(agents...))
		}
	}
}

// StreamInQueue swaps the ring queue for a caller-provided implementation.
func StreamInQueue(q PacketQueue) StreamInOption {
	return func(f *Flow) {
		if f != nil && q != nil {
			f.appendOptions(WithQueue(q))
		}
	}
}

// StreamInObservability replaces the Prometheus/zap backend.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutTransport injects a custom Transport implementation.
func StreamOutTransport(t Transport) StreamOutOption {
	return func(f *Flow) {
		if f != nil && t != nil {
			f.appendOptions(WithTransport(t))
		}
	}
}

// StreamOutObservability is StreamInObservability on the delivery side.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutCallback installs a transport built from a simple callback function.
func StreamOutCallback(name string, fn FrameHandler) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithTransport(NewCallbackTransport(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
