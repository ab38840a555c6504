package fetcher

import (
	base "github.com/NetCenter-Dev/Fetcher/pkg/fetcher"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull              = base.ErrQueueFull
	ErrUnknownAgent           = base.ErrUnknownAgent
	ErrAlreadyStarted         = base.ErrAlreadyStarted
	ErrChannelTransportClosed = base.ErrChannelTransportClosed
)

// Type aliases so consumers can import github.com/NetCenter-Dev/Fetcher directly.
type (
	Config          = base.Config
	Policy          = base.Policy
	AgentConfig     = base.AgentConfig
	TransportConfig = base.TransportConfig
	OPCUAConfig     = base.OPCUAConfig
	MetricsConfig   = base.MetricsConfig
	LoggerConfig    = base.LoggerConfig
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	StreamInOption  = base.StreamInOption
	StreamOutOption = base.StreamOutOption
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	Stats           = base.Stats
	Agent           = base.Agent
	Packet          = base.Packet
	Frame           = base.Frame
	DecodedFrame    = base.DecodedFrame
	FrameHandler    = base.FrameHandler
	Transport       = base.Transport
	Sampler         = base.Sampler
	Reading         = base.Reading
	PacketQueue     = base.PacketQueue
	Observability   = base.Observability
	Field           = base.Field
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func ParseAgent(text string, strict bool) (*Agent, error) {
	return base.ParseAgent(text, strict)
}

func DecodeFrame(buf []byte) (*DecodedFrame, error) {
	return base.DecodeFrame(buf)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInSampler(agent string, s Sampler) StreamInOption {
	return base.StreamInSampler(agent, s)
}

func StreamInAgents(agents ...*Agent) StreamInOption {
	return base.StreamInAgents(agents...)
}

func StreamInQueue(q PacketQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutTransport(t Transport) StreamOutOption {
	return base.StreamOutTransport(t)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn FrameHandler) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithTransport(t Transport) RuntimeOption {
	return base.WithTransport(t)
}

func WithSampler(agent string, s Sampler) RuntimeOption {
	return base.WithSampler(agent, s)
}

func WithAgents(agents ...*Agent) RuntimeOption {
	return base.WithAgents(agents...)
}

func WithQueue(q PacketQueue) RuntimeOption {
	return base.WithQueue(q)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Transport adapters.
func NewCallbackTransport(name string, fn FrameHandler) Transport {
	return base.NewCallbackTransport(name, fn)
}

func NewChannelTransport(name string, buffer int) (Transport, <-chan Frame, func()) {
	return base.NewChannelTransport(name, buffer)
}
