package fetcher

import (
	"github.com/NetCenter-Dev/Fetcher/internal/adapters/conf"
	"github.com/NetCenter-Dev/Fetcher/internal/adapters/wire"
	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

// Agent is the typed model of a monitored source, as produced by ParseAgent.
type Agent = domain.Agent

// Packet is one timestamped observation on its way to the transport.
type Packet = domain.Packet

// SeverityClass orders packet messages from info to emergency.
type SeverityClass = domain.SeverityClass

const (
	SeverityInfo      = domain.SeverityInfo
	SeverityWarning   = domain.SeverityWarning
	SeverityAlarm     = domain.SeverityAlarm
	SeverityError     = domain.SeverityError
	SeverityEmergency = domain.SeverityEmergency
)

// Frame is an encoded packet as handed to a Transport.
type Frame = ports.Frame

// DecodedFrame is the result of DecodeFrame.
type DecodedFrame = wire.Frame

// Transport delivers frames to a remote system.
type Transport = ports.Transport

// Sampler produces the value of an agent on each tick.
type Sampler = ports.Sampler

// Reading is a sampler result.
type Reading = ports.Reading

// PacketQueue is the bounded queue between samplers and the transport.
type PacketQueue = ports.PacketQueue

// Observability emits metrics and logs about throughput, latency and DLQ conditions.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// ParseAgent parses an agent definition. Unknown keys are ignored unless
// strict is set.
func ParseAgent(text string, strict bool) (*Agent, error) {
	return conf.Parse(text, conf.WithStrict(strict))
}

// DecodeFrame parses a frame produced by the runtime's encoder.
func DecodeFrame(buf []byte) (*DecodedFrame, error) {
	return wire.Decode(buf)
}
