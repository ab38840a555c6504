package fetcher

import (
	"github.com/NetCenter-Dev/Fetcher/internal/adapters/sampler"
	"github.com/NetCenter-Dev/Fetcher/internal/app/config"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls queue capacity and backpressure.
	Policy = ports.Policy
	// AgentConfig binds an agent file to a value source.
	AgentConfig = config.AgentConfig
	// ParserConfig toggles strict agent parsing.
	ParserConfig = config.ParserConfig
	// TransportConfig selects and tunes the outbound transport.
	TransportConfig = config.TransportConfig
	// RedisConfig configures the Redis transport.
	RedisConfig = config.RedisConfig
	// PostgresConfig configures the SQL transport.
	PostgresConfig = config.PostgresConfig
	// OPCUAConfig holds OPC UA connection details.
	OPCUAConfig = sampler.OPCUAConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LoggerConfig configures the zap logger.
	LoggerConfig = config.LoggerConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
