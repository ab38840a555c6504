package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NetCenter-Dev/Fetcher/internal/adapters/conf"
	"github.com/NetCenter-Dev/Fetcher/internal/adapters/sampler"
	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
	"gopkg.in/yaml.v3"
)

const (
	SourceScript    = "script"
	SourceHost      = "host"
	SourceOPCUA     = "opcua"
	SourceHeartbeat = "heartbeat"
)

type Config struct {
	Agents    []AgentConfig       `yaml:"agents"`
	Parser    ParserConfig        `yaml:"parser"`
	Policy    ports.Policy        `yaml:"policy"`
	Transport TransportConfig     `yaml:"transport"`
	OPCUA     sampler.OPCUAConfig `yaml:"opcua"`
	Metrics   MetricsConfig       `yaml:"metrics"`
	Logger    LoggerConfig        `yaml:"logger"`

	// dir resolves relative agent file paths.
	dir string
}

// AgentConfig binds an agent definition file to a value source.
type AgentConfig struct {
	File   string `yaml:"file"`
	Source string `yaml:"source"`
	Metric string `yaml:"metric"`
	NodeID string `yaml:"node_id"`
}

type ParserConfig struct {
	Strict bool `yaml:"strict"`
}

type TransportConfig struct {
	Kind            string         `yaml:"kind"`
	Redis           RedisConfig    `yaml:"redis"`
	Postgres        PostgresConfig `yaml:"postgres"`
	RetryAttempts   uint           `yaml:"retry_attempts"`
	RetryDelay      time.Duration  `yaml:"retry_delay"`
	RateLimit       float64        `yaml:"rate_limit"`
	BreakerFailures uint32         `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration  `yaml:"breaker_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
	Mode     string `yaml:"mode"`
}

type PostgresConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Policy.QueueCapacity == 0 {
		c.Policy.QueueCapacity = 1024
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.SampleTimeout == 0 {
		c.Policy.SampleTimeout = 10 * time.Second
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Transport.Kind == "" {
		c.Transport.Kind = "log"
	}
	if c.Transport.RetryAttempts == 0 {
		c.Transport.RetryAttempts = 3
	}
	if c.Transport.RetryDelay == 0 {
		c.Transport.RetryDelay = 100 * time.Millisecond
	}
	if c.Transport.BreakerFailures == 0 {
		c.Transport.BreakerFailures = 5
	}
	if c.Transport.BreakerTimeout == 0 {
		c.Transport.BreakerTimeout = 30 * time.Second
	}
	if c.Transport.Redis.Key == "" {
		c.Transport.Redis.Key = "fetcher:frames"
	}
	if c.Transport.Redis.Mode == "" {
		c.Transport.Redis.Mode = "list"
	}
	if c.Transport.Postgres.Table == "" {
		c.Transport.Postgres.Table = "frames"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}

	c.OPCUA.ApplyDefaults()
}

func (c *Config) validate() error {
	if len(c.Agents) == 0 {
		return errors.New("at least one agent must be configured")
	}
	usesOPCUA := false
	for i, a := range c.Agents {
		if a.File == "" {
			return fmt.Errorf("agents[%d].file is required", i)
		}
		switch a.Source {
		case "", SourceScript, SourceHeartbeat:
		case SourceHost:
			if a.Metric == "" {
				return fmt.Errorf("agents[%d].metric is required for host source", i)
			}
		case SourceOPCUA:
			if a.NodeID == "" {
				return fmt.Errorf("agents[%d].node_id is required for opcua source", i)
			}
			usesOPCUA = true
		default:
			return fmt.Errorf("agents[%d].source %q is unknown", i, a.Source)
		}
	}
	if usesOPCUA {
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}

	switch c.Policy.OnQueueFull {
	case "block", "drop", "reject":
	default:
		return fmt.Errorf("policy.on_queue_full %q must be block, drop or reject", c.Policy.OnQueueFull)
	}
	if c.Policy.QueueCapacity < 0 {
		return fmt.Errorf("policy.queue_capacity must not be negative")
	}

	switch c.Transport.Kind {
	case "log":
	case "redis":
		if c.Transport.Redis.Addr == "" {
			return errors.New("transport.redis.addr is required")
		}
		if m := c.Transport.Redis.Mode; m != "list" && m != "channel" {
			return fmt.Errorf("transport.redis.mode %q must be list or channel", m)
		}
	case "postgres":
		if c.Transport.Postgres.ConnString == "" {
			return errors.New("transport.postgres.conn_string is required")
		}
	default:
		return fmt.Errorf("transport.kind %q is unknown", c.Transport.Kind)
	}
	if c.Transport.RateLimit < 0 {
		return errors.New("transport.rate_limit must not be negative")
	}

	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}

// LoadedAgent is a parsed and validated agent with its resolved source.
type LoadedAgent struct {
	Agent  *domain.Agent
	Source string
	Metric string
	NodeID string
}

// LoadAgents parses every agent file. Relative paths are resolved against
// the directory of the config file.
func (c *Config) LoadAgents() ([]LoadedAgent, error) {
	out := make([]LoadedAgent, 0, len(c.Agents))
	seen := make(map[string]string, len(c.Agents))

	for _, ac := range c.Agents {
		path := ac.File
		if !filepath.IsAbs(path) && c.dir != "" {
			path = filepath.Join(c.dir, path)
		}
		agent, err := conf.ParseFile(path, conf.WithStrict(c.Parser.Strict))
		if err != nil {
			return nil, err
		}
		if err := agent.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, dup := seen[agent.Name]; dup {
			return nil, fmt.Errorf("%s: agent %q already defined in %s", path, agent.Name, prev)
		}
		seen[agent.Name] = path

		source := ac.Source
		if source == "" {
			source = SourceHeartbeat
			if agent.Script != "" {
				source = SourceScript
			}
		}
		if source == SourceScript && agent.Script == "" {
			return nil, fmt.Errorf("%s: script source but agent %q has no script", path, agent.Name)
		}

		out = append(out, LoadedAgent{Agent: agent, Source: source, Metric: ac.Metric, NodeID: ac.NodeID})
	}
	return out, nil
}
