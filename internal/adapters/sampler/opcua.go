package sampler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
)

// OPCUAConfig captures the runtime details required to open an OPC UA session.
type OPCUAConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	SecurityMode    string        `yaml:"security_mode"`
	SecurityPolicy  string        `yaml:"security_policy"`
	ApplicationName string        `yaml:"application_name"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

func (c *OPCUAConfig) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "Fetcher"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

func (c *OPCUAConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("opcua endpoint is required")
	}
	return nil
}

// nodeReader is the part of *opcua.Client used per tick.
type nodeReader interface {
	Read(ctx context.Context, req *ua.ReadRequest) (*ua.ReadResponse, error)
	Close(ctx context.Context) error
}

// OPCUA reads one node per agent over a shared session. The session is
// opened on first use and reopened after a failed read.
type OPCUA struct {
	cfg   OPCUAConfig
	dial  func(ctx context.Context) (nodeReader, error)
	mu    sync.Mutex
	conn  nodeReader
	nodes map[string]*ua.NodeID
}

func NewOPCUA(cfg OPCUAConfig) (*OPCUA, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &OPCUA{cfg: cfg, nodes: make(map[string]*ua.NodeID)}
	s.dial = s.connect
	return s, nil
}

// Bind assigns an OPC UA node, e.g. "ns=2;s=Boiler.Temp", to the named agent.
func (s *OPCUA) Bind(agent, nodeID string) error {
	id, err := ua.ParseNodeID(nodeID)
	if err != nil {
		return fmt.Errorf("parse node id %q: %w", nodeID, err)
	}
	s.mu.Lock()
	s.nodes[agent] = id
	s.mu.Unlock()
	return nil
}

func (s *OPCUA) Name() string { return "opcua" }

func (s *OPCUA) Sample(ctx context.Context, agent *domain.Agent) (ports.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.nodes[agent.Name]
	if !ok {
		return ports.Reading{}, fmt.Errorf("opcua sampler: agent %q is not bound", agent.Name)
	}
	if s.conn == nil {
		conn, err := s.dial(ctx)
		if err != nil {
			return ports.Reading{}, err
		}
		s.conn = conn
	}

	resp, err := s.conn.Read(ctx, &ua.ReadRequest{
		NodesToRead:        []*ua.ReadValueID{{NodeID: id, AttributeID: ua.AttributeIDValue}},
		TimestampsToReturn: ua.TimestampsToReturnBoth,
	})
	if err != nil {
		_ = s.conn.Close(ctx)
		s.conn = nil
		return ports.Reading{}, fmt.Errorf("opcua read %s: %w", id, err)
	}
	if len(resp.Results) == 0 {
		return ports.Reading{}, fmt.Errorf("opcua read %s: empty result", id)
	}
	dv := resp.Results[0]
	if dv.Status != ua.StatusOK {
		return ports.Reading{}, fmt.Errorf("opcua read %s: %s", id, dv.Status)
	}
	if dv.Value == nil {
		return ports.Reading{}, fmt.Errorf("opcua read %s: no value", id)
	}

	v, err := coerce(agent.Type, dv.Value.Value())
	if err != nil {
		return ports.Reading{}, fmt.Errorf("opcua node %s: %w", id, err)
	}
	return ports.Reading{Value: v, Text: id.String()}, nil
}

// Close ends the session, if any.
func (s *OPCUA) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(ctx)
	s.conn = nil
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *OPCUA) connect(ctx context.Context) (nodeReader, error) {
	client, err := opcua.NewClient(s.cfg.Endpoint, s.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Connect(cctx); err != nil {
		return nil, fmt.Errorf("opcua connect: %w", err)
	}
	return client, nil
}

func (s *OPCUA) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(s.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(s.cfg.SecurityPolicy)),
		opcua.ApplicationName(s.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if s.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(s.cfg.Username, s.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.Sampler = (*OPCUA)(nil)
var _ nodeReader = (*opcua.Client)(nil)
