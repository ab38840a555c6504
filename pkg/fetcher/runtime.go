package fetcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/NetCenter-Dev/Fetcher/internal/adapters/observability"
	"github.com/NetCenter-Dev/Fetcher/internal/adapters/queue"
	"github.com/NetCenter-Dev/Fetcher/internal/adapters/sampler"
	"github.com/NetCenter-Dev/Fetcher/internal/adapters/transport"
	"github.com/NetCenter-Dev/Fetcher/internal/app/config"
	"github.com/NetCenter-Dev/Fetcher/internal/app/factory"
	"github.com/NetCenter-Dev/Fetcher/internal/app/pipeline"
	"github.com/NetCenter-Dev/Fetcher/internal/app/scheduler"
	"github.com/NetCenter-Dev/Fetcher/internal/clock"
	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	transport     Transport
	samplers      map[string]Sampler
	queue         PacketQueue
	observability Observability
	clock         clock.Clock
	logger        *zap.Logger
	agents        []*Agent
}

// WithTransport replaces the transport selected by the config.
func WithTransport(t Transport) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.transport = t
	}
}

// WithSampler binds a custom sampler to the named agent.
func WithSampler(agent string, s Sampler) RuntimeOption {
	return func(o *runtimeOverrides) {
		if o.samplers == nil {
			o.samplers = make(map[string]Sampler)
		}
		o.samplers[agent] = s
	}
}

// WithQueue injects a custom queue implementation.
func WithQueue(q PacketQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithClock drives scheduling and packet timestamps from c.
func WithClock(c clock.Clock) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.clock = c
	}
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *zap.Logger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = l
	}
}

// WithAgents uses already parsed agents instead of the files listed in the
// config. Agents without a sampler from WithSampler get a heartbeat, or the
// script sampler when they carry a script.
func WithAgents(agents ...*Agent) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.agents = append(o.agents, agents...)
	}
}

var (
	ErrUnknownAgent   = errors.New("fetcher: unknown agent")
	ErrAlreadyStarted = errors.New("fetcher: runtime already started")
)

// Runtime wires agents → samplers → packet queue → transport and exposes
// simple lifecycle hooks for embedding the agent inside any Go service.
type Runtime struct {
	cfg       *Config
	id        uuid.UUID
	log       *zap.Logger
	obs       ports.Observability
	registry  *prometheus.Registry
	clock     clock.Clock
	queue     ports.PacketQueue
	transport ports.Transport
	factory   *factory.Factory
	sched     *scheduler.Scheduler
	agents    map[string]*domain.Agent
	producers []*pipeline.Producer
	sender    *pipeline.Sender
	closers   []func(context.Context) error

	mu         sync.Mutex
	started    bool
	ctx        context.Context
	cancel     context.CancelFunc
	tickCtx    context.Context
	tickCancel context.CancelFunc
	senderDone chan struct{}
	metricsSrv *http.Server
}

// NewRuntime bootstraps the default adapters (samplers per agent source,
// ring queue, configured transport, Prometheus observability). Callers can
// use RuntimeOption values to override any dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	rt := &Runtime{
		cfg:      cfg,
		id:       uuid.New(),
		registry: prometheus.NewRegistry(),
		clock:    overrides.clock,
		agents:   make(map[string]*domain.Agent),
	}
	if rt.clock == nil {
		rt.clock = clock.Real()
	}

	logger := overrides.logger
	if logger == nil {
		var err error
		logger, err = observability.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
		if err != nil {
			return nil, err
		}
	}
	rt.log = logger.With(zap.String("instance", rt.id.String()))

	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt.obs = overrides.observability
	if rt.obs == nil {
		rt.obs = observability.NewPromObs(rt.registry, rt.log)
	}

	rt.queue = overrides.queue
	if rt.queue == nil {
		rt.queue = queue.NewRingQueue(cfg.Policy.QueueCapacity)
	}

	rt.transport = overrides.transport
	if rt.transport == nil {
		tr, closer, err := rt.buildTransport()
		if err != nil {
			return nil, err
		}
		rt.transport = tr
		if closer != nil {
			rt.closers = append(rt.closers, closer)
		}
	}

	rt.factory = factory.New(rt.clock)
	rt.sched = scheduler.New(rt.clock)
	rt.sender = &pipeline.Sender{
		Queue:     rt.queue,
		Transport: rt.transport,
		Policy:    cfg.Policy,
		Obs:       rt.obs,
		Clock:     rt.clock,
	}

	if err := rt.buildProducers(overrides); err != nil {
		rt.closeAll(context.Background())
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) buildTransport() (ports.Transport, func(context.Context) error, error) {
	tc := r.cfg.Transport
	var (
		next   ports.Transport
		closer func(context.Context) error
	)

	switch tc.Kind {
	case "", "log":
		return transport.NewLog(r.log, false), nil, nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rdb, err := transport.DialRedis(ctx, tc.Redis.Addr, tc.Redis.Password, tc.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		tr, err := transport.NewRedis(rdb, tc.Redis.Key, transport.RedisMode(tc.Redis.Mode), r.id)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		next = tr
		closer = func(context.Context) error { return rdb.Close() }
	case "postgres":
		db, err := sql.Open("postgres", tc.Postgres.ConnString)
		if err != nil {
			return nil, nil, err
		}
		tr, err := transport.NewSQL(db, tc.Postgres.Table, r.id)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		next = tr
		closer = func(context.Context) error { return db.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown transport kind %q", tc.Kind)
	}

	return transport.NewReliable(next, transport.ReliableConfig{
		Attempts:        tc.RetryAttempts,
		BaseDelay:       tc.RetryDelay,
		RateLimit:       tc.RateLimit,
		Burst:           1,
		BreakerFailures: tc.BreakerFailures,
		BreakerTimeout:  tc.BreakerTimeout,
	}), closer, nil
}

func (r *Runtime) buildProducers(o runtimeOverrides) error {
	var loaded []config.LoadedAgent
	if len(o.agents) > 0 {
		for _, a := range o.agents {
			if err := a.Validate(); err != nil {
				return err
			}
			source := config.SourceHeartbeat
			if a.Script != "" {
				source = config.SourceScript
			}
			loaded = append(loaded, config.LoadedAgent{Agent: a, Source: source})
		}
	} else {
		var err error
		if loaded, err = r.cfg.LoadAgents(); err != nil {
			return err
		}
	}

	var (
		script    *sampler.Script
		host      *sampler.Host
		opc       *sampler.OPCUA
		heartbeat *sampler.Heartbeat
	)
	for _, la := range loaded {
		name := la.Agent.Name
		if _, dup := r.agents[name]; dup {
			return fmt.Errorf("agent %q defined twice", name)
		}

		s, ok := o.samplers[name]
		if !ok {
			switch la.Source {
			case config.SourceScript:
				if script == nil {
					script = sampler.NewScript()
				}
				s = script
			case config.SourceHost:
				if host == nil {
					host = sampler.NewHost()
				}
				if err := host.Bind(name, la.Metric); err != nil {
					return err
				}
				s = host
			case config.SourceOPCUA:
				if opc == nil {
					var err error
					if opc, err = sampler.NewOPCUA(r.cfg.OPCUA); err != nil {
						return err
					}
					r.closers = append(r.closers, opc.Close)
				}
				if err := opc.Bind(name, la.NodeID); err != nil {
					return err
				}
				s = opc
			default:
				if heartbeat == nil {
					heartbeat = sampler.NewHeartbeat(r.clock)
				}
				s = heartbeat
			}
		}

		r.agents[name] = la.Agent
		r.producers = append(r.producers, &pipeline.Producer{
			Agent:   la.Agent,
			Sampler: s,
			Factory: r.factory,
			Queue:   r.queue,
			Policy:  r.cfg.Policy,
			Obs:     r.obs,
		})
	}
	return nil
}

// ID identifies this runtime instance in logs and delivered frames.
func (r *Runtime) ID() uuid.UUID { return r.id }

// Registry is the Prometheus registry served on /metrics.
func (r *Runtime) Registry() *prometheus.Registry { return r.registry }

// Start schedules every interval agent, starts the sender and launches the
// metrics server. It returns immediately; call Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	// cancelled before the scheduler is closed on shutdown
	r.tickCtx, r.tickCancel = context.WithCancel(r.ctx)

	for _, p := range r.producers {
		interval := p.Agent.Timing.Interval()
		if interval <= 0 {
			continue
		}
		p := p
		id, err := r.sched.Create(func() {
			_ = p.Tick(r.tickCtx)
		})
		if err == nil {
			err = r.sched.StartInterval(id, interval)
		}
		if err != nil {
			r.sched.Close()
			r.cancel()
			return fmt.Errorf("schedule agent %q: %w", p.Agent.Name, err)
		}
	}

	r.senderDone = make(chan struct{})
	go func() {
		defer close(r.senderDone)
		_ = r.sender.Run(r.ctx)
	}()

	r.startMetrics()
	r.started = true
	r.obs.LogInfo("runtime_started",
		ports.Field{Key: "agents", Value: len(r.producers)},
		ports.Field{Key: "transport", Value: r.transport.Name()},
		ports.Field{Key: "queue_capacity", Value: r.queue.Cap()})
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the timers, flushes what is left in the queue within ctx,
// and closes the metrics server and transport connections.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	r.mu.Lock()
	started := r.started
	r.started = false
	r.mu.Unlock()

	if started {
		r.tickCancel()
	}
	r.sched.Close()

	if started {
		r.cancel()
		<-r.senderDone
		if err := r.sender.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
		if r.metricsSrv != nil {
			if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, err)
			}
		}
	}

	errs = append(errs, r.closeAll(ctx))
	_ = r.log.Sync()
	return errors.Join(errs...)
}

func (r *Runtime) closeAll(ctx context.Context) error {
	var errs []error
	for _, c := range r.closers {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Tick samples the named agent once, outside its schedule.
func (r *Runtime) Tick(ctx context.Context, agent string) error {
	for _, p := range r.producers {
		if p.Agent.Name == agent {
			return p.Tick(ctx)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
}

func (r *Runtime) startMetrics() {
	if r.cfg.Metrics.Addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := r.metricsSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err)
		}
	}()
}
