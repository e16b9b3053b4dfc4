package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/cognito"
	"github.com/aretw0/cognito/internal/config"
	"github.com/aretw0/cognito/pkg/adapters/badger"
	"github.com/aretw0/cognito/pkg/adapters/file"
	"github.com/aretw0/cognito/pkg/adapters/memory"
	"github.com/aretw0/cognito/pkg/adapters/process"
	redisstore "github.com/aretw0/cognito/pkg/adapters/redis"
	"github.com/aretw0/cognito/pkg/adapters/sqlite"
	"github.com/aretw0/cognito/pkg/observability"
	"github.com/aretw0/cognito/pkg/oracle"
	"github.com/aretw0/cognito/pkg/persistence/middleware"
	"github.com/aretw0/cognito/pkg/ports"
	"github.com/aretw0/cognito/pkg/registry"
	"github.com/aretw0/cognito/pkg/reputation"
	"github.com/aretw0/cognito/pkg/trust"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// app is a wired service plus the resources it holds open.
type app struct {
	svc     *cognito.Service
	metrics http.Handler
	closers []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// build turns a validated configuration into a running service.
func build(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	opts := []cognito.Option{
		cognito.WithLogger(logger),
		cognito.WithMaxIterations(cfg.Engine.MaxIterations),
		cognito.WithMaxSteps(cfg.Engine.MaxSteps),
		cognito.WithCriticalTools(cfg.Engine.CriticalTools...),
		cognito.WithSensitiveTopics(cfg.Policy.SensitiveTopics...),
		cognito.WithModels(cfg.Policy.StrongModel, cfg.Policy.DefaultModel),
		cognito.WithReputationFloor(cfg.Policy.ReputationFloor),
		cognito.WithSpeculation(cfg.Speculative.Enabled, cfg.Speculative.Workers),
		cognito.WithMaxInputSize(cfg.MaxInputSize),
		cognito.WithLifecycleHooks(observability.LogHooks(logger)),
	}

	o, err := buildOracle(cfg.Oracle)
	if err != nil {
		return nil, err
	}
	opts = append(opts, cognito.WithOracle(o))

	signer, err := trust.NewEd25519Signer([]byte(cfg.Signer.Seed), cfg.Signer.DID)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	opts = append(opts, cognito.WithSigner(signer))

	tools, err := buildTools(cfg.Tools)
	if err != nil {
		return nil, err
	}
	opts = append(opts, cognito.WithTools(tools))

	storeOpts, err := a.buildStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, storeOpts...)

	sinkOpts, err := a.buildSinks(cfg.Sinks)
	if err != nil {
		return nil, err
	}
	opts = append(opts, sinkOpts...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts = append(opts, cognito.WithMetrics(observability.NewMetrics(reg)))
	a.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	svc, err := cognito.New(opts...)
	if err != nil {
		return nil, err
	}
	a.svc = svc
	ok = true
	return a, nil
}

func buildOracle(cfg config.OracleConfig) (ports.ReasoningOracle, error) {
	var o ports.ReasoningOracle
	switch cfg.Provider {
	case "keyword", "":
		return oracle.NewKeyword(), nil
	case "openai":
		o = oracle.NewOpenAI(cfg.APIKey, cfg.Model)
	case "anthropic":
		o = oracle.NewAnthropic(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
	if cfg.RateLimit > 0 {
		burst := max(cfg.Burst, 1)
		o = oracle.RateLimited(o, rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))
	}
	return o, nil
}

func buildTools(cfg config.ToolsConfig) (*registry.Registry, error) {
	reg := registry.Builtin()
	if cfg.File == "" {
		return reg, nil
	}
	extra, err := process.LoadTools(cfg.File)
	if err != nil {
		return nil, err
	}
	process.NewRunner(process.WithTools(extra)).Install(reg)
	return reg, nil
}

func (a *app) buildStore(cfg config.StoreConfig, logger *slog.Logger) ([]cognito.Option, error) {
	var (
		store ports.StateStore
		opts  []cognito.Option
	)
	switch cfg.Backend {
	case "memory", "":
		store = memory.NewStore()
	case "file":
		store = file.New(cfg.Path)
	case "badger":
		bcfg := badger.DefaultConfig(cfg.Path)
		bcfg.TTL = cfg.TTL
		bcfg.Logger = logger
		db, err := badger.Open(bcfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		store = db
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, client)
		store = redisstore.NewFromClient(client, redisstore.WithTTL(cfg.TTL))
		opts = append(opts,
			cognito.WithLocker(redisstore.NewLocker(client, redisstore.DefaultPrefix)),
			cognito.WithReputationStore(reputation.NewRedis(client)),
		)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	var mws []middleware.Middleware
	if cfg.Redact {
		mws = append(mws, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns))
	}
	key, err := cfg.Key()
	if err != nil {
		return nil, fmt.Errorf("invalid store encryption key: %w", err)
	}
	if key != nil {
		seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, seal)
	}
	return append(opts, cognito.WithStateStore(middleware.Chain(store, mws...))), nil
}

func (a *app) buildSinks(cfg config.SinkConfig) ([]cognito.Option, error) {
	switch cfg.Backend {
	case "memory", "":
		return nil, nil
	case "sqlite":
		sink, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sink)
		return []cognito.Option{
			cognito.WithAuditSink(sink),
			cognito.WithKnowledgeSink(sink),
			cognito.WithTrainingSink(sink),
		}, nil
	default:
		return nil, fmt.Errorf("unknown sink backend %q", cfg.Backend)
	}
}
