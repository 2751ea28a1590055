package graphcache

import (
	"time"

	"github.com/goliatone/go-graphcache/pkg/activity"
	"github.com/goliatone/go-graphcache/pkg/store"
)

// Option configures a Cache.
type Option func(*cacheConfig)

type cacheConfig struct {
	config        Config
	engine        store.Engine[Record]
	transport     Transport
	clock         func() time.Time
	logger        Logger
	activityHooks activity.Hooks
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	errs          []error
}

func applyOptions(opts []Option) cacheConfig {
	cfg := cacheConfig{config: DefaultConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	return cfg
}

// WithConfig replaces the whole Config. Later options still apply on top.
func WithConfig(config Config) Option {
	return func(cfg *cacheConfig) {
		cfg.config = config
	}
}

// WithEngine sets the store engine, taking precedence over Config.StoreDSN.
func WithEngine(engine store.Engine[Record]) Option {
	return func(cfg *cacheConfig) {
		cfg.engine = engine
	}
}

func WithTransport(transport Transport) Option {
	return func(cfg *cacheConfig) {
		cfg.transport = transport
	}
}

// WithClock overrides time.Now for ingestion stamps and staleness.
func WithClock(clock func() time.Time) Option {
	return func(cfg *cacheConfig) {
		cfg.clock = clock
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(cfg *cacheConfig) {
		cfg.config.TTL = ttl
	}
}

func WithNegativeTTL(ttl time.Duration) Option {
	return func(cfg *cacheConfig) {
		cfg.config.NegativeTTL = ttl
	}
}

func WithMaxDepth(depth int) Option {
	return func(cfg *cacheConfig) {
		cfg.config.MaxDepth = depth
	}
}

// WithIdentityExpression computes identities with expr evaluated by the
// configured evaluator. The expression must yield a non-empty string.
func WithIdentityExpression(expr string) Option {
	return func(cfg *cacheConfig) {
		cfg.config.IdentityExpression = expr
	}
}

// WithEvaluator overrides the engine named by Config.Evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *cacheConfig) {
		cfg.evaluator = e
	}
}

// WithActivityHooks attaches activity hooks. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := hooks.Clone()
	return func(cfg *cacheConfig) {
		cfg.activityHooks = normalized
	}
}
