package graphcache

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-graphcache/internal/hydrate"
	"github.com/goliatone/go-graphcache/internal/layering"
)

const (
	DefaultTTL         = 30 * time.Second
	DefaultNegativeTTL = 5 * time.Second
	DefaultMaxDepth    = 32
)

// Config holds the tunables of a Cache.
type Config struct {
	// TTL is how long an ingested record stays fresh.
	TTL time.Duration
	// NegativeTTL is how long a failed fetch suppresses refetching.
	NegativeTTL time.Duration
	// MaxDepth bounds payload nesting.
	MaxDepth int
	// StoreDSN selects the store engine, see store.Open. Empty means memory.
	StoreDSN string
	// IdentityExpression computes entity identities instead of the built-in
	// kind:id rule.
	IdentityExpression string
	// Evaluator names the engine for IdentityExpression: expr, cel or js.
	Evaluator       string
	ActivityChannel string
}

func DefaultConfig() Config {
	return Config{
		TTL:         DefaultTTL,
		NegativeTTL: DefaultNegativeTTL,
		MaxDepth:    DefaultMaxDepth,
		Evaluator:   EngineExpr,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.TTL <= 0 {
		errs = append(errs, fmt.Errorf("graphcache: ttl must be positive, got %s", c.TTL))
	}
	if c.NegativeTTL < 0 {
		errs = append(errs, fmt.Errorf("graphcache: negative_ttl must not be negative, got %s", c.NegativeTTL))
	}
	if c.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("graphcache: max_depth must be positive, got %d", c.MaxDepth))
	}
	switch strings.ToLower(strings.TrimSpace(c.Evaluator)) {
	case "", EngineExpr, EngineCEL:
	case EngineJS:
		if !jsEvaluatorAvailable() {
			errs = append(errs, fmt.Errorf("graphcache: js evaluator requires the js_eval build tag"))
		}
	default:
		errs = append(errs, fmt.Errorf("graphcache: unknown evaluator %q", c.Evaluator))
	}
	return errors.Join(errs...)
}

type configPayload struct {
	TTL                string `json:"ttl"`
	NegativeTTL        string `json:"negative_ttl"`
	MaxDepth           *int   `json:"max_depth"`
	StoreDSN           string `json:"store_dsn"`
	IdentityExpression string `json:"identity_expression"`
	Evaluator          string `json:"evaluator"`
	ActivityChannel    string `json:"activity_channel"`
}

var configDecoder = hydrate.NewDecoder[configPayload](
	hydrate.WithDisallowUnknownFields[configPayload](),
	hydrate.WithPreHook[configPayload](stringifyDurations),
)

// ConfigFromMap overlays raw onto DefaultConfig. Durations are Go duration
// strings or integer milliseconds; unknown keys are rejected.
func ConfigFromMap(raw map[string]any) (Config, error) {
	cfg := DefaultConfig()
	if len(raw) == 0 {
		return cfg, nil
	}
	payload, err := configDecoder.Decode(hydrate.Context{Source: "config"}, raw)
	if err != nil {
		return Config{}, err
	}
	if payload.TTL != "" {
		if cfg.TTL, err = time.ParseDuration(payload.TTL); err != nil {
			return Config{}, fmt.Errorf("graphcache: ttl: %w", err)
		}
	}
	if payload.NegativeTTL != "" {
		if cfg.NegativeTTL, err = time.ParseDuration(payload.NegativeTTL); err != nil {
			return Config{}, fmt.Errorf("graphcache: negative_ttl: %w", err)
		}
	}
	if payload.MaxDepth != nil {
		cfg.MaxDepth = *payload.MaxDepth
	}
	if payload.StoreDSN != "" {
		cfg.StoreDSN = payload.StoreDSN
	}
	if payload.IdentityExpression != "" {
		cfg.IdentityExpression = payload.IdentityExpression
	}
	if payload.Evaluator != "" {
		cfg.Evaluator = payload.Evaluator
	}
	if payload.ActivityChannel != "" {
		cfg.ActivityChannel = payload.ActivityChannel
	}
	return cfg, cfg.Validate()
}

// ConfigFromLayers merges layers, strongest first, and decodes the result
// with ConfigFromMap. Typical order is flags, environment, file.
func ConfigFromLayers(layers ...map[string]any) (Config, error) {
	return ConfigFromMap(layering.Merge(layers...))
}

func stringifyDurations(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	for _, key := range []string{"ttl", "negative_ttl"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		if _, isString := raw.(string); isString {
			continue
		}
		ms, ok := asInt64(raw)
		if !ok {
			return nil, fmt.Errorf("%s must be a duration string or milliseconds, got %T", key, raw)
		}
		payload[key] = (time.Duration(ms) * time.Millisecond).String()
	}
	return payload, nil
}
