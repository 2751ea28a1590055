// Package graphcache is a client-side cache for a remote entity graph fetched
// with partial, caller-chosen field sets.
//
// Payloads are normalized into one Record per entity, nested entities are
// replaced by links, and every occurrence found in a pass is folded into the
// stored record field by field once the whole pass was walked. Reads follow a
// stale-while-revalidate policy keyed by entity and field selection.
package graphcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-graphcache/fieldtrie"
	"github.com/goliatone/go-graphcache/internal/hydrate"
	"github.com/goliatone/go-graphcache/pkg/activity"
	"github.com/goliatone/go-graphcache/pkg/store"
	"golang.org/x/sync/singleflight"
)

// Response is one network response to ingest.
type Response struct {
	Payload map[string]any
	// Requested is the field selection the response answers.
	Requested *fieldtrie.Trie
	// Optional lists requested paths that may legitimately be absent.
	// Optional leaves of Requested count as well.
	Optional *fieldtrie.Trie
	// Timestamp stamps the provisional version; zero means now.
	Timestamp time.Time
}

// ReadResult is the outcome of Read or Refresh.
type ReadResult struct {
	// Data is the record rebuilt in payload shape, restricted to the
	// requested fields.
	Data   map[string]any
	Record Record
	Stale  bool
	// Miss is set when the cache could not answer the selection.
	Miss bool
	// Failure holds the cached transport error that suppressed a fetch.
	Failure *TransportError
}

// Cache normalizes payloads into a store engine and serves reads from it.
type Cache struct {
	cfg          Config
	engine       store.Engine[Record]
	ownsEngine   bool
	transport    Transport
	clock        func() time.Time
	logger       Logger
	emitter      *activity.Emitter
	evaluator    Evaluator
	identityRule CompiledRule
	identityExpr string
	decoder      *hydrate.Decoder[map[string]any]
	negative     *negativeCache
	refresh      *refresher
	flight       singleflight.Group
	closed       atomic.Bool

	// mu serializes the resolve and commit phase of ingestion passes and
	// keeps readers from observing a half committed pass.
	mu sync.RWMutex
}

// New builds a Cache. Without WithEngine the engine comes from
// Config.StoreDSN, which defaults to memory.
func New(opts ...Option) (*Cache, error) {
	cfg := applyOptions(opts)
	if err := errors.Join(cfg.errs...); err != nil {
		return nil, err
	}
	if err := cfg.config.Validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		cfg:       cfg.config,
		engine:    cfg.engine,
		transport: cfg.transport,
		clock:     cfg.clock,
		logger:    cfg.logger,
		emitter: activity.NewEmitter(cfg.activityHooks, activity.Config{
			Enabled: len(cfg.activityHooks) > 0,
			Channel: cfg.config.ActivityChannel,
		}),
		decoder:  hydrate.NewDecoder[map[string]any](hydrate.WithUseNumber[map[string]any]()),
		negative: newNegativeCache(cfg.config.NegativeTTL, cfg.clock),
		refresh:  newRefresher(),
	}

	if c.engine == nil {
		engine, err := store.Open[Record](cfg.config.StoreDSN)
		if err != nil {
			return nil, fmt.Errorf("graphcache: open store: %w", err)
		}
		c.engine = engine
		c.ownsEngine = true
	}

	if expr := strings.TrimSpace(cfg.config.IdentityExpression); expr != "" {
		evaluator := cfg.evaluator
		if evaluator == nil {
			programs := cfg.programCache
			if programs == nil {
				programs = NewProgramCache(0)
			}
			var err error
			evaluator, err = newEvaluator(cfg.config.Evaluator, programs, cfg.functions)
			if err != nil {
				return nil, err
			}
		}
		rule, err := evaluator.Compile(expr)
		if err != nil {
			return nil, err
		}
		c.evaluator = evaluator
		c.identityRule = rule
		c.identityExpr = expr
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Cache) Config() Config {
	return c.cfg
}

// Ingest normalizes one response payload and commits every entity it holds.
func (c *Cache) Ingest(ctx context.Context, payload map[string]any, requested, optional *fieldtrie.Trie, ts time.Time) (Reference, error) {
	report, err := c.IngestBatch(ctx, []Response{{
		Payload:   payload,
		Requested: requested,
		Optional:  optional,
		Timestamp: ts,
	}})
	if err != nil {
		return Reference{}, err
	}
	return report.References[0], nil
}

// IngestBatch normalizes several independent responses as one pass. Nothing
// is committed unless every payload normalizes.
func (c *Cache) IngestBatch(ctx context.Context, responses []Response) (PassReport, error) {
	return c.ingest(ctx, responses, passHooks{})
}

// passHooks run under the commit lock. guard can veto the commit; committed
// runs after it.
type passHooks struct {
	guard     func() error
	committed func()
}

func (c *Cache) ingest(ctx context.Context, responses []Response, hooks passHooks) (PassReport, error) {
	if c.closed.Load() {
		return PassReport{}, ErrClosed
	}
	if len(responses) == 0 {
		return PassReport{}, fmt.Errorf("graphcache: no responses to ingest")
	}

	cm := NewConflictMap()
	refs := make([]Reference, 0, len(responses))
	for _, response := range responses {
		if err := ctx.Err(); err != nil {
			return PassReport{}, err
		}
		cm.CountResponse()
		ts := response.Timestamp
		if ts.IsZero() {
			ts = c.clock()
		}
		ref, err := newNormalizer(cm, ts, c.cfg.MaxDepth, c.identify).root(response.Payload)
		if err != nil {
			c.logger.LogEvent(LogEvent{
				Level:   LevelError,
				Message: "ingestion aborted",
				PassID:  cm.PassID,
				Err:     err,
			})
			return PassReport{}, err
		}
		refs = append(refs, ref)
	}

	c.mu.Lock()
	res, err := c.resolvePass(ctx, cm, responses, refs, hooks)
	c.mu.Unlock()
	if err != nil {
		if !errors.Is(err, errSuperseded) {
			c.logger.LogEvent(LogEvent{
				Level:   LevelError,
				Message: "ingestion commit failed",
				PassID:  cm.PassID,
				Err:     err,
			})
		}
		return PassReport{}, err
	}

	report := PassReport{
		PassID:             cm.PassID,
		ServerRequestCount: cm.ServerRequestCount(),
		References:         refs,
		Committed:          append([]Identity(nil), res.Order...),
		Regressions:        res.Regressions,
	}
	c.publish(ctx, report, res)
	return report, nil
}

func (c *Cache) resolvePass(ctx context.Context, cm *ConflictMap, responses []Response, refs []Reference, hooks passHooks) (Resolution, error) {
	if hooks.guard != nil {
		if err := hooks.guard(); err != nil {
			return Resolution{}, err
		}
	}
	lookup := engineLookup(c.engine)
	res, err := fold(ctx, cm, lookup)
	if err != nil {
		return Resolution{}, err
	}
	for i, response := range responses {
		optional := response.Optional.Merge(response.Requested.Optional())
		if err := markMissing(ctx, &res, lookup, refs[i], optional); err != nil {
			return Resolution{}, err
		}
	}
	if err := res.commit(ctx, c.engine); err != nil {
		return Resolution{}, err
	}
	if hooks.committed != nil {
		hooks.committed()
	}
	return res, nil
}

func (c *Cache) publish(ctx context.Context, report PassReport, res Resolution) {
	now := c.clock()
	for _, regression := range report.Regressions {
		c.logger.LogEvent(LogEvent{
			Level:    LevelWarn,
			Message:  "version regression: kept newer stored field",
			Identity: regression.Identity,
			PassID:   report.PassID,
			Fields: map[string]any{
				"field":    regression.Field,
				"existing": regression.Existing.String(),
				"incoming": regression.Incoming.String(),
			},
		})
		c.emit(ctx, activity.BuildVersionRegressionEvent(activity.RecordEventInput{
			Identity:   string(regression.Identity),
			PassID:     report.PassID,
			Field:      regression.Field,
			Version:    regression.Incoming.String(),
			OldVersion: regression.Existing.String(),
			OccurredAt: now,
		}))
	}
	for _, id := range report.Committed {
		record := res.Records[id]
		c.emit(ctx, activity.BuildRecordCommittedEvent(activity.RecordEventInput{
			Identity:   string(id),
			PassID:     report.PassID,
			Version:    record.Version.String(),
			Fields:     record.FieldNames(),
			OccurredAt: now,
		}))
	}
	c.logger.LogEvent(LogEvent{
		Level:   LevelDebug,
		Message: "ingestion pass committed",
		PassID:  report.PassID,
		Fields: map[string]any{
			"records":              len(report.Committed),
			"server_request_count": report.ServerRequestCount,
		},
	})
}

func (c *Cache) emit(ctx context.Context, event activity.Event) {
	if !c.emitter.Enabled() {
		return
	}
	if err := c.emitter.Emit(ctx, event); err != nil {
		c.logger.LogEvent(LogEvent{
			Level:    LevelWarn,
			Message:  "activity hook failed",
			Identity: Identity(event.ObjectID),
			PassID:   event.PassID,
			Err:      err,
		})
	}
}

func (c *Cache) identify(obj map[string]any, path string) (entityKey, error) {
	key, err := builtinIdentity(obj, path)
	if err != nil || c.identityRule == nil {
		return key, err
	}
	now := c.clock()
	engine := evaluatorEngineName(c.evaluator)
	start := time.Now()
	value, err := c.identityRule.Evaluate(RuleContext{Node: obj, Path: path, Now: &now})
	err = wrapEvaluationError(engine, c.identityExpr, path, err)
	c.logger.LogEvent(LogEvent{
		Level:    LevelDebug,
		Message:  "identity expression evaluated",
		Duration: time.Since(start),
		Fields:   map[string]any{"engine": engine, "path": path},
		Err:      err,
	})
	if err != nil {
		return entityKey{}, err
	}
	identity, ok := value.(string)
	if !ok || strings.TrimSpace(identity) == "" {
		return entityKey{}, shapeErrorf(path, "identity expression returned %s", describeValue(value))
	}
	key.identity = Identity(strings.TrimSpace(identity))
	return key, nil
}

// Lookup returns the stored record for id.
func (c *Cache) Lookup(ctx context.Context, id Identity) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, found, err := c.engine.Lookup(ctx, string(id))
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return record, nil
}

// Read answers fields of id from the cache. Fresh data returns without a
// fetch. Stale data returns at once, marked Stale, and starts at most one
// background refresh per key. A miss fetches synchronously when a transport
// is configured; a failed fetch is reported through Failure, not as an error.
func (c *Cache) Read(ctx context.Context, id Identity, fields *fieldtrie.Trie) (ReadResult, error) {
	if c.closed.Load() {
		return ReadResult{}, ErrClosed
	}
	result, covered, err := c.evaluate(ctx, id, fields)
	if err != nil {
		return ReadResult{}, err
	}
	if !covered {
		return c.readMiss(ctx, id, fields)
	}
	if !c.expired(result.Record) {
		return result, nil
	}

	result.Stale = true
	if c.transport == nil {
		return result, nil
	}
	if _, failed := c.negative.get(id); failed {
		c.logger.LogEvent(LogEvent{
			Level:    LevelDebug,
			Message:  "refresh suppressed by negative result",
			Identity: id,
		})
		return result, nil
	}
	c.startRefresh(selectionKey(id, fields), id, fields)
	return result, nil
}

func (c *Cache) readMiss(ctx context.Context, id Identity, fields *fieldtrie.Trie) (ReadResult, error) {
	if failure, ok := c.negative.get(id); ok {
		return ReadResult{Miss: true, Failure: failure}, nil
	}
	if c.transport == nil {
		return ReadResult{Miss: true}, nil
	}
	key := selectionKey(id, fields)
	_, err, _ := c.flight.Do(key, func() (any, error) {
		return nil, c.fetch(ctx, id, fields, c.foreground(key))
	})
	var failure *TransportError
	if errors.As(err, &failure) {
		return ReadResult{Miss: true, Failure: failure}, nil
	}
	if err != nil {
		return ReadResult{}, err
	}
	result, covered, err := c.evaluate(ctx, id, fields)
	if err != nil {
		return ReadResult{}, err
	}
	result.Miss = !covered
	return result, nil
}

// Refresh fetches fields of id now, bypassing freshness and negative results.
// A background refresh of the same key that started earlier is discarded.
func (c *Cache) Refresh(ctx context.Context, id Identity, fields *fieldtrie.Trie) (ReadResult, error) {
	if c.closed.Load() {
		return ReadResult{}, ErrClosed
	}
	if c.transport == nil {
		return ReadResult{}, ErrNoTransport
	}
	if err := c.fetch(ctx, id, fields, c.foreground(selectionKey(id, fields))); err != nil {
		return ReadResult{}, err
	}
	result, covered, err := c.evaluate(ctx, id, fields)
	if err != nil {
		return ReadResult{}, err
	}
	result.Miss = !covered
	return result, nil
}

// State reports the freshness of the (id, fields) key.
func (c *Cache) State(ctx context.Context, id Identity, fields *fieldtrie.Trie) (State, error) {
	if c.refresh.fetching(selectionKey(id, fields)) {
		return StateFetching, nil
	}
	record, err := c.Lookup(ctx, id)
	if err != nil {
		return StateStale, err
	}
	if c.expired(record) {
		return StateStale, nil
	}
	return StateFresh, nil
}

// Wait blocks until every background refresh has finished.
func (c *Cache) Wait() {
	c.refresh.wait()
}

// Close waits for background refreshes and closes an engine the cache opened.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.refresh.close()
	if !c.ownsEngine {
		return nil
	}
	if closer, ok := c.engine.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Cache) expired(record Record) bool {
	age := c.clock().UnixMilli() - record.FetchedAt
	return age >= c.cfg.TTL.Milliseconds()
}

// evaluate reads id under the read lock so a pass is seen whole or not at all.
func (c *Cache) evaluate(ctx context.Context, id Identity, fields *fieldtrie.Trie) (ReadResult, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	lookup := engineLookup(c.engine)
	record, found, err := lookup(ctx, id)
	if err != nil {
		return ReadResult{}, false, err
	}
	if !found {
		return ReadResult{Miss: true}, false, nil
	}
	covered, err := covers(ctx, lookup, record, fields)
	if err != nil {
		return ReadResult{}, false, err
	}
	if !covered {
		return ReadResult{Record: record, Miss: true}, false, nil
	}
	data, err := render(ctx, lookup, record, fields)
	if err != nil {
		return ReadResult{}, false, err
	}
	return ReadResult{Data: data, Record: record}, true, nil
}

// foreground marks commits of key so older background refreshes are dropped.
func (c *Cache) foreground(key string) passHooks {
	return passHooks{committed: func() { c.refresh.noteExplicit(key) }}
}

func (c *Cache) fetch(ctx context.Context, id Identity, fields *fieldtrie.Trie, hooks passHooks) error {
	request := Request{
		Identity: id,
		Fields:   fields.Required().Paths(),
		Optional: fields.Optional().Paths(),
	}
	resp, err := c.transport.Fetch(ctx, request)
	if failure := transportFailure(id, resp, err); failure != nil {
		if c.negative.put(id, failure) {
			c.logger.LogEvent(LogEvent{
				Level:    LevelWarn,
				Message:  "fetch failed, caching negative result",
				Identity: id,
				Fields:   map[string]any{"status": failure.Status, "ttl": c.cfg.NegativeTTL.String()},
				Err:      failure,
			})
			c.emit(ctx, activity.BuildNegativeCachedEvent(activity.SelectionEventInput{
				Key:        selectionKey(id, fields),
				Identity:   string(id),
				Status:     failure.Status,
				Err:        failure,
				OccurredAt: c.clock(),
			}))
		}
		return failure
	}
	payload, err := c.decoder.DecodeBytes(hydrate.Context{Source: string(id)}, resp.Body)
	if err != nil {
		return &ShapeError{Reason: "response body is not an entity object", Err: err}
	}
	_, err = c.ingest(ctx, []Response{{
		Payload:   payload,
		Requested: fields,
		Timestamp: c.clock(),
	}}, hooks)
	if err != nil {
		return err
	}
	c.negative.clear(id)
	return nil
}

func (c *Cache) startRefresh(key string, id Identity, fields *fieldtrie.Trie) bool {
	started, ok := c.refresh.begin(key)
	if !ok {
		return false
	}
	c.emit(context.Background(), activity.BuildRefreshEvent(activity.VerbRefreshStarted, activity.SelectionEventInput{
		Key:        key,
		Identity:   string(id),
		OccurredAt: c.clock(),
	}))
	go c.runRefresh(key, id, fields, started)
	return true
}

func (c *Cache) runRefresh(key string, id Identity, fields *fieldtrie.Trie, started uint64) {
	defer c.refresh.finish(key)
	ctx := context.Background()
	err := c.fetch(ctx, id, fields, passHooks{guard: func() error {
		if c.refresh.superseded(key, started) {
			return errSuperseded
		}
		return nil
	}})

	input := activity.SelectionEventInput{Key: key, Identity: string(id), OccurredAt: c.clock()}
	switch {
	case err == nil:
		c.emit(ctx, activity.BuildRefreshEvent(activity.VerbRefreshCompleted, input))
	case errors.Is(err, errSuperseded):
		c.logger.LogEvent(LogEvent{
			Level:    LevelInfo,
			Message:  "background refresh discarded",
			Identity: id,
			Fields:   map[string]any{"key": key},
		})
		c.emit(ctx, activity.BuildRefreshEvent(activity.VerbRefreshDiscarded, input))
	default:
		var failure *TransportError
		if errors.As(err, &failure) {
			input.Status = failure.Status
		}
		input.Err = err
		c.logger.LogEvent(LogEvent{
			Level:    LevelWarn,
			Message:  "background refresh failed, keeping stale data",
			Identity: id,
			Fields:   map[string]any{"key": key},
			Err:      err,
		})
		c.emit(ctx, activity.BuildRefreshEvent(activity.VerbRefreshFailed, input))
	}
}
