// Package loader batches association lookups issued during one GraphQL
// request. Loads are queued per (model, key attributes, filter, sort)
// signature and drained with a single query the first time any queued result
// is observed.
package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"modelql/internal/observability"
	"modelql/internal/store"
)

// State is the lifecycle stage of a batch.
type State int

const (
	Idle State = iota
	Queued
	Executing
	Fulfilled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Queued:
		return "queued"
	case Executing:
		return "executing"
	case Fulfilled:
		return "fulfilled"
	default:
		return "unknown"
	}
}

// Request describes what a load fetches.
type Request struct {
	// Model is the target model name passed to store.Source.From.
	Model string
	// Attributes are the target attributes matched against load keys.
	Attributes []string
	Filter     store.Filter
	Sort       []store.Sort
	// Scope narrows the batch query. ScopeKey identifies it in the signature.
	Scope    func(store.Query) store.Query
	ScopeKey string
	// Multi fulfils keys with every match instead of the first.
	Multi         bool
	CaseSensitive bool
}

func (r Request) signature() string {
	return store.Signature(r.Model, r.Attributes, r.Filter, r.Sort, r.ScopeKey, r.Multi, r.CaseSensitive)
}

type result struct {
	value interface{}
	err   error
}

// pendingKey is a queued key: id is the folded match key, raw the value
// sent to the store.
type pendingKey struct {
	id  string
	raw []interface{}
}

type batch struct {
	mu      sync.Mutex
	req     Request
	state   State
	pending []pendingKey
	queued  map[string]struct{}
	// sent holds the raw keys already queued, so differently cased spellings
	// of one folded key are each queried once.
	sent    map[string]struct{}
	results map[string]result
}

// Loader holds the batches of one request.
type Loader struct {
	source  store.Source
	metrics *observability.GraphQLMetrics

	mu      sync.Mutex
	batches map[string]*batch

	queries atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
}

// Stats summarizes the work a loader did for its request.
type Stats struct {
	Queries int64
	Hits    int64
	Misses  int64
}

// Stats returns the counters accumulated so far.
func (l *Loader) Stats() Stats {
	return Stats{
		Queries: l.queries.Load(),
		Hits:    l.hits.Load(),
		Misses:  l.misses.Load(),
	}
}

// New creates a loader reading from source. Metrics may be nil.
func New(source store.Source, metrics *observability.GraphQLMetrics) *Loader {
	return &Loader{
		source:  source,
		metrics: metrics,
		batches: make(map[string]*batch),
	}
}

type loaderContextKey struct{}

// NewContext attaches a fresh request-scoped loader to ctx.
func NewContext(ctx context.Context, source store.Source) context.Context {
	return context.WithValue(ctx, loaderContextKey{}, New(source, observability.GraphQLMetricsFromContext(ctx)))
}

// FromContext returns the request loader, or nil when batching is not enabled
// for the request.
func FromContext(ctx context.Context) *Loader {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(loaderContextKey{}).(*Loader)
	return l
}

// State reports the state of the batch for req.
func (l *Loader) State(req Request) State {
	l.mu.Lock()
	b, ok := l.batches[req.signature()]
	l.mu.Unlock()
	if !ok {
		return Idle
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Load queues key for req and returns a thunk resolving to the matching
// record (nil when absent) or, for multi requests, the matching records
// (empty when absent). The thunk signature is the one graphql-go defers.
func (l *Loader) Load(ctx context.Context, req Request, key ...interface{}) func() (interface{}, error) {
	if len(key) != len(req.Attributes) {
		err := fmt.Errorf("load %s: %d key values for %d attributes", req.Model, len(key), len(req.Attributes))
		return func() (interface{}, error) { return nil, err }
	}

	raw := normalizeKey(key, true)
	id := keyString(normalizeKey(key, req.CaseSensitive))
	b := l.batchFor(req)

	b.mu.Lock()
	if r, ok := b.results[id]; ok {
		b.mu.Unlock()
		l.hits.Add(1)
		if l.metrics != nil {
			l.metrics.RecordBatchCacheHit(ctx, req.Model)
		}
		return func() (interface{}, error) { return r.value, r.err }
	}
	if rawID := keyString(raw); !hasKey(b.sent, rawID) {
		b.sent[rawID] = struct{}{}
		b.pending = append(b.pending, pendingKey{id: id, raw: raw})
		if b.state != Executing {
			b.state = Queued
		}
	}
	if !hasKey(b.queued, id) {
		b.queued[id] = struct{}{}
		l.misses.Add(1)
		if l.metrics != nil {
			l.metrics.RecordBatchCacheMiss(ctx, req.Model)
		}
	}
	b.mu.Unlock()

	return func() (interface{}, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.results[id]; !ok {
			l.drain(ctx, b)
		}
		r := b.results[id]
		return r.value, r.err
	}
}

func (l *Loader) batchFor(req Request) *batch {
	sig := req.signature()
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.batches[sig]
	if !ok {
		b = &batch{
			req:     req,
			queued:  make(map[string]struct{}),
			sent:    make(map[string]struct{}),
			results: make(map[string]result),
		}
		l.batches[sig] = b
	}
	return b
}

// drain runs one query for every pending key. Caller holds b.mu.
func (l *Loader) drain(ctx context.Context, b *batch) {
	keys := b.pending
	b.pending = nil
	b.state = Executing
	if len(keys) > 0 {
		l.queries.Add(1)
	}

	raws := make([][]interface{}, len(keys))
	for i, key := range keys {
		raws[i] = key.raw
	}
	records, err := l.fetch(ctx, b.req, raws)
	if err != nil {
		for _, key := range keys {
			b.results[key.id] = result{err: err}
		}
		b.state = Fulfilled
		return
	}

	matches := make(map[string][]store.Record, len(keys))
	for _, rec := range records {
		values := make([]interface{}, len(b.req.Attributes))
		for i, attr := range b.req.Attributes {
			values[i] = rec[attr]
		}
		id := keyString(normalizeKey(values, b.req.CaseSensitive))
		matches[id] = append(matches[id], rec)
	}

	for _, key := range keys {
		id := key.id
		if _, done := b.results[id]; done {
			continue
		}
		found := matches[id]
		switch {
		case b.req.Multi:
			if found == nil {
				found = []store.Record{}
			}
			b.results[id] = result{value: found}
		case len(found) > 0:
			b.results[id] = result{value: found[0]}
		default:
			b.results[id] = result{value: nil}
		}
	}
	b.state = Fulfilled

	if l.metrics != nil {
		l.metrics.RecordBatch(ctx, b.req.Model, len(keys), len(records))
	}
}

func (l *Loader) fetch(ctx context.Context, req Request, keys [][]interface{}) ([]store.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	q, err := l.source.From(req.Model)
	if err != nil {
		return nil, err
	}

	if len(req.Attributes) == 1 {
		values := make([]interface{}, 0, len(keys))
		for _, key := range keys {
			values = append(values, key[0])
		}
		q = q.Where(map[string]interface{}{req.Attributes[0]: values})
	} else {
		tuples := make([]map[string]interface{}, 0, len(keys))
		for _, key := range keys {
			tuple := make(map[string]interface{}, len(key))
			for i, attr := range req.Attributes {
				tuple[attr] = key[i]
			}
			tuples = append(tuples, tuple)
		}
		q = q.WhereAny(tuples)
	}

	if req.Scope != nil {
		q = req.Scope(q)
	}
	transformer := l.source.Transformer()
	if !req.Filter.IsEmpty() {
		if q, err = transformer.ApplyFilters(q, req.Filter); err != nil {
			return nil, err
		}
	}
	if len(req.Sort) > 0 {
		if q, err = transformer.ApplySorts(q, req.Sort); err != nil {
			return nil, err
		}
	}
	return q.All(ctx)
}

// RecordSkipped counts an association resolved without batching.
func RecordSkipped(ctx context.Context, model, reason string) {
	if metrics := observability.GraphQLMetricsFromContext(ctx); metrics != nil {
		metrics.RecordBatchSkipped(ctx, model, reason)
	}
}

// normalizeKey folds values so that equal keys compare equal regardless of
// driver representation. Strings are lower-cased unless caseSensitive; the
// store always receives the unfolded values, since string comparison is
// case-sensitive on SQLite and Postgres.
func normalizeKey(key []interface{}, caseSensitive bool) []interface{} {
	out := make([]interface{}, len(key))
	for i, v := range key {
		switch typed := v.(type) {
		case []byte:
			v = string(typed)
		case int:
			v = int64(typed)
		case int32:
			v = int64(typed)
		case uint32:
			v = int64(typed)
		case float64:
			if typed == float64(int64(typed)) {
				v = int64(typed)
			}
		}
		if s, ok := v.(string); ok && !caseSensitive {
			v = strings.ToLower(s)
		}
		out[i] = v
	}
	return out
}

func hasKey(set map[string]struct{}, k string) bool {
	_, ok := set[k]
	return ok
}

func keyString(key []interface{}) string {
	parts := make([]string, len(key))
	for i, v := range key {
		parts[i] = fmt.Sprintf("%T:%v", v, v)
	}
	return strings.Join(parts, "\x1f")
}
