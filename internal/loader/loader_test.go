package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelql/internal/store"
)

// fakeQuery filters an in-memory table and records the conditions it saw.
type fakeQuery struct {
	src   *fakeSource
	model string
	where []map[string]interface{}
	any   [][]map[string]interface{}
}

func (q fakeQuery) Where(conds map[string]interface{}) store.Query {
	q.where = append(append([]map[string]interface{}{}, q.where...), conds)
	return q
}

func (q fakeQuery) WhereAny(conds []map[string]interface{}) store.Query {
	q.any = append(append([][]map[string]interface{}{}, q.any...), conds)
	return q
}

func (q fakeQuery) Not(map[string]interface{}) store.Query { return q }
func (q fakeQuery) Page(int, int) store.Query              { return q }

func (q fakeQuery) All(context.Context) ([]store.Record, error) {
	q.src.queries = append(q.src.queries, q)
	if q.src.err != nil {
		return nil, q.src.err
	}
	var out []store.Record
	for _, rec := range q.src.tables[q.model] {
		if q.matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (q fakeQuery) First(ctx context.Context) (store.Record, error) {
	all, err := q.All(ctx)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (q fakeQuery) Count(ctx context.Context) (int, error) {
	all, err := q.All(ctx)
	return len(all), err
}

func (q fakeQuery) matches(rec store.Record) bool {
	for _, conds := range q.where {
		if !matchAll(rec, conds) {
			return false
		}
	}
	for _, set := range q.any {
		hit := false
		for _, conds := range set {
			if matchAll(rec, conds) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func matchAll(rec store.Record, conds map[string]interface{}) bool {
	for attr, want := range conds {
		got := strings.ToLower(fmt.Sprint(rec[attr]))
		if list, ok := want.([]interface{}); ok {
			hit := false
			for _, v := range list {
				if strings.ToLower(fmt.Sprint(v)) == got {
					hit = true
				}
			}
			if !hit {
				return false
			}
			continue
		}
		if strings.ToLower(fmt.Sprint(want)) != got {
			return false
		}
	}
	return true
}

type fakeSource struct {
	tables  map[string][]store.Record
	queries []fakeQuery
	err     error
}

func (s *fakeSource) From(model string) (store.Query, error) {
	if _, ok := s.tables[model]; !ok {
		return nil, fmt.Errorf("unknown model %s", model)
	}
	return fakeQuery{src: s, model: model}, nil
}

func (s *fakeSource) Transformer() store.Transformer { return store.NopTransformer{} }

func newFakeSource() *fakeSource {
	return &fakeSource{tables: map[string][]store.Record{
		"seconds": {
			{"id": int64(1), "first_id": int64(10), "name": "shane"},
			{"id": int64(2), "first_id": int64(10), "name": "jen"},
			{"id": int64(3), "first_id": int64(20), "name": "Ghi"},
		},
	}}
}

func TestLoadBatchesSingleQuery(t *testing.T) {
	src := newFakeSource()
	l := New(src, nil)
	ctx := context.Background()
	req := Request{Model: "seconds", Attributes: []string{"first_id"}, Multi: true}

	a := l.Load(ctx, req, int64(10))
	b := l.Load(ctx, req, int64(20))
	c := l.Load(ctx, req, int64(30))
	assert.Equal(t, Queued, l.State(req))

	va, err := a()
	require.NoError(t, err)
	vb, err := b()
	require.NoError(t, err)
	vc, err := c()
	require.NoError(t, err)

	assert.Len(t, va.([]store.Record), 2)
	assert.Len(t, vb.([]store.Record), 1)
	assert.Equal(t, []store.Record{}, vc)
	assert.Len(t, src.queries, 1)
	assert.Equal(t, Fulfilled, l.State(req))
	assert.Equal(t, []interface{}{int64(10), int64(20), int64(30)}, src.queries[0].where[0]["first_id"])
}

func TestLoadSingleAbsentKeyIsNil(t *testing.T) {
	l := New(newFakeSource(), nil)
	req := Request{Model: "seconds", Attributes: []string{"id"}}

	found := l.Load(context.Background(), req, int64(1))
	missing := l.Load(context.Background(), req, int64(99))

	v, err := found()
	require.NoError(t, err)
	assert.Equal(t, "shane", v.(store.Record)["name"])

	v, err = missing()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestLoadCachesFulfilledKeys(t *testing.T) {
	src := newFakeSource()
	l := New(src, nil)
	ctx := context.Background()
	req := Request{Model: "seconds", Attributes: []string{"id"}}

	_, err := l.Load(ctx, req, int64(2))()
	require.NoError(t, err)
	v, err := l.Load(ctx, req, 2)()
	require.NoError(t, err)

	assert.Equal(t, "jen", v.(store.Record)["name"])
	assert.Len(t, src.queries, 1)
	assert.Equal(t, Stats{Queries: 1, Hits: 1, Misses: 1}, l.Stats())
}

func TestLoadSeparatesSignatures(t *testing.T) {
	src := newFakeSource()
	l := New(src, nil)
	ctx := context.Background()
	plain := Request{Model: "seconds", Attributes: []string{"first_id"}, Multi: true}
	filtered := plain
	filtered.Filter = store.Filter{Predicates: []store.Predicate{{Attribute: "name", Operator: store.OpEq, Value: "shane"}}}

	p := l.Load(ctx, plain, int64(10))
	f := l.Load(ctx, filtered, int64(10))
	_, err := p()
	require.NoError(t, err)
	_, err = f()
	require.NoError(t, err)

	assert.Len(t, src.queries, 2)
}

func TestLoadCaseFolding(t *testing.T) {
	ctx := context.Background()

	t.Run("insensitive", func(t *testing.T) {
		l := New(newFakeSource(), nil)
		req := Request{Model: "seconds", Attributes: []string{"name"}}
		v, err := l.Load(ctx, req, "GHI")()
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, int64(3), v.(store.Record)["id"])
	})

	t.Run("sensitive", func(t *testing.T) {
		l := New(newFakeSource(), nil)
		req := Request{Model: "seconds", Attributes: []string{"name"}, CaseSensitive: true}
		v, err := l.Load(ctx, req, "GHI")()
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestLoadSendsUnfoldedKeys(t *testing.T) {
	src := newFakeSource()
	l := New(src, nil)
	ctx := context.Background()
	req := Request{Model: "seconds", Attributes: []string{"name"}, Multi: true}

	upper := l.Load(ctx, req, "GHI")
	lower := l.Load(ctx, req, "ghi")
	again := l.Load(ctx, req, "GHI")

	got, err := upper()
	require.NoError(t, err)
	assert.Len(t, got.([]store.Record), 1)
	got, err = lower()
	require.NoError(t, err)
	assert.Len(t, got.([]store.Record), 1, "spellings of one folded key share a result")
	_, err = again()
	require.NoError(t, err)

	require.Len(t, src.queries, 1)
	assert.Equal(t, []interface{}{"GHI", "ghi"}, src.queries[0].where[0]["name"])
	assert.Equal(t, Stats{Queries: 1, Misses: 1}, l.Stats())
}

func TestLoadCompositeKeyUsesWhereAny(t *testing.T) {
	src := newFakeSource()
	l := New(src, nil)
	req := Request{Model: "seconds", Attributes: []string{"first_id", "name"}}

	v, err := l.Load(context.Background(), req, int64(10), "jen")()
	require.NoError(t, err)

	require.NotNil(t, v)
	assert.Equal(t, int64(2), v.(store.Record)["id"])
	require.Len(t, src.queries, 1)
	assert.Len(t, src.queries[0].any, 1)
}

func TestLoadPropagatesErrors(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("connection reset")
	l := New(src, nil)
	req := Request{Model: "seconds", Attributes: []string{"id"}}

	a := l.Load(context.Background(), req, int64(1))
	b := l.Load(context.Background(), req, int64(2))

	_, err := a()
	assert.EqualError(t, err, "connection reset")
	_, err = b()
	assert.EqualError(t, err, "connection reset")
}

func TestLoadKeyArityMismatch(t *testing.T) {
	l := New(newFakeSource(), nil)
	req := Request{Model: "seconds", Attributes: []string{"id"}}

	_, err := l.Load(context.Background(), req, 1, 2)()
	assert.Error(t, err)
}

func TestLoadAppliesScope(t *testing.T) {
	src := newFakeSource()
	l := New(src, nil)
	req := Request{
		Model:      "seconds",
		Attributes: []string{"first_id"},
		Multi:      true,
		ScopeKey:   "named_shane",
		Scope: func(q store.Query) store.Query {
			return q.Where(map[string]interface{}{"name": "shane"})
		},
	}

	v, err := l.Load(context.Background(), req, int64(10))()
	require.NoError(t, err)
	assert.Len(t, v.([]store.Record), 1)
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	ctx := NewContext(context.Background(), newFakeSource())
	assert.NotNil(t, FromContext(ctx))
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"bytes", []byte("Abc"), "abc"},
		{"int", 7, int64(7)},
		{"integral float", float64(7), int64(7)},
		{"fraction", 1.5, 1.5},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []interface{}{tt.want}, normalizeKey([]interface{}{tt.in}, false))
		})
	}
}
