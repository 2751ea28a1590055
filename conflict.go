package graphcache

import (
	"context"
	"fmt"
	"sort"

	"github.com/goliatone/go-graphcache/pkg/store"
	"github.com/google/uuid"
)

// PendingWrite is one occurrence of an entity found while walking a payload.
type PendingWrite struct {
	Identity Identity
	Kind     string
	ID       string
	Fields   map[string]FieldValue
	Version  Version
	// Path locates the occurrence in its payload, "" for the root.
	Path string
	// Seq is the discovery order within the pass.
	Seq int
}

// ConflictMap collects the pending writes of one ingestion pass. It is never
// persisted and must not be reused across passes.
type ConflictMap struct {
	PassID string

	conflicts          map[Identity][]PendingWrite
	order              []Identity
	serverRequestCount int
	seq                int
}

func NewConflictMap() *ConflictMap {
	return &ConflictMap{
		PassID:    uuid.NewString(),
		conflicts: make(map[Identity][]PendingWrite),
	}
}

// Add records w, stamping its discovery sequence.
func (m *ConflictMap) Add(w PendingWrite) PendingWrite {
	m.seq++
	w.Seq = m.seq
	if _, seen := m.conflicts[w.Identity]; !seen {
		m.order = append(m.order, w.Identity)
	}
	m.conflicts[w.Identity] = append(m.conflicts[w.Identity], w)
	return w
}

// CountResponse notes one more network response contributing to the pass.
func (m *ConflictMap) CountResponse() {
	m.serverRequestCount++
}

func (m *ConflictMap) ServerRequestCount() int {
	return m.serverRequestCount
}

// Len returns the number of distinct identities touched.
func (m *ConflictMap) Len() int {
	return len(m.order)
}

// Identities returns touched identities in order of first discovery.
func (m *ConflictMap) Identities() []Identity {
	return append([]Identity(nil), m.order...)
}

// Writes returns the pending writes for id in discovery order.
func (m *ConflictMap) Writes(id Identity) []PendingWrite {
	return append([]PendingWrite(nil), m.conflicts[id]...)
}

// ordered sorts writes oldest first. The sort is stable, so equal versions
// keep discovery order and the last discovered write folds last.
func (m *ConflictMap) ordered(id Identity) []PendingWrite {
	writes := m.Writes(id)
	sort.SliceStable(writes, func(i, j int) bool {
		return writes[i].Version.Compare(writes[j].Version) < 0
	})
	return writes
}

// Regression is a field write rejected because the stored record was newer.
type Regression struct {
	Identity Identity `json:"identity"`
	Field    string   `json:"field"`
	Existing Version  `json:"existing"`
	Incoming Version  `json:"incoming"`
}

// Resolution is the final state of every record a pass touched.
type Resolution struct {
	Records     map[Identity]Record
	Order       []Identity
	Regressions []Regression
}

func (r *Resolution) put(record Record) {
	if _, ok := r.Records[record.Identity]; !ok {
		r.Order = append(r.Order, record.Identity)
	}
	r.Records[record.Identity] = record
}

type lookupFunc func(ctx context.Context, id Identity) (Record, bool, error)

func engineLookup(engine store.Engine[Record]) lookupFunc {
	return func(ctx context.Context, id Identity) (Record, bool, error) {
		return engine.Lookup(ctx, string(id))
	}
}

// fold reduces every identity's pending writes onto its stored record.
// Nothing is committed.
func fold(ctx context.Context, cm *ConflictMap, lookup lookupFunc) (Resolution, error) {
	res := Resolution{Records: make(map[Identity]Record, cm.Len())}
	for _, id := range cm.order {
		stored, found, err := lookup(ctx, id)
		if err != nil {
			return Resolution{}, fmt.Errorf("graphcache: lookup %s: %w", id, err)
		}
		var current *Record
		if found {
			current = &stored
		}
		for _, write := range cm.ordered(id) {
			merged, regressions := mergeRecord(current, write)
			res.Regressions = append(res.Regressions, regressions...)
			current = &merged
		}
		res.put(*current)
	}
	return res, nil
}

// commit writes every resolved record once, in discovery order.
func (r Resolution) commit(ctx context.Context, engine store.Engine[Record]) error {
	for _, id := range r.Order {
		if err := engine.Commit(ctx, string(id), r.Records[id]); err != nil {
			return fmt.Errorf("graphcache: commit %s: %w", id, err)
		}
	}
	return nil
}

// Resolve folds the pending writes of cm against engine and commits one
// record per identity. It is called once, after the whole pass was walked.
func Resolve(ctx context.Context, cm *ConflictMap, engine store.Engine[Record]) (Resolution, error) {
	res, err := fold(ctx, cm, engineLookup(engine))
	if err != nil {
		return Resolution{}, err
	}
	if err := res.commit(ctx, engine); err != nil {
		return Resolution{}, err
	}
	return res, nil
}
