package datastore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps rows in process memory. It backs DB_DRIVER=memory and
// the service tests.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string][]Row
	unique      map[string][]string
	sequences   map[string]int
}

// NewMemoryStore creates a store that accepts the given collections.
// Unknown collections fail with KindDependencyMissing like a missing table.
func NewMemoryStore(collections ...string) *MemoryStore {
	m := &MemoryStore{
		collections: make(map[string][]Row),
		unique:      make(map[string][]string),
		sequences:   make(map[string]int),
	}
	for _, c := range collections {
		m.collections[c] = nil
	}
	return m
}

// Unique declares columns whose values must be unique per tenant.
func (m *MemoryStore) Unique(collection string, columns ...string) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unique[collection] = append(m.unique[collection], columns...)
	return m
}

func (m *MemoryStore) Insert(_ context.Context, tenant Tenant, collection string, row Row) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.insertLocked(tenant, collection, row)
	if err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func (m *MemoryStore) InsertMany(_ context.Context, tenant Tenant, collection string, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	before, ok := m.collections[collection]
	if !ok {
		return DependencyMissing("relation " + collection)
	}
	for _, r := range rows {
		if _, err := m.insertLocked(tenant, collection, r); err != nil {
			// a bulk insert is one statement: nothing from it persists
			m.collections[collection] = before
			return err
		}
	}
	return nil
}

func (m *MemoryStore) insertLocked(tenant Tenant, collection string, row Row) (Row, error) {
	rows, ok := m.collections[collection]
	if !ok {
		return nil, DependencyMissing("relation " + collection)
	}
	stored := row.Clone()
	if stored.String("id") == "" {
		stored["id"] = uuid.NewString()
	}
	stored[TenantColumn] = string(tenant)
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = time.Now()
	}
	for _, col := range m.unique[collection] {
		v := stored[col]
		if v == nil {
			continue
		}
		for _, existing := range rows {
			if existing.String(TenantColumn) == string(tenant) && existing[col] == v {
				return nil, &Error{
					Kind:       KindConflict,
					Code:       "23505",
					Message:    fmt.Sprintf("duplicate key value violates unique constraint %q", collection+"_"+col+"_key"),
					Constraint: collection + "_" + col + "_key",
					Column:     col,
				}
			}
		}
	}
	for _, existing := range rows {
		if existing.String("id") == stored.String("id") {
			return nil, &Error{Kind: KindConflict, Code: "23505", Message: "duplicate primary key", Column: "id"}
		}
	}
	m.collections[collection] = append(rows, stored)
	return stored, nil
}

func (m *MemoryStore) Update(_ context.Context, tenant Tenant, collection, id string, patch Row) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.collections[collection]
	if !ok {
		return nil, DependencyMissing("relation " + collection)
	}
	for _, r := range rows {
		if r.String("id") == id && r.String(TenantColumn) == string(tenant) {
			for k, v := range patch {
				if k == "id" || k == TenantColumn {
					continue
				}
				r[k] = v
			}
			r["updated_at"] = time.Now()
			return r.Clone(), nil
		}
	}
	return nil, NotFound(collection, id)
}

func (m *MemoryStore) Delete(_ context.Context, tenant Tenant, collection string, where Predicate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.collections[collection]
	if !ok {
		return DependencyMissing("relation " + collection)
	}
	kept := rows[:0:0]
	for _, r := range rows {
		if !matches(r, tenant, where) {
			kept = append(kept, r)
		}
	}
	m.collections[collection] = kept
	return nil
}

func (m *MemoryStore) Select(ctx context.Context, tenant Tenant, collection string, where Predicate, opts ...SelectOption) ([]Row, error) {
	o := buildSelectOptions(opts)

	m.mu.Lock()
	rows, ok := m.collections[collection]
	if !ok {
		m.mu.Unlock()
		return nil, DependencyMissing("relation " + collection)
	}
	out := make([]Row, 0)
	for _, r := range rows {
		if matches(r, tenant, where) {
			out = append(out, r.Clone())
		}
	}
	m.mu.Unlock()

	if o.orderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			less := lessValue(out[i][o.orderBy], out[j][o.orderBy])
			if o.desc {
				return lessValue(out[j][o.orderBy], out[i][o.orderBy])
			}
			return less
		})
	}
	if o.limit > 0 && len(out) > o.limit {
		out = out[:o.limit]
	}
	if err := expandRows(ctx, m, tenant, out, o.expands); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MemoryStore) Call(_ context.Context, tenant Tenant, procedure string, args Args) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch procedure {
	case ProcNextDocumentNumber:
		seq := Row(args).String("sequence")
		prefix := Row(args).String("prefix")
		key := string(tenant) + "/" + seq
		m.sequences[key]++
		return FormatDocumentNumber(prefix, m.sequences[key]), nil
	case ProcAdjustStockQuantity:
		productID := Row(args).String("product_id")
		delta := Row(args).Float("delta")
		for _, r := range m.collections["products"] {
			if r.String("id") == productID && r.String(TenantColumn) == string(tenant) {
				r["stock_quantity"] = r.Float("stock_quantity") + delta
				return r.Float("stock_quantity"), nil
			}
		}
		return nil, NotFound("products", productID)
	default:
		return nil, DependencyMissing("function " + procedure)
	}
}

// FormatDocumentNumber renders the n-th number of a sequence, e.g. INV-000042.
func FormatDocumentNumber(prefix string, n int) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

func matches(r Row, tenant Tenant, where Predicate) bool {
	if r.String(TenantColumn) != string(tenant) {
		return false
	}
	for k, want := range where {
		got := r[k]
		switch w := want.(type) {
		case []any:
			found := false
			for _, candidate := range w {
				if equalValue(got, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case []string:
			found := false
			for _, candidate := range w {
				if equalValue(got, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if !equalValue(got, want) {
				return false
			}
		}
	}
	return true
}

func equalValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	}
	ar, br := Row{"v": a}, Row{"v": b}
	return ar.Float("v") < br.Float("v")
}
