package services

import (
	"context"
	"sync"
	"testing"

	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
	"bizdesk-backend/notify"
	"bizdesk-backend/pricing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tenant = datastore.Tenant("acme")

type storeCall struct {
	op     string
	target string
	arg    any
}

// faultStore wraps a store, records every call and fails the ones fail
// returns an error for.
type faultStore struct {
	datastore.Store
	mu    sync.Mutex
	calls []storeCall
	fail  func(op, target string, arg any) error
}

func (f *faultStore) check(op, target string, arg any) error {
	f.mu.Lock()
	f.calls = append(f.calls, storeCall{op: op, target: target, arg: arg})
	fail := f.fail
	f.mu.Unlock()
	if fail != nil {
		return fail(op, target, arg)
	}
	return nil
}

func (f *faultStore) count(op, target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.op == op && c.target == target {
			n++
		}
	}
	return n
}

func (f *faultStore) Insert(ctx context.Context, t datastore.Tenant, coll string, row datastore.Row) (datastore.Row, error) {
	if err := f.check("insert", coll, row); err != nil {
		return nil, err
	}
	return f.Store.Insert(ctx, t, coll, row)
}

func (f *faultStore) InsertMany(ctx context.Context, t datastore.Tenant, coll string, rows []datastore.Row) error {
	if err := f.check("insert_many", coll, rows); err != nil {
		return err
	}
	return f.Store.InsertMany(ctx, t, coll, rows)
}

func (f *faultStore) Update(ctx context.Context, t datastore.Tenant, coll, id string, patch datastore.Row) (datastore.Row, error) {
	if err := f.check("update", coll, patch); err != nil {
		return nil, err
	}
	return f.Store.Update(ctx, t, coll, id, patch)
}

func (f *faultStore) Delete(ctx context.Context, t datastore.Tenant, coll string, where datastore.Predicate) error {
	if err := f.check("delete", coll, where); err != nil {
		return err
	}
	return f.Store.Delete(ctx, t, coll, where)
}

func (f *faultStore) Select(ctx context.Context, t datastore.Tenant, coll string, where datastore.Predicate, opts ...datastore.SelectOption) ([]datastore.Row, error) {
	if err := f.check("select", coll, where); err != nil {
		return nil, err
	}
	return f.Store.Select(ctx, t, coll, where, opts...)
}

func (f *faultStore) Call(ctx context.Context, t datastore.Tenant, proc string, args datastore.Args) (any, error) {
	if err := f.check("call", proc, args); err != nil {
		return nil, err
	}
	return f.Store.Call(ctx, t, proc, args)
}

// invalidations records cache invalidation signals.
type invalidations struct {
	keys []string
}

func (i *invalidations) Invalidate(_ datastore.Tenant, keys ...string) {
	i.keys = append(i.keys, keys...)
}

type fixture struct {
	store    *faultStore
	mem      *datastore.MemoryStore
	svc      *DocumentService
	notes    *notify.Recorder
	inv      *invalidations
	customer string
	products []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := models.NewMemoryStore()
	fs := &faultStore{Store: mem}
	f := &fixture{
		store: fs,
		mem:   mem,
		notes: &notify.Recorder{},
		inv:   &invalidations{},
	}
	f.svc = NewDocumentService(fs, f.notes, f.inv, zap.NewNop())

	ctx := context.Background()
	c, err := mem.Insert(ctx, tenant, models.CollectionCustomers, datastore.Row{"name": "Jane Traders", "balance": 0.0})
	require.NoError(t, err)
	f.customer = c.String("id")

	for _, name := range []string{"Widget", "Gadget", "Bolt"} {
		p, err := mem.Insert(ctx, tenant, models.CollectionProducts, datastore.Row{
			"name":           name,
			"unit_price":     100.0,
			"stock_quantity": 10.0,
		})
		require.NoError(t, err)
		f.products = append(f.products, p.String("id"))
	}
	return f
}

func (f *fixture) rows(t *testing.T, coll string, where datastore.Predicate) []datastore.Row {
	t.Helper()
	rows, err := f.mem.Select(context.Background(), tenant, coll, where)
	require.NoError(t, err)
	return rows
}

func (f *fixture) stock(t *testing.T, i int) float64 {
	t.Helper()
	rows := f.rows(t, models.CollectionProducts, datastore.Predicate{"id": f.products[i]})
	require.Len(t, rows, 1)
	return rows[0].Float("stock_quantity")
}

func (f *fixture) balance(t *testing.T) float64 {
	t.Helper()
	rows := f.rows(t, models.CollectionCustomers, datastore.Predicate{"id": f.customer})
	require.Len(t, rows, 1)
	return rows[0].Float("balance")
}

func boolPtr(b bool) *bool { return &b }

func (f *fixture) input(items ...pricing.LineItem) DocumentInput {
	return DocumentInput{CustomerID: f.customer, Items: items}
}

func (f *fixture) line(i int, qty float64) pricing.LineItem {
	return pricing.LineItem{ProductID: f.products[i], Description: "item", Quantity: qty, UnitPrice: 100, TaxPercent: 16}
}
