package models_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
	"bizdesk-backend/notify"
	"bizdesk-backend/pricing"
	"bizdesk-backend/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const tenant = datastore.Tenant("acme")

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestGormStoreCRUD(t *testing.T) {
	store := models.NewStore(setupDB(t))
	ctx := context.Background()

	c, err := store.Insert(ctx, tenant, models.CollectionCustomers, datastore.Row{"name": "Jane Traders", "email": "jane@example.com"})
	require.NoError(t, err)
	id := c.String("id")
	assert.Len(t, id, 36)
	assert.Equal(t, "acme", c.String("company_id"))

	updated, err := store.Update(ctx, tenant, models.CollectionCustomers, id, datastore.Row{"balance": 120.5, "company_id": "globex"})
	require.NoError(t, err)
	assert.InDelta(t, 120.5, updated.Float("balance"), 1e-9)
	assert.Equal(t, "acme", updated.String("company_id"))

	_, err = store.Update(ctx, "globex", models.CollectionCustomers, id, datastore.Row{"name": "x"})
	assert.True(t, datastore.IsNotFound(err))

	rows, err := store.Select(ctx, "globex", models.CollectionCustomers, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, store.Delete(ctx, tenant, models.CollectionCustomers, datastore.Predicate{"id": id}))
	rows, err = store.Select(ctx, tenant, models.CollectionCustomers, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = store.Select(ctx, tenant, "payments", nil)
	assert.Equal(t, datastore.KindDependencyMissing, datastore.KindOf(err))
}

func TestGormStoreExpandAndOrder(t *testing.T) {
	store := models.NewStore(setupDB(t))
	ctx := context.Background()

	q, err := store.Insert(ctx, tenant, models.CollectionQuotations, datastore.Row{
		"number": "QUO-000001", "customer_id": "c1", "total_amount": 10.0,
	})
	require.NoError(t, err)
	require.NoError(t, store.InsertMany(ctx, tenant, models.CollectionQuotationItems, []datastore.Row{
		{"quotation_id": q.String("id"), "position": 1, "description": "second", "quantity": 1.0, "unit_price": 4.0, "line_total": 4.0},
		{"quotation_id": q.String("id"), "position": 0, "description": "first", "quantity": 1.0, "unit_price": 6.0, "line_total": 6.0},
	}))

	rows, err := store.Select(ctx, tenant, models.CollectionQuotations, datastore.Predicate{"id": q.String("id")},
		datastore.Expand(models.CollectionQuotationItems, "quotation_id", "items"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusDraft, rows[0].String("status"))

	items, ok := rows[0]["items"].([]datastore.Row)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].String("description"))
}

func TestGormStoreUniqueNumberPerCompany(t *testing.T) {
	store := models.NewStore(setupDB(t))
	ctx := context.Background()
	row := datastore.Row{"number": "INV-000001", "customer_id": "c1"}

	_, err := store.Insert(ctx, tenant, models.CollectionInvoices, row)
	require.NoError(t, err)
	_, err = store.Insert(ctx, "globex", models.CollectionInvoices, row)
	require.NoError(t, err)

	_, err = store.Insert(ctx, tenant, models.CollectionInvoices, row)
	assert.Equal(t, datastore.KindConflict, datastore.KindOf(err))
}

func TestProcedures(t *testing.T) {
	store := models.NewStore(setupDB(t))
	ctx := context.Background()

	for _, want := range []string{"CN-000001", "CN-000002"} {
		v, err := store.Call(ctx, tenant, datastore.ProcNextDocumentNumber, datastore.Args{"sequence": "credit_notes", "prefix": "CN"})
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	v, err := store.Call(ctx, "globex", datastore.ProcNextDocumentNumber, datastore.Args{"sequence": "credit_notes", "prefix": "CN"})
	require.NoError(t, err)
	assert.Equal(t, "CN-000001", v)

	p, err := store.Insert(ctx, tenant, models.CollectionProducts, datastore.Row{"name": "Widget", "unit_price": 5.0, "stock_quantity": 10.0})
	require.NoError(t, err)
	v, err = store.Call(ctx, tenant, datastore.ProcAdjustStockQuantity, datastore.Args{"product_id": p.String("id"), "delta": -3.0})
	require.NoError(t, err)
	assert.InDelta(t, 7, v, 1e-9)

	_, err = store.Call(ctx, "globex", datastore.ProcAdjustStockQuantity, datastore.Args{"product_id": p.String("id"), "delta": 1.0})
	assert.True(t, datastore.IsNotFound(err))

	_, err = store.Call(ctx, tenant, "recalculate_everything", nil)
	assert.Equal(t, datastore.KindDependencyMissing, datastore.KindOf(err))
}

func TestInvoiceLifecycleOnSQLite(t *testing.T) {
	store := models.NewStore(setupDB(t))
	ctx := context.Background()
	notes := &notify.Recorder{}
	svc := services.NewDocumentService(store, notes, nil, zap.NewNop())

	c, err := store.Insert(ctx, tenant, models.CollectionCustomers, datastore.Row{"name": "Jane Traders"})
	require.NoError(t, err)
	p, err := store.Insert(ctx, tenant, models.CollectionProducts, datastore.Row{"name": "Widget", "unit_price": 100.0, "stock_quantity": 10.0})
	require.NoError(t, err)

	out, err := svc.Create(ctx, tenant, services.Invoice, services.DocumentInput{
		CustomerID: c.String("id"),
		Items: []pricing.LineItem{
			{ProductID: p.String("id"), Description: "Widget", Quantity: 2, UnitPrice: 100, TaxPercent: 16},
		},
	})
	require.NoError(t, err)
	require.False(t, out.Degraded(), "%v", out.Warnings)
	assert.Equal(t, "INV-000001", out.Number)

	doc, err := svc.Get(ctx, tenant, services.Invoice, out.Document.String("id"))
	require.NoError(t, err)
	assert.InDelta(t, 232, doc.Float("total_amount"), 1e-9)
	assert.Len(t, doc["items"], 1)

	products, err := store.Select(ctx, tenant, models.CollectionProducts, nil)
	require.NoError(t, err)
	assert.InDelta(t, 8, products[0].Float("stock_quantity"), 1e-9)

	_, err = svc.Delete(ctx, tenant, services.Invoice, out.Document.String("id"))
	require.NoError(t, err)

	products, err = store.Select(ctx, tenant, models.CollectionProducts, nil)
	require.NoError(t, err)
	assert.InDelta(t, 10, products[0].Float("stock_quantity"), 1e-9)

	movements, err := store.Select(ctx, tenant, models.CollectionStockMovements, nil)
	require.NoError(t, err)
	assert.Len(t, movements, 2)

	var logs []models.AuditLog
	require.NoError(t, store.DB().Where("company_id = ?", string(tenant)).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "invoice", logs[0].EntityType)
	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(logs[0].Snapshot, &snapshot))
	assert.Equal(t, "INV-000001", snapshot["document"].(map[string]any)["number"])
	assert.Contains(t, snapshot["side_effects"], "reversed 1 stock movements")
	assert.Len(t, notes.Sent(), 2)
}
