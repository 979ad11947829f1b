package services

import (
	"context"
	"errors"
	"testing"

	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
	"bizdesk-backend/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func openingStock(t *testing.T, f *fixture) {
	t.Helper()
	// the fixture seeds stock_quantity directly
	for i := range f.products {
		_, err := f.mem.Insert(context.Background(), tenant, models.CollectionStockMovements, datastore.Row{
			"product_id":     f.products[i],
			"movement_type":  models.MovementIn,
			"quantity":       10.0,
			"reference_type": ReferenceOpening,
			"reference_id":   f.products[i],
		})
		require.NoError(t, err)
	}
}

func TestReconcileInSync(t *testing.T) {
	f := newFixture(t)
	openingStock(t, f)
	_, err := f.svc.Create(context.Background(), tenant, Invoice, f.input(f.line(0, 3)))
	require.NoError(t, err)

	notes := &notify.Recorder{}
	svc := NewReconcileService(f.mem, nil, notes, zap.NewNop())
	drifts, err := svc.Reconcile(context.Background(), tenant)
	require.NoError(t, err)
	assert.Empty(t, drifts)
	assert.Empty(t, notes.Sent())
}

func TestReconcileReportsDrift(t *testing.T) {
	f := newFixture(t)
	openingStock(t, f)
	_, err := f.mem.Update(context.Background(), tenant, models.CollectionProducts, f.products[1], datastore.Row{"stock_quantity": 4.0})
	require.NoError(t, err)

	notes := &notify.Recorder{}
	svc := NewReconcileService(f.mem, nil, notes, zap.NewNop())
	drifts, err := svc.Reconcile(context.Background(), tenant)
	require.NoError(t, err)

	require.Len(t, drifts, 1)
	assert.Equal(t, f.products[1], drifts[0].ProductID)
	assert.InDelta(t, 4, drifts[0].Recorded, eps)
	assert.InDelta(t, 10, drifts[0].Ledger, eps)

	sent := notes.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.LevelWarning, sent[0].Level)
	assert.Contains(t, sent[0].Message, "Gadget recorded 4, ledger 10")
}

func TestRunAllLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	svc := NewReconcileService(datastore.NewMemoryStore(), func(context.Context) ([]datastore.Tenant, error) {
		return []datastore.Tenant{"acme", "globex"}, nil
	}, &notify.Recorder{}, zap.New(core))
	svc.RunAll(context.Background())
	assert.Equal(t, 2, logs.FilterMessage("stock reconciliation failed").Len())

	failing := NewReconcileService(datastore.NewMemoryStore(), func(context.Context) ([]datastore.Tenant, error) {
		return nil, errors.New("db down")
	}, &notify.Recorder{}, zap.New(core))
	failing.RunAll(context.Background())
	assert.Equal(t, 1, logs.FilterMessage("failed to list companies").Len())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc := NewReconcileService(datastore.NewMemoryStore(), nil, &notify.Recorder{}, zap.NewNop())
	assert.Error(t, svc.Start("not a schedule"))

	require.NoError(t, svc.Start("@every 1h"))
	svc.Stop()
}
