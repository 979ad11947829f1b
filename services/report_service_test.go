package services

import (
	"context"
	"testing"

	"bizdesk-backend/datastore"
	"bizdesk-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, tenant, Quotation, f.input(f.line(0, 1)))
	require.NoError(t, err)
	inv, err := f.svc.Create(ctx, tenant, Invoice, f.input(f.line(0, 2)))
	require.NoError(t, err)
	cancelled := f.input(f.line(1, 1))
	cancelled.Status = models.StatusCancelled
	cancelled.AffectsInventory = boolPtr(false)
	_, err = f.svc.Create(ctx, tenant, Invoice, cancelled)
	require.NoError(t, err)
	cn, err := f.svc.Create(ctx, tenant, CreditNote, f.input(f.line(1, 1)))
	require.NoError(t, err)
	_, err = f.svc.ApplyCredit(ctx, tenant, cn.Document.String("id"), inv.Document.String("id"), 16)
	require.NoError(t, err)

	_, err = f.mem.Update(ctx, tenant, models.CollectionProducts, f.products[2], datastore.Row{"reorder_level": 10.0})
	require.NoError(t, err)

	sum, err := NewReportService(f.store).Summary(ctx, tenant)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Quotations)
	assert.Equal(t, 1, sum.OpenQuotations)
	assert.Equal(t, 2, sum.Invoices)
	assert.Equal(t, "232.00", sum.Revenue)
	assert.Equal(t, "32.00", sum.TaxCollected)
	assert.Equal(t, "216.00", sum.Outstanding)
	assert.Equal(t, 1, sum.CreditNotes)
	assert.Equal(t, "116.00", sum.CreditIssued)
	assert.Equal(t, "100.00", sum.CreditRemaining)
	assert.Equal(t, 1, sum.LowStock)

	require.Len(t, sum.TopDebtors, 1)
	assert.Equal(t, "Jane Traders", sum.TopDebtors[0].Name)
}

func TestReportSummaryMissingTable(t *testing.T) {
	_, err := NewReportService(datastore.NewMemoryStore()).Summary(context.Background(), tenant)
	var de *DependencyMissingError
	assert.ErrorAs(t, err, &de)
}
