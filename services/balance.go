package services

import (
	"context"
	"fmt"

	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
)

// balanceAdjustment adds delta to a numeric column of one row.
type balanceAdjustment struct {
	collection string
	id         string
	column     string
	delta      float64
}

func (a balanceAdjustment) inverse() balanceAdjustment {
	a.delta = -a.delta
	return a
}

// adjustBalance is a read-modify-write; concurrent writers are last-write-wins.
func (s *DocumentService) adjustBalance(ctx context.Context, tenant datastore.Tenant, a balanceAdjustment) error {
	if a.id == "" || a.delta == 0 {
		return nil
	}
	rows, err := s.store.Select(ctx, tenant, a.collection, datastore.Predicate{"id": a.id}, datastore.Limit(1))
	if err != nil {
		return fmt.Errorf("load %s %s: %w", a.collection, a.id, translate(err))
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s %s: %w", a.collection, a.id, ErrNotFound)
	}
	value := rows[0].Float(a.column) + a.delta
	patch := datastore.Row{a.column: value}
	if status := settlementStatus(a, rows[0].String("status"), value); status != "" {
		patch["status"] = status
	}
	if _, err := s.store.Update(ctx, tenant, a.collection, a.id, patch); err != nil {
		return fmt.Errorf("update %s of %s %s: %w", a.column, a.collection, a.id, translate(err))
	}
	return nil
}

// settledStatus is the status a document holds while nothing is open on it.
var settledStatus = map[string]string{
	models.CollectionInvoices:    models.StatusPaid,
	models.CollectionCreditNotes: models.StatusApplied,
}

// settlementStatus reopens a settled document whose open amount comes back,
// and settles a sent one whose open amount drops to zero. It returns "" when
// the status stays.
func settlementStatus(a balanceAdjustment, current string, value float64) string {
	settled, ok := settledStatus[a.collection]
	if !ok {
		return ""
	}
	switch {
	case current == settled && value > moneyEpsilon:
		return models.StatusSent
	case current == models.StatusSent && a.delta < 0 && value <= moneyEpsilon:
		return settled
	}
	return ""
}

// allocationColumn is the allocation column pointing at documents of kind.
func allocationColumn(kind DocumentKind) string {
	switch kind.Name {
	case CreditNote.Name:
		return "credit_note_id"
	case Invoice.Name:
		return "invoice_id"
	default:
		return ""
	}
}

// allocationRestores undoes one credit allocation when either side of it is
// deleted: the surviving document gets its open amount back and the
// customer owes the amount again.
func allocationRestores(kind DocumentKind, header, allocation datastore.Row) []balanceAdjustment {
	amount := allocation.Float("amount")
	customer := balanceAdjustment{models.CollectionCustomers, header.String("customer_id"), "balance", amount}
	switch kind.Name {
	case CreditNote.Name:
		return []balanceAdjustment{
			{Invoice.Collection, allocation.String("invoice_id"), Invoice.BalanceColumn, amount},
			customer,
		}
	case Invoice.Name:
		return []balanceAdjustment{
			{CreditNote.Collection, allocation.String("credit_note_id"), CreditNote.BalanceColumn, amount},
			customer,
		}
	default:
		return nil
	}
}
