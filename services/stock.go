package services

import (
	"context"
	"errors"
	"fmt"

	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
)

// Reference tags of movements that do not come from a document.
const (
	ReferenceOpening    = "OPENING"
	ReferenceAdjustment = "ADJUSTMENT"
)

// StockLine is a quantity of one product to move.
type StockLine struct {
	ProductID string
	Quantity  float64
}

// StockLedger writes the append-only movement ledger and keeps
// products.stock_quantity in step with it.
type StockLedger struct {
	store datastore.Store
}

func NewStockLedger(store datastore.Store) *StockLedger {
	return &StockLedger{store: store}
}

func signed(movementType string, qty float64) float64 {
	if movementType == models.MovementOut {
		return -qty
	}
	return qty
}

func opposite(movementType string) string {
	if movementType == models.MovementOut {
		return models.MovementIn
	}
	return models.MovementOut
}

// Record inserts one movement per line, then adjusts each product once by
// the total recorded for it. Every line and product is attempted; the
// failures come back joined.
func (l *StockLedger) Record(ctx context.Context, tenant datastore.Tenant, lines []StockLine, movementType, refType, refID string) error {
	var (
		errs   []error
		order  []string
		deltas = make(map[string]float64)
	)
	for _, line := range lines {
		if line.ProductID == "" || line.Quantity <= 0 {
			continue
		}
		_, err := l.store.Insert(ctx, tenant, models.CollectionStockMovements, datastore.Row{
			"product_id":     line.ProductID,
			"movement_type":  movementType,
			"quantity":       line.Quantity,
			"reference_type": refType,
			"reference_id":   refID,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("record movement for product %s: %w", line.ProductID, translate(err)))
			continue
		}
		if _, seen := deltas[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		deltas[line.ProductID] += signed(movementType, line.Quantity)
	}

	for _, productID := range order {
		if err := l.adjust(ctx, tenant, productID, deltas[productID]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reverse cancels every movement of the reference that has not been
// reversed yet. Originals are left untouched; each reversal is a new row
// pointing at the movement it cancels.
func (l *StockLedger) Reverse(ctx context.Context, tenant datastore.Tenant, refType, refID string) (int, error) {
	reversalType := refType + "_REVERSAL"
	rows, err := l.store.Select(ctx, tenant, models.CollectionStockMovements, datastore.Predicate{
		"reference_id":   refID,
		"reference_type": []any{refType, reversalType},
	}, datastore.OrderBy("created_at", false))
	if err != nil {
		return 0, fmt.Errorf("load movements: %w", translate(err))
	}

	reversed := make(map[string]bool)
	for _, r := range rows {
		if id := r.String("reversed_movement_id"); id != "" {
			reversed[id] = true
		}
	}

	var (
		errs  []error
		count int
	)
	for _, r := range rows {
		if r.String("reference_type") != refType || reversed[r.String("id")] {
			continue
		}
		productID := r.String("product_id")
		qty := r.Float("quantity")
		movementType := opposite(r.String("movement_type"))

		_, err := l.store.Insert(ctx, tenant, models.CollectionStockMovements, datastore.Row{
			"product_id":           productID,
			"movement_type":        movementType,
			"quantity":             qty,
			"reference_type":       reversalType,
			"reference_id":         refID,
			"reversed_movement_id": r.String("id"),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("reverse movement %s: %w", r.String("id"), translate(err)))
			continue
		}
		count++
		if err := l.adjust(ctx, tenant, productID, signed(movementType, qty)); err != nil {
			errs = append(errs, err)
		}
	}
	return count, errors.Join(errs...)
}

// Adjust records a manual movement and applies it. Unlike document side
// effects both writes must succeed.
func (l *StockLedger) Adjust(ctx context.Context, tenant datastore.Tenant, productID, movementType string, qty float64, refType, notes string) (datastore.Row, error) {
	if qty <= 0 {
		return nil, &ValidationError{Err: ErrInvalidQuantity}
	}
	if movementType != models.MovementIn && movementType != models.MovementOut {
		return nil, &ValidationError{Err: ErrInvalidInput, Details: "movement type must be IN or OUT"}
	}
	movement, err := l.store.Insert(ctx, tenant, models.CollectionStockMovements, datastore.Row{
		"product_id":     productID,
		"movement_type":  movementType,
		"quantity":       qty,
		"reference_type": refType,
		"reference_id":   productID,
		"notes":          notes,
	})
	if err != nil {
		return nil, translate(err)
	}
	if err := l.adjust(ctx, tenant, productID, signed(movementType, qty)); err != nil {
		return movement, err
	}
	return movement, nil
}

func (l *StockLedger) adjust(ctx context.Context, tenant datastore.Tenant, productID string, delta float64) error {
	if delta == 0 {
		return nil
	}
	_, err := l.store.Call(ctx, tenant, datastore.ProcAdjustStockQuantity, datastore.Args{
		"product_id": productID,
		"delta":      delta,
	})
	if err != nil {
		return fmt.Errorf("adjust stock of product %s: %w", productID, translate(err))
	}
	return nil
}

// LedgerQuantities sums movements into the stock each product should hold.
func LedgerQuantities(movements []datastore.Row) map[string]float64 {
	out := make(map[string]float64)
	for _, m := range movements {
		out[m.String("product_id")] += signed(m.String("movement_type"), m.Float("quantity"))
	}
	return out
}
