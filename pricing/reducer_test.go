package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumTotals(items []LineItem) float64 {
	var total float64
	for _, it := range items {
		total += it.LineTotal
	}
	return total
}

func TestApplyEditKeepsTotalsFresh(t *testing.T) {
	s := NewSheet(TaxAddedOnTop, 16,
		LineItem{Description: "Widget", Quantity: 2, UnitPrice: 100, TaxPercent: 16},
	)
	require.InDelta(t, 232, s.Totals.TotalAmount, eps)

	actions := []Action{
		AddItem{Item: LineItem{Description: "Bolt", Quantity: 10, UnitPrice: 50, DiscountPercent: 10}},
		SetQuantity{Index: 0, Quantity: 3},
		SetUnitPrice{Index: 1, UnitPrice: 40},
		SetDiscount{Index: 0, Percent: 5},
		SetTaxPercent{Index: 1, Percent: 8},
		SetTaxInclusive{Index: 0, Inclusive: true},
		RemoveItem{Index: 7},
		RemoveItem{Index: 0},
	}

	for _, a := range actions {
		s = ApplyEdit(s, a)
		assert.InDelta(t, sumTotals(s.Items), s.Totals.TotalAmount, eps, "after %T", a)
		for _, it := range s.Items {
			assert.Equal(t, it.Recompute(s.Policy), it, "derived fields stale after %T", a)
		}
	}
	require.Len(t, s.Items, 1)
	assert.Equal(t, "Bolt", s.Items[0].Description)
	// 10 x 40 less 10% plus 8%
	assert.InDelta(t, 388.8, s.Totals.TotalAmount, eps)
}

func TestApplyEditDoesNotMutateInput(t *testing.T) {
	s := NewSheet(TaxIncludedInPrice, 16, LineItem{Quantity: 1, UnitPrice: 10})
	next := ApplyEdit(s, SetQuantity{Index: 0, Quantity: 5})

	assert.Equal(t, 1.0, s.Items[0].Quantity)
	assert.Equal(t, 5.0, next.Items[0].Quantity)
	assert.InDelta(t, 10, s.Totals.TotalAmount, eps)
	assert.InDelta(t, 50, next.Totals.TotalAmount, eps)
}

func TestToggleTaxInclusive(t *testing.T) {
	li := LineItem{Quantity: 1, UnitPrice: 116}

	on := ToggleTaxInclusive(li, true, 16, TaxIncludedInPrice)
	assert.True(t, on.TaxInclusive)
	assert.Equal(t, 16.0, on.TaxPercent)
	assert.InDelta(t, 16, on.TaxAmount, eps)
	assert.InDelta(t, 116, on.LineTotal, eps)

	off := ToggleTaxInclusive(on, false, 16, TaxIncludedInPrice)
	assert.False(t, off.TaxInclusive)
	assert.Equal(t, 0.0, off.TaxPercent)
	assert.InDelta(t, 116, off.LineTotal, eps)

	// an explicit rate survives switching inclusive on
	keep := ToggleTaxInclusive(LineItem{Quantity: 1, UnitPrice: 100, TaxPercent: 8}, true, 16, TaxAddedOnTop)
	assert.Equal(t, 8.0, keep.TaxPercent)
	assert.InDelta(t, 108, keep.LineTotal, eps)
}

func TestAggregate(t *testing.T) {
	items, totals := PriceItems([]LineItem{
		{Quantity: 2, UnitPrice: 100, TaxPercent: 16},
		{Quantity: 10, UnitPrice: 50, DiscountPercent: 10},
	}, TaxAddedOnTop)

	require.Len(t, items, 2)
	assert.InDelta(t, 650, totals.Subtotal, eps)
	assert.InDelta(t, 32, totals.TaxAmount, eps)
	assert.InDelta(t, 682, totals.TotalAmount, eps)
	assert.Equal(t, Totals{}, Aggregate(nil))
}
