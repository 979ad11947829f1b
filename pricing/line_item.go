package pricing

// LineItem is one row of a quotation, invoice or credit note.
// TaxAmount, AfterDiscount and LineTotal are derived; change the inputs and
// call Recompute (or go through ApplyEdit) to keep them consistent.
type LineItem struct {
	ProductID       string  `json:"productId,omitempty"`
	Description     string  `json:"description"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unitPrice"`
	DiscountPercent float64 `json:"discountPercent"`
	TaxPercent      float64 `json:"taxPercent"`
	TaxInclusive    bool    `json:"taxInclusive"`

	AfterDiscount float64 `json:"afterDiscount"`
	TaxAmount     float64 `json:"taxAmount"`
	LineTotal     float64 `json:"lineTotal"`
}

// Input returns the calculator input for the item.
func (li LineItem) Input() Input {
	return Input{
		Quantity:        li.Quantity,
		UnitPrice:       li.UnitPrice,
		DiscountPercent: li.DiscountPercent,
		TaxPercent:      li.TaxPercent,
		TaxInclusive:    li.TaxInclusive,
	}
}

// Recompute returns a copy with the derived fields recalculated.
func (li LineItem) Recompute(policy TaxPolicy) LineItem {
	r := Calculate(li.Input(), policy)
	li.AfterDiscount = r.AfterDiscount
	li.TaxAmount = r.TaxAmount
	li.LineTotal = r.LineTotal
	return li
}

// ToggleTaxInclusive switches the inclusive flag. Turning it on while the
// line carries no tax applies defaultRate; turning it off clears the rate.
func ToggleTaxInclusive(li LineItem, inclusive bool, defaultRate float64, policy TaxPolicy) LineItem {
	switch {
	case inclusive && !li.TaxInclusive && li.TaxPercent == 0:
		li.TaxPercent = defaultRate
	case !inclusive && li.TaxInclusive:
		li.TaxPercent = 0
	}
	li.TaxInclusive = inclusive
	return li.Recompute(policy)
}

// Totals is the document-level aggregate of its lines.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	TaxAmount   float64 `json:"taxAmount"`
	TotalAmount float64 `json:"totalAmount"`
}

// Aggregate sums the derived amounts of items. It always walks every item.
func Aggregate(items []LineItem) Totals {
	var t Totals
	for _, it := range items {
		t.Subtotal += it.AfterDiscount
		t.TaxAmount += it.TaxAmount
		t.TotalAmount += it.LineTotal
	}
	return t
}

// PriceItems recomputes every item under policy and returns them with totals.
func PriceItems(items []LineItem, policy TaxPolicy) ([]LineItem, Totals) {
	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = it.Recompute(policy)
	}
	return out, Aggregate(out)
}
