// Package pricing computes line-item tax, discount and document totals.
//
// Everything here is pure: no I/O, no hidden state, and no errors. Callers
// validate quantities and prices before handing them over.
package pricing

// TaxPolicy selects how a tax-inclusive line is interpreted.
type TaxPolicy int

const (
	// TaxIncludedInPrice treats the discounted amount as already containing
	// tax; the tax share is extracted and the line total stays unchanged.
	TaxIncludedInPrice TaxPolicy = iota
	// TaxAddedOnTop treats "inclusive" as a label only: tax is still added on
	// top of the discounted amount.
	TaxAddedOnTop
)

func (p TaxPolicy) String() string {
	switch p {
	case TaxIncludedInPrice:
		return "included"
	case TaxAddedOnTop:
		return "on_top"
	default:
		return "unknown"
	}
}

// Input holds the raw values of one line.
type Input struct {
	Quantity        float64
	UnitPrice       float64
	DiscountPercent float64
	TaxPercent      float64
	TaxInclusive    bool
}

// Result holds every intermediate amount of a line calculation.
type Result struct {
	BaseAmount     float64
	DiscountAmount float64
	AfterDiscount  float64
	TaxAmount      float64
	LineTotal      float64
}

// Calculate prices a single line. Amounts are never rounded here.
func Calculate(in Input, policy TaxPolicy) Result {
	if in.Quantity == 0 {
		return Result{}
	}

	base := in.Quantity * in.UnitPrice
	discount := base * (in.DiscountPercent / 100)
	after := base - discount

	r := Result{BaseAmount: base, DiscountAmount: discount, AfterDiscount: after}

	switch {
	case in.TaxPercent == 0:
		r.LineTotal = after
	case in.TaxInclusive && policy == TaxIncludedInPrice:
		r.TaxAmount = after * (in.TaxPercent / (100 + in.TaxPercent))
		r.LineTotal = after
	default:
		// exclusive, or inclusive under the on-top policy
		r.TaxAmount = after * (in.TaxPercent / 100)
		r.LineTotal = after + r.TaxAmount
	}
	return r
}
