package pricing

// Sheet is the editable, in-memory state of a document's lines.
type Sheet struct {
	Policy         TaxPolicy  `json:"-"`
	DefaultTaxRate float64    `json:"defaultTaxRate"`
	Items          []LineItem `json:"items"`
	Totals         Totals     `json:"totals"`
}

// NewSheet builds a sheet and prices the given items.
func NewSheet(policy TaxPolicy, defaultTaxRate float64, items ...LineItem) Sheet {
	s := Sheet{Policy: policy, DefaultTaxRate: defaultTaxRate}
	s.Items, s.Totals = PriceItems(items, policy)
	return s
}

// Action is an edit applied to a sheet by ApplyEdit.
type Action interface {
	apply(s *Sheet, items []LineItem) []LineItem
}

// AddItem appends a line.
type AddItem struct{ Item LineItem }

// RemoveItem drops the line at Index. Out-of-range indexes are ignored.
type RemoveItem struct{ Index int }

// SetQuantity changes the quantity of the line at Index.
type SetQuantity struct {
	Index    int
	Quantity float64
}

// SetUnitPrice changes the unit price of the line at Index.
type SetUnitPrice struct {
	Index     int
	UnitPrice float64
}

// SetDiscount changes the discount percentage of the line at Index.
type SetDiscount struct {
	Index   int
	Percent float64
}

// SetTaxPercent changes the tax rate of the line at Index.
type SetTaxPercent struct {
	Index   int
	Percent float64
}

// SetTaxInclusive toggles the inclusive flag through ToggleTaxInclusive.
type SetTaxInclusive struct {
	Index     int
	Inclusive bool
}

// ReplaceItems swaps the whole line list.
type ReplaceItems struct{ Items []LineItem }

func (a AddItem) apply(_ *Sheet, items []LineItem) []LineItem {
	return append(items, a.Item)
}

func (a RemoveItem) apply(_ *Sheet, items []LineItem) []LineItem {
	if a.Index < 0 || a.Index >= len(items) {
		return items
	}
	return append(items[:a.Index], items[a.Index+1:]...)
}

func (a SetQuantity) apply(_ *Sheet, items []LineItem) []LineItem {
	if inRange(a.Index, items) {
		items[a.Index].Quantity = a.Quantity
	}
	return items
}

func (a SetUnitPrice) apply(_ *Sheet, items []LineItem) []LineItem {
	if inRange(a.Index, items) {
		items[a.Index].UnitPrice = a.UnitPrice
	}
	return items
}

func (a SetDiscount) apply(_ *Sheet, items []LineItem) []LineItem {
	if inRange(a.Index, items) {
		items[a.Index].DiscountPercent = a.Percent
	}
	return items
}

func (a SetTaxPercent) apply(_ *Sheet, items []LineItem) []LineItem {
	if inRange(a.Index, items) {
		items[a.Index].TaxPercent = a.Percent
	}
	return items
}

func (a SetTaxInclusive) apply(s *Sheet, items []LineItem) []LineItem {
	if inRange(a.Index, items) {
		items[a.Index] = ToggleTaxInclusive(items[a.Index], a.Inclusive, s.DefaultTaxRate, s.Policy)
	}
	return items
}

func (a ReplaceItems) apply(_ *Sheet, _ []LineItem) []LineItem {
	return append([]LineItem(nil), a.Items...)
}

// ApplyEdit is the only path by which a sheet's derived fields change.
// The input sheet is left untouched; the returned sheet has every line and
// the totals recomputed from scratch.
func ApplyEdit(s Sheet, action Action) Sheet {
	next := Sheet{Policy: s.Policy, DefaultTaxRate: s.DefaultTaxRate}
	items := append([]LineItem(nil), s.Items...)
	if action != nil {
		items = action.apply(&next, items)
	}
	next.Items, next.Totals = PriceItems(items, next.Policy)
	return next
}

func inRange(i int, items []LineItem) bool {
	return i >= 0 && i < len(items)
}
