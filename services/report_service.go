package services

import (
	"context"
	"sort"

	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
	"bizdesk-backend/pricing"
)

// ReportSummary is the company overview. Money is preformatted to cents.
type ReportSummary struct {
	Quotations      int               `json:"quotations"`
	OpenQuotations  int               `json:"openQuotations"`
	Invoices        int               `json:"invoices"`
	Revenue         string            `json:"revenue"`
	TaxCollected    string            `json:"taxCollected"`
	Outstanding     string            `json:"outstanding"`
	CreditNotes     int               `json:"creditNotes"`
	CreditIssued    string            `json:"creditIssued"`
	CreditRemaining string            `json:"creditRemaining"`
	LowStock        int               `json:"lowStock"`
	TopDebtors      []CustomerBalance `json:"topDebtors"`
}

type CustomerBalance struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

type ReportService struct {
	store datastore.Store
}

func NewReportService(store datastore.Store) *ReportService {
	return &ReportService{store: store}
}

// Summary aggregates every document of the company. Cancelled documents
// are counted but contribute no money.
func (r *ReportService) Summary(ctx context.Context, tenant datastore.Tenant) (*ReportSummary, error) {
	quotations, err := r.store.Select(ctx, tenant, models.CollectionQuotations, nil)
	if err != nil {
		return nil, translate(err)
	}
	invoices, err := r.store.Select(ctx, tenant, models.CollectionInvoices, nil)
	if err != nil {
		return nil, translate(err)
	}
	notes, err := r.store.Select(ctx, tenant, models.CollectionCreditNotes, nil)
	if err != nil {
		return nil, translate(err)
	}
	products, err := r.store.Select(ctx, tenant, models.CollectionProducts, nil)
	if err != nil {
		return nil, translate(err)
	}
	customers, err := r.store.Select(ctx, tenant, models.CollectionCustomers, nil,
		datastore.OrderBy("balance", true), datastore.Limit(5))
	if err != nil {
		return nil, translate(err)
	}

	sum := &ReportSummary{
		Quotations:  len(quotations),
		Invoices:    len(invoices),
		CreditNotes: len(notes),
	}
	for _, q := range quotations {
		if s := q.String("status"); s == models.StatusDraft || s == models.StatusSent {
			sum.OpenQuotations++
		}
	}

	var revenue, tax, outstanding, issued, remaining float64
	for _, inv := range invoices {
		if inv.String("status") == models.StatusCancelled {
			continue
		}
		revenue += inv.Float("total_amount")
		tax += inv.Float("tax_amount")
		outstanding += inv.Float("balance_due")
	}
	for _, n := range notes {
		if n.String("status") == models.StatusCancelled {
			continue
		}
		issued += n.Float("total_amount")
		remaining += n.Float("remaining_credit")
	}
	for _, p := range products {
		if p.Float("stock_quantity") <= p.Float("reorder_level") {
			sum.LowStock++
		}
	}

	sort.SliceStable(customers, func(i, j int) bool {
		return customers[i].Float("balance") > customers[j].Float("balance")
	})
	sum.TopDebtors = make([]CustomerBalance, 0, len(customers))
	for _, c := range customers {
		if c.Float("balance") <= 0 {
			continue
		}
		sum.TopDebtors = append(sum.TopDebtors, CustomerBalance{
			ID:      c.String("id"),
			Name:    c.String("name"),
			Balance: pricing.FormatMoney(c.Float("balance")),
		})
	}

	sum.Revenue = pricing.FormatMoney(revenue)
	sum.TaxCollected = pricing.FormatMoney(tax)
	sum.Outstanding = pricing.FormatMoney(outstanding)
	sum.CreditIssued = pricing.FormatMoney(issued)
	sum.CreditRemaining = pricing.FormatMoney(remaining)
	return sum, nil
}
