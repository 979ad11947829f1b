package controllers

import (
	"net/http"
	"sort"
	"time"

	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
	"bizdesk-backend/pricing"
	"bizdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

type DashboardOverview struct {
	TotalCustomers int               `json:"totalCustomers"`
	MonthlyRevenue string            `json:"monthlyRevenue"`
	TotalInvoices  int               `json:"totalInvoices"`
	Overdue        []OverdueInvoice  `json:"overdue"`
	LowStock       []LowStockProduct `json:"lowStock"`
	RecentInvoices []RecentInvoice   `json:"recentInvoices"`
}

type OverdueInvoice struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	CustomerID  string `json:"customerId"`
	BalanceDue  string `json:"balanceDue"`
	DaysOverdue int    `json:"daysOverdue"`
}

type LowStockProduct struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	StockQuantity float64 `json:"stockQuantity"`
	ReorderLevel  float64 `json:"reorderLevel"`
}

type RecentInvoice struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Status      string `json:"status"`
	TotalAmount string `json:"totalAmount"`
	IssuedAt    string `json:"issuedAt"` // e.g. "Today", "3 days ago"
}

const recentInvoiceCount = 5

type DashboardController struct {
	Store datastore.Store
	Now   func() time.Time
}

func (dc *DashboardController) GetOverview(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	customers, err := dc.Store.Select(ctx, tenant, models.CollectionCustomers, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	invoices, err := dc.Store.Select(ctx, tenant, models.CollectionInvoices, nil, datastore.OrderBy("created_at", true))
	if err != nil {
		respondError(c, err)
		return
	}
	products, err := dc.Store.Select(ctx, tenant, models.CollectionProducts, nil, datastore.OrderBy("name", false))
	if err != nil {
		respondError(c, err)
		return
	}

	now := dc.now()
	today := utils.BeginningOfDay(now)
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	overview := DashboardOverview{
		TotalCustomers: len(customers),
		TotalInvoices:  len(invoices),
		Overdue:        []OverdueInvoice{},
		LowStock:       []LowStockProduct{},
		RecentInvoices: []RecentInvoice{},
	}

	var monthly float64
	for _, inv := range invoices {
		status := inv.String("status")
		if status == models.StatusCancelled {
			continue
		}
		issued, hasIssued := timeOf(inv["issue_date"])
		if !hasIssued {
			issued, hasIssued = timeOf(inv["created_at"])
		}
		if hasIssued && !issued.Before(firstOfMonth) {
			monthly += inv.Float("total_amount")
		}

		due, hasDue := timeOf(inv["due_date"])
		if !hasDue || status == models.StatusPaid || inv.Float("balance_due") <= 0 {
			continue
		}
		if days := utils.DaysBetween(due, today); days > 0 {
			overview.Overdue = append(overview.Overdue, OverdueInvoice{
				ID:          inv.String("id"),
				Number:      inv.String("number"),
				CustomerID:  inv.String("customer_id"),
				BalanceDue:  pricing.FormatMoney(inv.Float("balance_due")),
				DaysOverdue: days,
			})
		}
	}
	overview.MonthlyRevenue = pricing.FormatMoney(monthly)
	sort.SliceStable(overview.Overdue, func(i, j int) bool {
		return overview.Overdue[i].DaysOverdue > overview.Overdue[j].DaysOverdue
	})

	for _, p := range products {
		if !p.Bool("is_active") {
			continue
		}
		if p.Float("stock_quantity") <= p.Float("reorder_level") {
			overview.LowStock = append(overview.LowStock, LowStockProduct{
				ID:            p.String("id"),
				Name:          p.String("name"),
				StockQuantity: p.Float("stock_quantity"),
				ReorderLevel:  p.Float("reorder_level"),
			})
		}
	}

	for i, inv := range invoices {
		if i == recentInvoiceCount {
			break
		}
		label := ""
		if created, ok := timeOf(inv["created_at"]); ok {
			label = utils.RelativeDay(utils.DaysBetween(created, today))
		}
		overview.RecentInvoices = append(overview.RecentInvoices, RecentInvoice{
			ID:          inv.String("id"),
			Number:      inv.String("number"),
			Status:      inv.String("status"),
			TotalAmount: pricing.FormatMoney(inv.Float("total_amount")),
			IssuedAt:    label,
		})
	}

	c.JSON(http.StatusOK, overview)
}

func (dc *DashboardController) now() time.Time {
	if dc.Now != nil {
		return dc.Now()
	}
	return time.Now()
}

func timeOf(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		parsed, err := parseDate(t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}
