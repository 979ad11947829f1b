package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"bizdesk-backend/cache"
	"bizdesk-backend/pricing"
	"bizdesk-backend/services"
	"bizdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

type DocumentRequest struct {
	CustomerID       string             `json:"customerId"`
	IssueDate        string             `json:"issueDate"`
	DueDate          string             `json:"dueDate"`
	ValidUntil       string             `json:"validUntil"`
	Status           string             `json:"status"`
	Notes            string             `json:"notes"`
	Reason           string             `json:"reason"`
	QuotationID      *string            `json:"quotationId"`
	InvoiceID        *string            `json:"invoiceId"`
	AffectsInventory *bool              `json:"affectsInventory"`
	Items            []pricing.LineItem `json:"items"`
}

type ApplyCreditInput struct {
	InvoiceID string  `json:"invoiceId" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

type ConvertInput struct {
	AffectsInventory *bool `json:"affectsInventory"`
}

// DocumentController serves one document kind. The router mounts one per
// kind.
type DocumentController struct {
	Kind  services.DocumentKind
	Docs  *services.DocumentService
	Cache *cache.QueryCache
}

func (dc *DocumentController) List(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	customerID := c.Query("customerId")
	limit := queryInt(c, "limit", 0)

	key := cache.Key(dc.Kind.Collection)
	if customerID != "" {
		key = cache.Key(dc.Kind.Collection, "customer", customerID)
	}
	if limit > 0 {
		key = cache.Key(key, "limit", strconv.Itoa(limit))
	}

	docs, err := dc.Cache.GetOrLoad(c.Request.Context(), tenant, key, func(ctx context.Context) (any, error) {
		return dc.Docs.List(ctx, tenant, dc.Kind, customerID, limit)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (dc *DocumentController) Get(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	doc, err := dc.Docs.Get(c.Request.Context(), tenant, dc.Kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (dc *DocumentController) Create(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	in, ok := dc.bind(c)
	if !ok {
		return
	}
	out, err := dc.Docs.Create(c.Request.Context(), tenant, dc.Kind, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcomeJSON(out))
}

func (dc *DocumentController) Update(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	in, ok := dc.bind(c)
	if !ok {
		return
	}
	out, err := dc.Docs.Update(c.Request.Context(), tenant, dc.Kind, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcomeJSON(out))
}

func (dc *DocumentController) Delete(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	out, err := dc.Docs.Delete(c.Request.Context(), tenant, dc.Kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcomeJSON(out))
}

// ApplyCredit allocates part of a credit note to an invoice.
func (dc *DocumentController) ApplyCredit(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	var input ApplyCreditInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	out, err := dc.Docs.ApplyCredit(c.Request.Context(), tenant, c.Param("id"), input.InvoiceID, input.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcomeJSON(out))
}

// Convert turns a quotation into an invoice.
func (dc *DocumentController) Convert(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	var input ConvertInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}
	out, err := dc.Docs.ConvertQuotation(c.Request.Context(), tenant, c.Param("id"), input.AffectsInventory)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcomeJSON(out))
}

func (dc *DocumentController) bind(c *gin.Context) (services.DocumentInput, bool) {
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return services.DocumentInput{}, false
	}

	in := services.DocumentInput{
		CustomerID:       req.CustomerID,
		Status:           req.Status,
		Notes:            req.Notes,
		Reason:           req.Reason,
		AffectsInventory: req.AffectsInventory,
		Items:            req.Items,
	}
	switch dc.Kind.OptionalRef {
	case "quotation_id":
		in.Reference = req.QuotationID
	case "invoice_id":
		in.Reference = req.InvoiceID
	}

	dates := []struct {
		name  string
		value string
		dst   **time.Time
	}{
		{"issueDate", req.IssueDate, &in.IssueDate},
		{"dueDate", req.DueDate, &in.DueDate},
		{"validUntil", req.ValidUntil, &in.ValidUntil},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		t, err := parseDate(d.value)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+d.name+": use YYYY-MM-DD")
			return services.DocumentInput{}, false
		}
		*d.dst = &t
	}
	return in, true
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func outcomeJSON(out *services.Outcome) gin.H {
	warnings := make([]string, len(out.Warnings))
	for i, w := range out.Warnings {
		warnings[i] = w.Error()
	}
	return gin.H{
		"document":     out.Document,
		"number":       out.Number,
		"state":        out.State,
		"warnings":     warnings,
		"notification": out.Notification,
	}
}
