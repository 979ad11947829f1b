package controllers

import (
	"context"
	"net/http"
	"strings"

	"bizdesk-backend/cache"
	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
	"bizdesk-backend/services"
	"bizdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

type CreateProductInput struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	UnitPrice    float64 `json:"unitPrice" binding:"min=0"`
	TaxPercent   float64 `json:"taxPercent" binding:"min=0,max=100"`
	TaxInclusive bool    `json:"taxInclusive"`
	OpeningStock float64 `json:"openingStock" binding:"min=0"`
	ReorderLevel float64 `json:"reorderLevel" binding:"min=0"`
}

type UpdateProductInput struct {
	SKU          *string  `json:"sku"`
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Category     *string  `json:"category"`
	UnitPrice    *float64 `json:"unitPrice" binding:"omitempty,min=0"`
	TaxPercent   *float64 `json:"taxPercent" binding:"omitempty,min=0,max=100"`
	TaxInclusive *bool    `json:"taxInclusive"`
	ReorderLevel *float64 `json:"reorderLevel" binding:"omitempty,min=0"`
	IsActive     *bool    `json:"isActive"`
}

type AdjustStockInput struct {
	MovementType string  `json:"movementType" binding:"required,oneof=IN OUT"`
	Quantity     float64 `json:"quantity" binding:"required,gt=0"`
	Notes        string  `json:"notes"`
}

// ProductController serves the catalogue. Stock quantity only changes
// through the ledger.
type ProductController struct {
	Store  datastore.Store
	Ledger *services.StockLedger
	Cache  *cache.QueryCache
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}

	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	category := input.Category
	if category == "" {
		category = "General"
	}

	ctx := c.Request.Context()
	product, err := pc.Store.Insert(ctx, tenant, models.CollectionProducts, datastore.Row{
		"sku":            strings.TrimSpace(input.SKU),
		"name":           strings.TrimSpace(input.Name),
		"description":    input.Description,
		"category":       category,
		"unit_price":     input.UnitPrice,
		"tax_percent":    input.TaxPercent,
		"tax_inclusive":  input.TaxInclusive,
		"stock_quantity": 0.0,
		"reorder_level":  input.ReorderLevel,
		"is_active":      true,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if input.OpeningStock > 0 {
		if _, err := pc.Ledger.Adjust(ctx, tenant, product.String("id"), models.MovementIn, input.OpeningStock, services.ReferenceOpening, "Opening stock"); err != nil {
			respondError(c, err)
			return
		}
		product["stock_quantity"] = input.OpeningStock
	}

	pc.Cache.Invalidate(tenant, models.CollectionProducts, models.CollectionStockMovements)
	c.JSON(http.StatusCreated, product)
}

func (pc *ProductController) GetProducts(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	products, err := pc.Cache.GetOrLoad(c.Request.Context(), tenant, models.CollectionProducts, func(ctx context.Context) (any, error) {
		return pc.Store.Select(ctx, tenant, models.CollectionProducts, nil, datastore.OrderBy("name", false))
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	product, ok := pc.load(c, tenant)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, product)
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}

	var input UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	patch := datastore.Row{}
	if input.SKU != nil {
		patch["sku"] = strings.TrimSpace(*input.SKU)
	}
	if input.Name != nil {
		patch["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		patch["description"] = *input.Description
	}
	if input.Category != nil {
		patch["category"] = *input.Category
	}
	if input.UnitPrice != nil {
		patch["unit_price"] = *input.UnitPrice
	}
	if input.TaxPercent != nil {
		patch["tax_percent"] = *input.TaxPercent
	}
	if input.TaxInclusive != nil {
		patch["tax_inclusive"] = *input.TaxInclusive
	}
	if input.ReorderLevel != nil {
		patch["reorder_level"] = *input.ReorderLevel
	}
	if input.IsActive != nil {
		patch["is_active"] = *input.IsActive
	}

	product, err := pc.Store.Update(c.Request.Context(), tenant, models.CollectionProducts, c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	pc.Cache.Invalidate(tenant, models.CollectionProducts)
	c.JSON(http.StatusOK, product)
}

// DeleteProduct refuses products with ledger history.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	product, ok := pc.load(c, tenant)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	movements, err := pc.Store.Select(ctx, tenant, models.CollectionStockMovements,
		datastore.Predicate{"product_id": product.String("id")}, datastore.Limit(1))
	if err != nil {
		respondError(c, err)
		return
	}
	if len(movements) > 0 {
		utils.RespondWithError(c, http.StatusConflict, "Product has stock movements; deactivate it instead")
		return
	}

	if err := pc.Store.Delete(ctx, tenant, models.CollectionProducts, datastore.Predicate{"id": product.String("id")}); err != nil {
		respondError(c, err)
		return
	}
	pc.Cache.Invalidate(tenant, models.CollectionProducts, "reports")
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// AdjustStock records a manual IN or OUT movement.
func (pc *ProductController) AdjustStock(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}

	var input AdjustStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	product, ok := pc.load(c, tenant)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	movement, err := pc.Ledger.Adjust(ctx, tenant, product.String("id"), input.MovementType, input.Quantity, services.ReferenceAdjustment, input.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	pc.Cache.Invalidate(tenant, models.CollectionProducts, models.CollectionStockMovements, "reports")

	updated, ok := pc.load(c, tenant)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"movement": movement, "product": updated})
}

// GetStockMovements lists the ledger, newest first, filtered by product or
// document reference.
func (pc *ProductController) GetStockMovements(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	where := datastore.Predicate{}
	if id := c.Query("productId"); id != "" {
		where["product_id"] = id
	}
	if id := c.Query("referenceId"); id != "" {
		where["reference_id"] = id
	}
	opts := []datastore.SelectOption{datastore.OrderBy("created_at", true)}
	if limit := queryInt(c, "limit", 0); limit > 0 {
		opts = append(opts, datastore.Limit(limit))
	}

	movements, err := pc.Store.Select(c.Request.Context(), tenant, models.CollectionStockMovements, where, opts...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func (pc *ProductController) load(c *gin.Context, tenant datastore.Tenant) (datastore.Row, bool) {
	rows, err := pc.Store.Select(c.Request.Context(), tenant, models.CollectionProducts, datastore.Predicate{"id": c.Param("id")}, datastore.Limit(1))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if len(rows) == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Product not found")
		return nil, false
	}
	return rows[0], true
}
