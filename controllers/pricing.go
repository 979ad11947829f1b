package controllers

import (
	"fmt"
	"net/http"

	"bizdesk-backend/pricing"
	"bizdesk-backend/services"
	"bizdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

type PricingEdit struct {
	Type      string             `json:"type" binding:"required"`
	Index     int                `json:"index"`
	Value     float64            `json:"value"`
	Inclusive bool               `json:"inclusive"`
	Item      *pricing.LineItem  `json:"item"`
	Items     []pricing.LineItem `json:"items"`
}

type PricingPreviewInput struct {
	Kind           string             `json:"kind" binding:"required"`
	DefaultTaxRate *float64           `json:"defaultTaxRate"`
	Items          []pricing.LineItem `json:"items"`
	Edits          []PricingEdit      `json:"edits"`
}

// PricingController prices an unsaved line sheet so clients can show
// totals while a document is being edited.
type PricingController struct {
	DefaultTaxRate float64
}

func (pc *PricingController) Preview(c *gin.Context) {
	var input PricingPreviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	kind, ok := services.KindByName(input.Kind)
	if !ok {
		utils.RespondWithError(c, http.StatusBadRequest, "Unknown document kind: "+input.Kind)
		return
	}
	rate := pc.DefaultTaxRate
	if input.DefaultTaxRate != nil {
		rate = *input.DefaultTaxRate
	}

	sheet := pricing.NewSheet(services.PolicyFor(kind), rate, input.Items...)
	for i, e := range input.Edits {
		action, err := editAction(e)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("edit %d: %v", i+1, err))
			return
		}
		sheet = pricing.ApplyEdit(sheet, action)
	}

	c.JSON(http.StatusOK, gin.H{
		"policy": sheet.Policy.String(),
		"sheet":  sheet,
		"formatted": gin.H{
			"subtotal":    pricing.FormatMoney(sheet.Totals.Subtotal),
			"taxAmount":   pricing.FormatMoney(sheet.Totals.TaxAmount),
			"totalAmount": pricing.FormatMoney(sheet.Totals.TotalAmount),
		},
	})
}

func editAction(e PricingEdit) (pricing.Action, error) {
	switch e.Type {
	case "add":
		if e.Item == nil {
			return nil, fmt.Errorf("add needs an item")
		}
		return pricing.AddItem{Item: *e.Item}, nil
	case "remove":
		return pricing.RemoveItem{Index: e.Index}, nil
	case "quantity":
		return pricing.SetQuantity{Index: e.Index, Quantity: e.Value}, nil
	case "unitPrice":
		return pricing.SetUnitPrice{Index: e.Index, UnitPrice: e.Value}, nil
	case "discount":
		return pricing.SetDiscount{Index: e.Index, Percent: e.Value}, nil
	case "taxPercent":
		return pricing.SetTaxPercent{Index: e.Index, Percent: e.Value}, nil
	case "taxInclusive":
		return pricing.SetTaxInclusive{Index: e.Index, Inclusive: e.Inclusive}, nil
	case "replace":
		return pricing.ReplaceItems{Items: e.Items}, nil
	default:
		return nil, fmt.Errorf("unknown edit type %q", e.Type)
	}
}
