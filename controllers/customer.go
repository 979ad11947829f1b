package controllers

import (
	"context"
	"net/http"
	"strings"

	"bizdesk-backend/cache"
	"bizdesk-backend/datastore"
	"bizdesk-backend/models"
	"bizdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

type CreateCustomerInput struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	TaxPIN  string `json:"taxPin"`
	Notes   string `json:"notes"`
}

type UpdateCustomerInput struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Address  *string `json:"address"`
	TaxPIN   *string `json:"taxPin"`
	Notes    *string `json:"notes"`
	IsActive *bool   `json:"isActive"`
}

// CustomerController serves tenant-scoped customer records. Balances are
// maintained by the document service and cannot be written here.
type CustomerController struct {
	Store datastore.Store
	Cache *cache.QueryCache
}

func (cc *CustomerController) CreateCustomer(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}

	var input CreateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	if input.Phone != "" {
		existing, err := cc.Store.Select(c.Request.Context(), tenant, models.CollectionCustomers,
			datastore.Predicate{"phone": input.Phone}, datastore.Limit(1))
		if err != nil {
			respondError(c, err)
			return
		}
		if len(existing) > 0 {
			utils.RespondWithError(c, http.StatusConflict, "Customer with this phone number already exists")
			return
		}
	}

	customer, err := cc.Store.Insert(c.Request.Context(), tenant, models.CollectionCustomers, datastore.Row{
		"name":      strings.TrimSpace(input.Name),
		"phone":     input.Phone,
		"email":     input.Email,
		"address":   input.Address,
		"tax_pin":   input.TaxPIN,
		"notes":     input.Notes,
		"balance":   0.0,
		"is_active": true,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	cc.Cache.Invalidate(tenant, models.CollectionCustomers)
	c.JSON(http.StatusCreated, customer)
}

func (cc *CustomerController) GetCustomers(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	customers, err := cc.Cache.GetOrLoad(c.Request.Context(), tenant, models.CollectionCustomers, func(ctx context.Context) (any, error) {
		return cc.Store.Select(ctx, tenant, models.CollectionCustomers, nil, datastore.OrderBy("name", false))
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (cc *CustomerController) GetCustomer(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	customer, ok := cc.load(c, tenant)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (cc *CustomerController) UpdateCustomer(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}

	var input UpdateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	customer, ok := cc.load(c, tenant)
	if !ok {
		return
	}

	patch := datastore.Row{}
	if input.Name != nil {
		patch["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		if *input.Phone != "" && !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		if *input.Phone != "" && *input.Phone != customer.String("phone") {
			existing, err := cc.Store.Select(c.Request.Context(), tenant, models.CollectionCustomers,
				datastore.Predicate{"phone": *input.Phone}, datastore.Limit(1))
			if err != nil {
				respondError(c, err)
				return
			}
			if len(existing) > 0 {
				utils.RespondWithError(c, http.StatusConflict, "Another customer with this phone number already exists")
				return
			}
		}
		patch["phone"] = *input.Phone
	}
	if input.Email != nil {
		patch["email"] = *input.Email
	}
	if input.Address != nil {
		patch["address"] = *input.Address
	}
	if input.TaxPIN != nil {
		patch["tax_pin"] = *input.TaxPIN
	}
	if input.Notes != nil {
		patch["notes"] = *input.Notes
	}
	if input.IsActive != nil {
		patch["is_active"] = *input.IsActive
	}

	updated, err := cc.Store.Update(c.Request.Context(), tenant, models.CollectionCustomers, c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	cc.Cache.Invalidate(tenant, models.CollectionCustomers)
	c.JSON(http.StatusOK, updated)
}

// DeleteCustomer refuses customers that still have documents.
func (cc *CustomerController) DeleteCustomer(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	customer, ok := cc.load(c, tenant)
	if !ok {
		return
	}

	for _, coll := range []string{models.CollectionInvoices, models.CollectionQuotations, models.CollectionCreditNotes} {
		docs, err := cc.Store.Select(c.Request.Context(), tenant, coll, datastore.Predicate{"customer_id": customer.String("id")}, datastore.Limit(1))
		if err != nil {
			respondError(c, err)
			return
		}
		if len(docs) > 0 {
			utils.RespondWithError(c, http.StatusConflict, "Customer has "+strings.ReplaceAll(coll, "_", " ")+"; deactivate it instead")
			return
		}
	}

	if err := cc.Store.Delete(c.Request.Context(), tenant, models.CollectionCustomers, datastore.Predicate{"id": customer.String("id")}); err != nil {
		respondError(c, err)
		return
	}
	cc.Cache.Invalidate(tenant, models.CollectionCustomers, "reports")
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}

func (cc *CustomerController) load(c *gin.Context, tenant datastore.Tenant) (datastore.Row, bool) {
	rows, err := cc.Store.Select(c.Request.Context(), tenant, models.CollectionCustomers, datastore.Predicate{"id": c.Param("id")}, datastore.Limit(1))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if len(rows) == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		return nil, false
	}
	return rows[0], true
}
