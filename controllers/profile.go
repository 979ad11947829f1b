package controllers

import (
	"net/http"

	"bizdesk-backend/models"
	"bizdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UpdateCompanyInput struct {
	Name           *string  `json:"name"`
	Email          *string  `json:"email"`
	Phone          *string  `json:"phone"`
	Address        *string  `json:"address"`
	TaxNumber      *string  `json:"taxNumber"`
	DefaultTaxRate *float64 `json:"defaultTaxRate" binding:"omitempty,min=0,max=100"`
	Currency       *string  `json:"currency" binding:"omitempty,len=3"`
}

// ProfileController manages the signed-in company's settings.
type ProfileController struct {
	DB *gorm.DB
}

func (p *ProfileController) GetProfile(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	var company models.Company
	if err := p.DB.Preload("Users").First(&company, "id = ?", string(tenant)).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Company not found")
		return
	}
	c.JSON(http.StatusOK, company)
}

func (p *ProfileController) UpdateCompany(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}

	var input UpdateCompanyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var company models.Company
	if err := p.DB.First(&company, "id = ?", string(tenant)).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Company not found")
		return
	}

	if input.Name != nil {
		company.Name = *input.Name
	}
	if input.Email != nil {
		if !utils.ValidateEmail(*input.Email) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid email address")
			return
		}
		company.Email = *input.Email
	}
	if input.Phone != nil {
		if !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		company.Phone = *input.Phone
	}
	if input.Address != nil {
		company.Address = *input.Address
	}
	if input.TaxNumber != nil {
		company.TaxNumber = *input.TaxNumber
	}
	if input.DefaultTaxRate != nil {
		company.DefaultTaxRate = *input.DefaultTaxRate
	}
	if input.Currency != nil {
		company.Currency = *input.Currency
	}

	if err := p.DB.Save(&company).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update company")
		return
	}
	c.JSON(http.StatusOK, company)
}
