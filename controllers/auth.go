package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bizdesk-backend/models"
	"bizdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Password       string `json:"password" binding:"required,min=8"`
	CompanyName    string `json:"companyName" binding:"required"`
	CompanyAddress string `json:"companyAddress"`
	TaxNumber      string `json:"taxNumber"`
}

type LoginInput struct {
	Identifier string `json:"identifier" binding:"required"` // email or phone
	Password   string `json:"password" binding:"required"`
}

// AuthController issues tokens. Users and companies live in gorm even when
// documents use another store.
type AuthController struct {
	DB             *gorm.DB
	Secret         string
	Expiry         time.Duration
	DefaultTaxRate float64
	Log            *zap.Logger
}

// Register creates a company and its owner account.
func (a *AuthController) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	var existing models.User
	result := a.DB.Where("email = ? OR phone = ?", input.Email, input.Phone).First(&existing)
	if result.Error == nil {
		utils.RespondWithError(c, http.StatusConflict, "Email or phone already registered")
		return
	} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	company := models.Company{
		Name:           input.CompanyName,
		Email:          input.Email,
		Phone:          input.Phone,
		Address:        input.CompanyAddress,
		TaxNumber:      input.TaxNumber,
		DefaultTaxRate: a.DefaultTaxRate,
	}
	user := models.User{
		Email:    input.Email,
		Phone:    input.Phone,
		Name:     input.Name,
		Password: input.Password, // hashed in BeforeCreate
		Role:     "owner",
		IsActive: true,
	}
	err := a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&company).Error; err != nil {
			return err
		}
		user.CompanyID = company.ID
		return tx.Create(&user).Error
	})
	if err != nil {
		a.Log.Error("registration failed", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	token, err := utils.GenerateToken(user.ID, company.ID, a.Secret, a.Expiry)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	a.setCookie(c, token)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"user":    user,
		"company": company,
	})
}

func (a *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}
	identifier := strings.TrimSpace(input.Identifier)

	var user models.User
	result := a.DB.Where("email = ? OR phone = ?", identifier, identifier).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}
	if !user.IsActive || !utils.CheckPasswordHash(input.Password, user.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.CompanyID, a.Secret, a.Expiry)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	now := time.Now()
	if err := a.DB.Model(&user).Update("last_login", &now).Error; err != nil {
		a.Log.Warn("failed to record login", zap.String("user", user.ID), zap.Error(err))
	}
	a.setCookie(c, token)

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (a *AuthController) Me(c *gin.Context) {
	userID := c.GetString(utils.ContextUserID)

	var user models.User
	if err := a.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return
	}
	var company models.Company
	if err := a.DB.First(&company, "id = ?", user.CompanyID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Company not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "company": company})
}

func (a *AuthController) setCookie(c *gin.Context, token string) {
	c.SetCookie("token", token, int(a.Expiry.Seconds()), "/", "", true, true)
}
