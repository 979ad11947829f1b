package controllers

import (
	"net/http"
	"testing"
	"time"

	"bizdesk-backend/models"
	"bizdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func newAuthRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := setupAuthDB(t)

	ac := &AuthController{DB: db, Secret: testSecret, Expiry: time.Hour, DefaultTaxRate: 16, Log: zap.NewNop()}
	pc := &ProfileController{DB: db}

	r := gin.New()
	auth := r.Group("/auth")
	auth.POST("/register", ac.Register)
	auth.POST("/login", ac.Login)
	auth.Use(utils.AuthMiddleware(testSecret))
	auth.GET("/me", ac.Me)
	auth.GET("/profile", pc.GetProfile)
	auth.PUT("/profile", pc.UpdateCompany)
	return r, db
}

var registration = obj{
	"email":       "owner@acme.test",
	"phone":       "+254712345678",
	"name":        "Ada Owner",
	"password":    "correct-horse",
	"companyName": "Acme Supplies",
	"taxNumber":   "P051234567X",
}

func TestRegisterLoginMe(t *testing.T) {
	r, db := newAuthRouter(t)

	w := serve(t, r, http.MethodPost, "/auth/register", registration, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.NotEmpty(t, body["token"])
	company := body["company"].(map[string]any)
	assert.Equal(t, "Acme Supplies", company["name"])
	assert.EqualValues(t, 16, company["defaultTaxRate"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "owner", user["role"])
	assert.NotContains(t, w.Body.String(), "correct-horse")

	var stored models.User
	require.NoError(t, db.First(&stored, "email = ?", "owner@acme.test").Error)
	assert.NotEqual(t, "correct-horse", stored.Password)
	assert.Equal(t, company["id"], stored.CompanyID)

	w = serve(t, r, http.MethodPost, "/auth/register", registration, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, identifier := range []string{"owner@acme.test", "+254712345678"} {
		w = serve(t, r, http.MethodPost, "/auth/login", obj{"identifier": identifier, "password": "correct-horse"}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	token := decode[map[string]any](t, w)["token"].(string)

	w = serve(t, r, http.MethodPost, "/auth/login", obj{"identifier": "owner@acme.test", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = serve(t, r, http.MethodPost, "/auth/login", obj{"identifier": "nobody@acme.test", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(t, r, http.MethodGet, "/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, w)
	assert.Equal(t, "Ada Owner", me["user"].(map[string]any)["name"])
	assert.Equal(t, "Acme Supplies", me["company"].(map[string]any)["name"])

	require.NoError(t, db.First(&stored, "email = ?", "owner@acme.test").Error)
	assert.NotNil(t, stored.LastLogin)
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newAuthRouter(t)

	short := obj{}
	for k, v := range registration {
		short[k] = v
	}
	short["password"] = "short"
	badPhone := obj{}
	for k, v := range registration {
		badPhone[k] = v
	}
	badPhone["phone"] = "12"

	for name, body := range map[string]obj{"short password": short, "bad phone": badPhone, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			w := serve(t, r, http.MethodPost, "/auth/register", body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestInactiveUserCannotLogin(t *testing.T) {
	r, db := newAuthRouter(t)
	w := serve(t, r, http.MethodPost, "/auth/register", registration, "")
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "owner@acme.test").Update("is_active", false).Error)

	w = serve(t, r, http.MethodPost, "/auth/login", obj{"identifier": "owner@acme.test", "password": "correct-horse"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfile(t *testing.T) {
	r, _ := newAuthRouter(t)
	w := serve(t, r, http.MethodPost, "/auth/register", registration, "")
	require.Equal(t, http.StatusCreated, w.Code)
	token := decode[map[string]any](t, w)["token"].(string)

	w = serve(t, r, http.MethodGet, "/auth/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]any](t, w)
	assert.Equal(t, "KES", profile["currency"])
	assert.Len(t, profile["users"], 1)

	w = serve(t, r, http.MethodPut, "/auth/profile", obj{"defaultTaxRate": 8, "currency": "USD", "address": "1 Market St"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[map[string]any](t, w)
	assert.EqualValues(t, 8, updated["defaultTaxRate"])
	assert.Equal(t, "USD", updated["currency"])
	assert.Equal(t, "Acme Supplies", updated["name"])

	tests := map[string]obj{
		"rate above 100":  {"defaultTaxRate": 101},
		"currency length": {"currency": "DOLLAR"},
		"bad email":       {"email": "not-an-email"},
		"bad phone":       {"phone": "12"},
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := serve(t, r, http.MethodPut, "/auth/profile", body, token)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	w = serve(t, r, http.MethodGet, "/auth/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
