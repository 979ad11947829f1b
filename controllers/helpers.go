package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"bizdesk-backend/datastore"
	"bizdesk-backend/services"
	"bizdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// tenantOf reads the company set by utils.AuthMiddleware.
func tenantOf(c *gin.Context) (datastore.Tenant, bool) {
	companyID := c.GetString(utils.ContextCompanyID)
	if companyID == "" {
		utils.RespondWithError(c, http.StatusUnauthorized, "Company ID not found in context")
		return "", false
	}
	return datastore.Tenant(companyID), true
}

// statusFor maps the service error types onto HTTP status codes.
func statusFor(err error) int {
	var (
		ve *services.ValidationError
		ce *services.ConflictError
		de *services.DependencyMissingError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ce):
		return http.StatusConflict
	case errors.As(err, &de):
		return http.StatusFailedDependency
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status and message its type calls for.
// Store errors are translated first.
func respondError(c *gin.Context, err error) {
	err = services.FromStore(err)
	status := statusFor(err)
	msg := services.UserMessage(err)
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	utils.RespondWithError(c, status, msg)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
