package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	TenantHeader = "X-Tenant-ID"
	tenantIDKey  = "tenant_id"

	maxTenantIDLength = 64
)

// TenantMiddleware exige el header X-Tenant-ID y lo guarda en el contexto.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader(TenantHeader))
		if tenantID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing tenant"})
			c.Abort()
			return
		}
		if len(tenantID) > maxTenantIDLength || strings.ContainsAny(tenantID, " *?[]:\\") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant"})
			c.Abort()
			return
		}

		c.Set(tenantIDKey, tenantID)
		c.Next()
	}
}

// GetTenantID obtiene el tenant resuelto por TenantMiddleware.
func GetTenantID(c *gin.Context) (string, bool) {
	val, ok := c.Get(tenantIDKey)
	if !ok {
		return "", false
	}
	tenantID, ok := val.(string)
	return tenantID, ok && tenantID != ""
}
