// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"weighbridge/internal/domain/auth"
	"weighbridge/internal/infrastructure/http/v1/handlers"
	"weighbridge/internal/infrastructure/http/v1/middleware"
)

// Role sets guarding the write paths. Reads are open to any authenticated user.
var (
	weighingRoles = []string{auth.RoleOperator, auth.RoleSupervisor}
	reviewRoles   = []string{auth.RoleSupervisor}
	billingRoles  = []string{auth.RoleAccountant}
)

// RegisterEntryRoutes registers the entry lifecycle routes.
//
// Usage:
//
//	handler := handlers.NewEntryHandler(baseHandler, entryService)
//	RegisterEntryRoutes(protected.Group("/entries"), handler)
func RegisterEntryRoutes(group *gin.RouterGroup, h *handlers.EntryHandler) {
	group.GET("", h.List)
	group.POST("", middleware.RequireRole(weighingRoles...), h.Create)
	group.GET("/:id", h.Get)
	group.PATCH("/:id", middleware.RequireRole(weighingRoles...), h.Update)
	group.DELETE("/:id", middleware.RequireRole(reviewRoles...), h.Delete)
	group.POST("/:id/exit-weight", middleware.RequireRole(weighingRoles...), h.RecordExitWeight)
	group.POST("/:id/review", middleware.RequireRole(reviewRoles...), h.Review)
	group.POST("/:id/flag", middleware.RequireRole(reviewRoles...), h.Flag)
}

// RegisterInvoiceRoutes registers the invoice routes.
func RegisterInvoiceRoutes(group *gin.RouterGroup, h *handlers.InvoiceHandler) {
	group.GET("", h.List)
	group.POST("", middleware.RequireRole(billingRoles...), h.Create)
	group.GET("/:id", h.Get)
	group.DELETE("/:id", middleware.RequireRole(billingRoles...), h.Delete)
	group.POST("/:id/recompute", middleware.RequireRole(billingRoles...), h.Recompute)
}
