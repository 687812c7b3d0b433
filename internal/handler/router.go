package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lumenlms/lumen-api/internal/middleware"
	"github.com/lumenlms/lumen-api/internal/models"
	"github.com/lumenlms/lumen-api/internal/repository"
	"github.com/lumenlms/lumen-api/internal/service"
)

// Handlers bundles every HTTP handler wired into the router.
type Handlers struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Teams       *TeamHandler
	Courses     *CourseHandler
	Collections *CollectionHandler
	Connections *ConnectionHandler
	Metrics     *MetricsHandler

	// ExportsEnabled gates the roster export route.
	ExportsEnabled bool
}

// RegisterRoutes mounts the API surface onto the router group. Every route
// below the prefix requires a valid access token except login and refresh.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, auth *service.AuthService, auditRepo *repository.UserRepository) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)

		protected := authGroup.Group("", middleware.JWT(auth))
		protected.POST("/logout", h.Auth.Logout)
		protected.POST("/change-password", h.Auth.ChangePassword)
		protected.GET("/me", h.Auth.Me)
	}

	users := api.Group("/users", middleware.JWT(auth))
	{
		users.POST("", middleware.RequireRoles(models.RoleSuperAdmin), h.Users.Create)
		users.GET("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Users.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), "SELF"), h.Users.Get)
	}

	teams := api.Group("/teams", middleware.JWT(auth))
	{
		teams.POST("", middleware.RequireRoles(models.RoleSuperAdmin), h.Teams.Create)
		teams.GET("", h.Teams.List)
		teams.GET("/:id", h.Teams.Get)
		teams.PUT("/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Teams.Update)
		teams.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin), h.Teams.Delete)
	}

	courses := api.Group("/courses", middleware.JWT(auth))
	{
		courses.POST("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Courses.Create)
		courses.GET("", h.Courses.List)
		courses.GET("/:id", h.Courses.Get)
		courses.PUT("/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Courses.Update)
		courses.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Courses.Delete)
		courses.GET("/:id/access", h.Courses.Access)
		if h.ExportsEnabled {
			courses.GET("/:id/roster/export", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Courses.ExportRoster)
		}
	}

	collections := api.Group("/collections", middleware.JWT(auth))
	{
		collections.POST("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Collections.Create)
		collections.GET("", h.Collections.List)
		collections.GET("/:id", h.Collections.Get)
		collections.PUT("/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Collections.Update)
		collections.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Collections.Delete)
		collections.GET("/:id/courses", h.Collections.ListCourses)
		collections.PUT("/:id/courses/:courseId", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Collections.LinkCourse)
		collections.DELETE("/:id/courses/:courseId", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), h.Collections.UnlinkCourse)
	}

	connections := api.Group("/connections", middleware.JWT(auth))
	{
		connections.GET("", h.Connections.List)
		connections.POST("/invite",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin),
			middleware.Audit(auditRepo, models.AuditActionConnectionInvite, "connection"),
			h.Connections.Invite)
		connections.POST("/request",
			middleware.Audit(auditRepo, models.AuditActionConnectionRequest, "connection"),
			h.Connections.Request)
		connections.POST("/share",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin),
			middleware.Audit(auditRepo, models.AuditActionConnectionShare, "connection"),
			h.Connections.Share)
		connections.PUT("/:id/respond",
			middleware.Audit(auditRepo, models.AuditActionConnectionRespond, "connection"),
			h.Connections.Respond)
		connections.DELETE("/:id",
			middleware.Audit(auditRepo, models.AuditActionConnectionRemove, "connection"),
			h.Connections.Remove)
	}
}
