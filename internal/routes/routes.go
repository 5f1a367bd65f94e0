package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmarket/internal/authz"
	"taskmarket/internal/handlers"
	"taskmarket/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	tokens *authz.Tokens,
	authHandler *handlers.AuthHandler,
	passwordHandler *handlers.PasswordResetHandler,
	userHandler *handlers.UserHandler,
	roleHandler *handlers.RoleHandler,
	taskHandler *handlers.TaskHandler,
	jobHandler *handlers.JobHandler, // nil, если джоб выключен
	realtimeHandler *handlers.RealtimeHandler,
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/login", authHandler.Login)
	r.POST("/refresh", authHandler.RefreshToken)
	r.POST("/register", userHandler.Register)
	r.POST("/password/forgot", passwordHandler.Forgot)
	r.POST("/password/reset", passwordHandler.Reset)

	// ---- protected
	api := r.Group("/", middleware.AuthMiddleware(tokens))

	api.GET("/me", authHandler.Me)
	api.POST("/auth/mode", authHandler.SwitchMode)
	api.POST("/logout", authHandler.Logout)

	// TASKS
	tasks := api.Group("/tasks")
	{
		tasks.GET("", taskHandler.GetAll)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.POST("", middleware.RequirePermission(authz.PermTasksCreate), taskHandler.Create)
		tasks.POST("/:id/status", middleware.RequirePermission(authz.PermTasksCreate), taskHandler.ChangeStatus)
		tasks.POST("/:id/moderate", middleware.RequirePermission(authz.PermTasksModerate), taskHandler.Moderate)
		tasks.POST("/:id/claim", middleware.RequirePermission(authz.PermTasksClaim), taskHandler.Claim)
	}

	// EXECUTIONS
	execs := api.Group("/executions")
	{
		execs.GET("/mine", taskHandler.MyExecutions)
		execs.POST("/:id/submit", middleware.RequirePermission(authz.PermTasksSubmit), taskHandler.Submit)
		execs.POST("/:id/review", middleware.RequirePermission(authz.PermTasksReview), taskHandler.Review)
	}
	if realtimeHandler != nil {
		api.GET("/ws/executions", realtimeHandler.Executions)
	}

	// ROLES (admin)
	roles := api.Group("/roles", middleware.RequirePermission(authz.PermRolesManage))
	{
		roles.GET("", roleHandler.ListRoles)
		roles.POST("", roleHandler.CreateRole)
		roles.GET("/permissions", roleHandler.ListPermissions)
		roles.POST("/permissions", roleHandler.CreatePermission)
		roles.GET("/:id/grants", roleHandler.ListGrants)
		roles.POST("/:id/grants", roleHandler.Grant)
		roles.DELETE("/:id/grants/:permission", roleHandler.Revoke)
	}

	// USERS (admin)
	users := api.Group("/users", middleware.RequirePermission(authz.PermUsersManage))
	{
		users.GET("", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUserByID)
		users.POST("/:id/roles", userHandler.AssignRole)
		users.DELETE("/:id/roles/:role_id", userHandler.RemoveRole)
	}

	// JOBS (admin)
	if jobHandler != nil {
		jobs := api.Group("/admin/jobs", middleware.RequirePermission(authz.PermJobsRun))
		{
			jobs.GET("/task-expiry", jobHandler.TaskExpiryStats)
			jobs.POST("/task-expiry/run", jobHandler.RunTaskExpiry)
		}
	}

	return r
}
