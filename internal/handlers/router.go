package handlers

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/role-task-api/internal/middleware"
	"github.com/yukikurage/role-task-api/internal/services"
	"gorm.io/gorm"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	DB       *gorm.DB
	Identity middleware.IdentityResolver
	Auth     *services.AuthService
	Users    *services.UserService
	Tasks    *services.TaskService
	Logger   *slog.Logger

	CORSOrigins        []string
	CORSOriginSuffixes []string
	RateLimitPerMinute int
	// TrustedProxies lists the proxy IPs or CIDRs allowed to set
	// X-Forwarded-For. Empty means the client IP is the remote address.
	TrustedProxies []string
}

// NewRouter builds the gin engine with every API route.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Error("invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins, cfg.CORSOriginSuffixes))

	authHandler := NewAuthHandler(cfg.Auth)
	userHandler := NewUserHandler(cfg.Users)
	taskHandler := NewTaskHandler(cfg.Tasks)
	healthHandler := NewHealthHandler(cfg.DB)

	requireAuth := middleware.RequireAuth(cfg.Identity)
	requireSuperAdmin := middleware.RequireSuperAdmin()
	limit := middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute)

	// Health check endpoint
	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", limit, authHandler.Register)
			auth.POST("/login", limit, authHandler.Login)
			auth.POST("/logout", requireAuth, authHandler.Logout)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("/me", userHandler.Me)
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", middleware.RequireIDParam("user"), userHandler.GetUser)
			users.POST("", requireSuperAdmin, userHandler.CreateUser)
			users.PUT("/:id", requireSuperAdmin, middleware.RequireIDParam("user"), userHandler.UpdateUser)
			users.DELETE("/:id", requireSuperAdmin, middleware.RequireIDParam("user"), userHandler.DeleteUser)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireIDParam("task"), taskHandler.GetTask)
			tasks.PUT("/:id", middleware.RequireIDParam("task"), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireIDParam("task"), taskHandler.DeleteTask)
		}
	}

	return r
}
