package routes

import (
	"os"
	"time"

	"bibliotrack/internal/adapters/http/handlers"
	"bibliotrack/internal/adapters/http/middleware"
	"bibliotrack/internal/adapters/persistence/repositories"
	"bibliotrack/internal/config"
	"bibliotrack/internal/core/services"
	"bibliotrack/internal/pkg/audit"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	logRepo := repositories.NewLogRepository(db)

	// Initialize services. Every service shares one audit sink so the
	// whole API writes one trail.
	auditService := services.NewAuditService(logRepo, audit.NewLogger(os.Stdout))
	authService := services.NewAuthService(userRepo, auditService, cfg)
	userService := services.NewUserService(userRepo, auditService)
	bookService := services.NewBookService(bookRepo, auditService)
	loanService := services.NewLoanService(loanRepo, bookRepo, userRepo, auditService)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	bookHandler := handlers.NewBookHandler(bookService)
	loanHandler := handlers.NewLoanHandler(loanService)
	logHandler := handlers.NewLogHandler(auditService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	// Auth routes (public)
	authRoutes := apiV1.Group("/auth")
	authRoutes.Use(middleware.NoCacheHeaders())
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// User management routes (staff)
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	userRoutes.Use(middleware.AuditContext("users"))
	userRoutes.Use(middleware.NoCacheHeaders())
	setupUserRoutes(userRoutes, userHandler)

	// Profile routes (authenticated users)
	profileRoutes := apiV1.Group("/profile")
	profileRoutes.Use(middleware.AuthMiddleware(cfg))
	profileRoutes.Use(middleware.AuditContext("profile"))
	setupProfileRoutes(profileRoutes, userHandler)

	// Catalog routes (authenticated users; writes are staff only)
	bookRoutes := apiV1.Group("/books")
	bookRoutes.Use(middleware.AuthMiddleware(cfg))
	bookRoutes.Use(middleware.AuditContext("books"))
	setupBookRoutes(bookRoutes, bookHandler)

	// Loan ledger routes
	loanRoutes := apiV1.Group("/loans")
	loanRoutes.Use(middleware.AuthMiddleware(cfg))
	loanRoutes.Use(middleware.AuditContext("loans"))
	loanRoutes.Use(middleware.NoCacheHeaders())
	setupLoanRoutes(loanRoutes, loanHandler)

	// Audit log routes (admin only)
	logRoutes := apiV1.Group("/logs")
	logRoutes.Use(middleware.AuthMiddleware(cfg))
	logRoutes.Use(middleware.AdminOnly())
	logRoutes.Use(middleware.AuditContext("logs"))
	logRoutes.Use(middleware.NoCacheHeaders())
	setupLogRoutes(logRoutes, logHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes, rate limited against brute force
	router.Post("/register", middleware.AuthRateLimiter(), middleware.AuditContext("auth"), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), middleware.AuditContext("auth"), handler.Login)

	// Logout works with or without a token; with one, the audit trail
	// records who left
	router.Post("/logout", middleware.OptionalAuth(cfg), middleware.AuditContext("auth"), handler.Logout)

	// Protected routes
	router.Get("/verify", middleware.AuthMiddleware(cfg), handler.Verify)
}

// setupUserRoutes configures user management routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	// Staff can list the directory
	router.Get("/", middleware.LibrarianOrAdmin(), handler.ListUsers)

	// Everything else is admin only
	adminRoutes := router.Group("")
	adminRoutes.Use(middleware.AdminOnly())

	adminRoutes.Get("/:id", handler.GetUser)
	adminRoutes.Put("/:id", handler.UpdateUser)
	adminRoutes.Delete("/:id", handler.DeleteUser)
	adminRoutes.Put("/:id/role", handler.SetUserRole)
}

// setupProfileRoutes configures profile routes (authenticated)
func setupProfileRoutes(router fiber.Router, handler *handlers.UserHandler) {
	// Profile reads are user-specific, so any caching must stay private
	router.Get("/", middleware.PrivateCacheHeaders(30*time.Second), handler.GetProfile)
	router.Put("/", middleware.NoCacheHeaders(), handler.UpdateProfile)
	router.Put("/password", middleware.StrictRateLimiter(), middleware.NoCacheHeaders(), handler.ChangePassword)
}

// setupBookRoutes configures catalog routes
func setupBookRoutes(router fiber.Router, handler *handlers.BookHandler) {
	// Reads for any authenticated user. The static listings are
	// cacheable; availability must never be.
	router.Get("/", middleware.CatalogCache(), handler.ListBooks)
	router.Get("/search", middleware.CatalogCache(), handler.SearchBooks)
	router.Get("/:id/availability", middleware.NoCacheHeaders(), handler.GetAvailability)
	router.Get("/:id", handler.GetBook)

	// Writes are staff only
	staffRoutes := router.Group("")
	staffRoutes.Use(middleware.LibrarianOrAdmin())

	staffRoutes.Post("/", handler.CreateBook)
	staffRoutes.Put("/:id", handler.UpdateBook)

	// Removal is admin only
	adminRoutes := router.Group("")
	adminRoutes.Use(middleware.AdminOnly())

	adminRoutes.Delete("/:id", handler.DeleteBook)
}

// setupLoanRoutes configures loan ledger routes
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	// Self-service routes for any authenticated user
	router.Get("/my-loans", handler.MyLoans)
	router.Get("/my-active-loans", handler.MyActiveLoans)
	router.Post("/request", handler.RequestLoan)

	// Privileged reads, gated per route: a group gate registered here
	// would also catch the ownership-checked GET /:id below
	router.Get("/overdue", middleware.LibrarianOrAdmin(), handler.OverdueLoans)
	router.Get("/statistics", middleware.LibrarianOrAdmin(), handler.Statistics)
	router.Get("/user/:username", middleware.AdminOnly(), handler.UserLoans)

	// After the literal routes so they win the match; the service
	// enforces ownership for non-staff callers
	router.Get("/:id", handler.GetLoan)

	// Staff routes
	staffRoutes := router.Group("")
	staffRoutes.Use(middleware.LibrarianOrAdmin())

	staffRoutes.Get("/", handler.ListLoans)
	staffRoutes.Post("/", handler.CreateLoan)
	staffRoutes.Put("/:id/return", handler.ReturnLoan)

	// Admin routes
	adminRoutes := router.Group("")
	adminRoutes.Use(middleware.AdminOnly())

	adminRoutes.Post("/reconcile", handler.Reconcile)
	adminRoutes.Put("/:id", handler.UpdateLoan)
	adminRoutes.Put("/:id/status", handler.SetLoanStatus)
	adminRoutes.Delete("/:id", handler.DeleteLoan)
}

// setupLogRoutes configures audit log routes (admin only)
func setupLogRoutes(router fiber.Router, handler *handlers.LogHandler) {
	router.Get("/recent", handler.RecentLogs)
	router.Get("/statistics", handler.LogStatistics)
	router.Get("/search", handler.SearchLogs)
	router.Get("/range", handler.LogsByRange)
	router.Get("/level/:level/count", handler.CountByLevel)
	router.Get("/user/:username", handler.LogsByUser)
}
