package router

import (
	"finance-tracker/internal/config"
	"finance-tracker/internal/handlers"
	"finance-tracker/internal/middleware"
	"finance-tracker/internal/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the routes are bound to.
type Handlers struct {
	Health      *handlers.HealthCheckHandler
	Account     *handlers.AccountHandler
	Transaction *handlers.TransactionHandler
	Budget      *handlers.BudgetHandler
	Dev         *handlers.DevHandler
}

// SetupRouter configures the Echo instance: global middleware, public
// health and metrics routes, then the authenticated /api/v1 group.
func SetupRouter(
	cfg *config.Config,
	h Handlers,
	tokenService services.TokenServiceInterface,
	userService services.UserServiceInterface,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = middleware.CustomHTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.PanicRecovery())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	if len(cfg.Server.CORSAllowOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSAllowOrigins,
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
				echo.HeaderAuthorization,
				middleware.TraceIDHeader,
			},
			ExposeHeaders: []string{middleware.TraceIDHeader},
		}))
	}

	// public
	e.GET("/health", h.Health.HealthCheck)
	e.GET("/health/queue", h.Health.QueueHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.Use(middleware.RequireAuth(tokenService, userService))

	accounts := api.Group("/accounts")
	accounts.POST("", h.Account.CreateAccount)
	accounts.GET("", h.Account.ListAccounts)
	accounts.GET("/:id", h.Account.GetAccount)
	accounts.PUT("/:id/default", h.Account.SetDefaultAccount)

	transactions := api.Group("/transactions")
	transactions.POST("", h.Transaction.CreateTransaction)
	transactions.GET("", h.Transaction.ListTransactions)
	transactions.POST("/bulk-delete", h.Transaction.BulkDeleteTransactions)
	transactions.GET("/:id", h.Transaction.GetTransaction)
	transactions.PUT("/:id", h.Transaction.UpdateTransaction)

	api.GET("/budget", h.Budget.GetCurrentBudget)
	api.PUT("/budget", h.Budget.UpdateBudget)

	if !cfg.IsProduction() && h.Dev != nil {
		api.POST("/dev/seed", h.Dev.SeedTransactions)
	}

	return e
}
