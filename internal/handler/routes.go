package handler

import (
	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/dafibh/kredo/kredo-backend/internal/middleware"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, loanHandler *LoanHandler, dashboardHandler *DashboardHandler, accrualHandler *AccrualHandler, wsHandler *WebSocketHandler) {
	// WebSocket authenticates with ?token= since browsers cannot set headers on upgrade
	e.GET("/ws", wsHandler.HandleWS)

	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	if rateLimiter != nil {
		api.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	// Client routes, ownership checked per handler
	api.POST("/loans/:loanId/payments", loanHandler.PayLoan)
	api.GET("/loans/:loanId/payments", loanHandler.GetLoanPayments)
	api.GET("/users/:userId/dashboard", dashboardHandler.GetDashboard)
	api.GET("/users/:userId/loans", dashboardHandler.GetUserLoans)

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	admin.POST("/users/:userId/loans", loanHandler.CreateLoan)
	admin.GET("/users/:userId/loans", loanHandler.GetUserLoans)
	admin.POST("/loans/accrue-all", accrualHandler.AccrueAll)
	admin.POST("/loans/:loanId/accrue", loanHandler.AccrueLoan)
	admin.GET("/loans", dashboardHandler.GetAdminLoans)
	admin.GET("/summary", dashboardHandler.GetAdminSummary)
	admin.GET("/accrual-runs/latest", accrualHandler.GetLatestRun)
}

// RegisterDocsRoutes serves Swagger UI and the OpenAPI 3.0 document without auth
func RegisterDocsRoutes(e *echo.Echo, swaggerHandler *SwaggerHandler) {
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", swaggerHandler.ServeOpenAPI3)
}
