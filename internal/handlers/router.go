package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type HandlerManager struct {
	serviceManager services.ServiceManager
	authHandler    *AuthHandler
	testHandler    *TestHandler
	sessionHandler *SessionHandler
	attemptHandler *AttemptHandler
	reportHandler  *ReportHandler
	authMiddleware *AuthMiddleware
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		serviceManager: serviceManager,
		authHandler:    NewAuthHandler(serviceManager.Auth(), logger),
		testHandler:    NewTestHandler(serviceManager.Test(), logger),
		sessionHandler: NewSessionHandler(serviceManager.Attempt(), logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), logger),
		reportHandler:  NewReportHandler(serviceManager.Report(), logger),
		authMiddleware: NewAuthMiddleware(serviceManager.Auth()),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	{
		auth.POST("/register", hm.authHandler.Register)
		auth.POST("/login", hm.authHandler.Login)
	}

	protected := v1.Group("")
	protected.Use(hm.authMiddleware.RequireAuth())
	{
		protected.POST("/auth/logout", hm.authHandler.Logout)
		protected.GET("/auth/me", hm.authHandler.Me)

		authorOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)

		tests := protected.Group("/tests")
		{
			// View tests - All authenticated users
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/:id", hm.testHandler.GetTest)

			// Create/modify tests - Teachers and Admins only
			tests.POST("", authorOnly, hm.testHandler.CreateTest)
			tests.POST("/generate", authorOnly, hm.testHandler.GenerateQuestions)
			tests.PUT("/:id", authorOnly, hm.testHandler.UpdateTest)
			tests.DELETE("/:id", authorOnly, hm.testHandler.DeleteTest)
			tests.POST("/:id/publish", authorOnly, hm.testHandler.PublishTest)
			tests.POST("/:id/unpublish", authorOnly, hm.testHandler.UnpublishTest)
		}

		sessions := protected.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("/current", hm.sessionHandler.GetCurrentSession)
			sessions.PUT("/current/answers", hm.sessionHandler.SelectAnswer)
			sessions.POST("/current/next", hm.sessionHandler.Next)
			sessions.POST("/current/previous", hm.sessionHandler.Previous)
			sessions.POST("/current/submit", hm.sessionHandler.Submit)
			sessions.POST("/current/abandon", hm.sessionHandler.Abandon)
		}

		attempts := protected.Group("/attempts")
		{
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/result", hm.attemptHandler.GetResult)
			attempts.GET("/:id/feedback", hm.attemptHandler.GetFeedback)
		}

		reports := protected.Group("/reports")
		{
			reports.GET("/me", hm.reportHandler.MyHistory)
			reports.GET("/attempts", authorOnly, hm.reportHandler.AttemptReport)
			reports.GET("/attempts/export", authorOnly, hm.reportHandler.ExportAttempts)
			reports.GET("/subjects", authorOnly, hm.reportHandler.SubjectSummary)
		}
	}
}

func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"active_sessions": hm.serviceManager.Attempt().ActiveSessions(),
	})
}
