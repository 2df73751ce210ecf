package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attempt-engine/internal/config"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"github.com/SAP-F-2025/attempt-engine/internal/services"
	"github.com/SAP-F-2025/attempt-engine/internal/utils"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

type HandlerManager struct {
	serviceManager    services.ServiceManager
	assessmentHandler *AssessmentHandler
	attemptHandler    *AttemptHandler
	resultHandler     *ResultHandler
	userHandler       *UserHandler
	authMiddleware    *CasdoorAuthMiddleware
	logger            utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:    serviceManager,
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		resultHandler:     NewResultHandler(serviceManager.Result(), logger),
		userHandler:       NewUserHandler(userRepo, logger),
		authMiddleware:    NewCasdoorAuthMiddleware(casdoorConfig, userRepo),
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		ownerOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)

		assessments := v1.Group("/assessments")
		{
			// Taker side
			assessments.GET("/:id/eligibility", hm.attemptHandler.CheckEligibility)
			assessments.GET("/:id/attempts/mine", hm.attemptHandler.ListMyAttempts)

			// Owner side; ownership itself is checked by the services
			assessments.POST("/:id/publish", ownerOnly, hm.assessmentHandler.PublishAssessment)
			assessments.POST("/:id/unpublish", ownerOnly, hm.assessmentHandler.UnpublishAssessment)
			assessments.DELETE("/:id", ownerOnly, hm.assessmentHandler.DeleteAssessment)

			assessments.GET("/:id/pool", ownerOnly, hm.assessmentHandler.ListPool)
			assessments.POST("/:id/pool", ownerOnly, hm.assessmentHandler.AddToPool)
			assessments.DELETE("/:id/pool", ownerOnly, hm.assessmentHandler.RemoveFromPool)

			assessments.GET("/:id/results", ownerOnly, hm.resultHandler.ListResults)
			assessments.GET("/:id/results/export", ownerOnly, hm.resultHandler.ExportResults)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/:id", hm.attemptHandler.ResumeAttempt)
			attempts.PUT("/:id/answers", hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/finalize", hm.attemptHandler.FinalizeAttempt)
			attempts.GET("/:id/result", hm.resultHandler.GetResult)
		}

		users := v1.Group("/users")
		{
			users.GET("/me", hm.userHandler.GetMe)
			users.GET("/:id", ownerOnly, hm.userHandler.GetUser)
		}
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		utils.FromContext(c, hm.logger).Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "attempt-engine",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "attempt-engine",
	})
}
