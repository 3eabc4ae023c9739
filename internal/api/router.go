package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Xepthy/RSC-Record-Management-sub000/internal/api/handlers"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/api/middleware"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/config"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/services"
	"github.com/Xepthy/RSC-Record-Management-sub000/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, client *mongo.Client, db *mongo.Database, rdb *redis.Client, emailer services.EmailEnqueuer) *gin.Engine {
	// Initialize services needed by API handlers here.
	auditService := services.NewAuditService(db)
	dualWrite := services.NewDualWriteCoordinator(client, db)
	accountService := services.NewAccountService(db, rdb, cfg, emailer)
	inquiryService := services.NewInquiryService(client, db, dualWrite, auditService, emailer)
	projectService := services.NewProjectService(client, db, accountService, inquiryService, auditService, dualWrite, emailer)
	editLockService := services.NewEditLockService(db, cfg)

	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	authHandler := handlers.NewAuthHandler(cfg, accountService)
	inquiryHandler := handlers.NewInquiryHandler(accountService, inquiryService, s3Storage)
	projectHandler := handlers.NewProjectHandler(projectService, editLockService, s3Storage)
	accountHandler := handlers.NewAccountHandler(accountService)
	auditHandler := handlers.NewAuditHandler(auditService)

	v1 := r.Group("/v1")
	{
		// Public routes
		v1.POST("/auth/login", authHandler.Login)
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/password-reset", authHandler.RequestPasswordReset)
		v1.POST("/auth/password-reset/confirm", authHandler.ConfirmPasswordReset)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Client routes
		authed := v1.Group("/")
		authed.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authed.POST("/inquiries", inquiryHandler.Submit)
			authed.GET("/inquiries/mine", inquiryHandler.ListMine)
			authed.POST("/inquiries/mine/:id/notifications/read", inquiryHandler.MarkNotificationsRead)
			authed.POST("/inquiries/:id/documents/upload-url", inquiryHandler.RequestUploadURL)
		}

		// Staff routes
		staff := v1.Group("/staff")
		staff.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.StaffMiddleware())
		{
			staff.GET("/inquiries", inquiryHandler.List)
			staff.GET("/inquiries/:id", inquiryHandler.Get)
			staff.PATCH("/inquiries/:id", inquiryHandler.UpdateTriage)
			staff.POST("/inquiries/:id/read", inquiryHandler.MarkRead)
			staff.POST("/inquiries/:id/archive", inquiryHandler.Archive)
			staff.POST("/inquiries/:id/promote", projectHandler.Promote)

			staff.GET("/projects", projectHandler.List)
			staff.GET("/projects/:id", projectHandler.Get)
			staff.PUT("/projects/:id", projectHandler.SaveEdit)
			staff.POST("/projects/:id/lock", projectHandler.AcquireLock)
			staff.POST("/projects/:id/lock/renew", projectHandler.RenewLock)
			staff.DELETE("/projects/:id/lock", projectHandler.ReleaseLock)
			staff.POST("/projects/:id/complete", projectHandler.Complete)
			staff.POST("/projects/:id/files", projectHandler.AttachProjectFile)
			staff.POST("/projects/:id/files/upload-url", projectHandler.RequestUploadURL)

			staff.GET("/completed", projectHandler.ListCompleted)
			staff.GET("/completed/:id", projectHandler.GetCompleted)
			staff.POST("/completed/:id/read", projectHandler.MarkCompletedRead)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			admin.POST("/accounts", accountHandler.Create)
			admin.GET("/accounts", accountHandler.List)
			admin.PATCH("/accounts/:id/disabled", accountHandler.SetDisabled)
			admin.GET("/audit-logs", auditHandler.List)
		}
	}

	return r
}
