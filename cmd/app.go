package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "launchpad/docs"
	"launchpad/pkg/chat"
	"launchpad/pkg/config"
	"launchpad/pkg/db"
	"launchpad/pkg/directory"
	"launchpad/pkg/docstore"
	"launchpad/pkg/groups"
	"launchpad/pkg/logging"
	"launchpad/pkg/objectstore"
	"launchpad/pkg/otp"
	"launchpad/pkg/posts"
	"launchpad/pkg/profiles"
	"launchpad/pkg/sendemail"
	"launchpad/pkg/session"
	"launchpad/pkg/users"
)

// backends are the stores every component shares.
type backends struct {
	store   docstore.Store
	objects objectstore.Store
	close   func()
}

func openBackends(ctx context.Context, cfg config.Config, logger *zap.Logger) (backends, error) {
	b := backends{close: func() {}}

	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory document store; data is lost on exit")
		b.store = docstore.NewMemoryStore()
	default:
		pool, err := db.Connect(ctx, cfg, logger)
		if err != nil {
			return b, err
		}
		b.store = docstore.NewPostgresStore(pool, logger)
		b.close = pool.Close
	}

	switch cfg.ObjectStoreDriver {
	case "memory":
		b.objects = objectstore.NewMemoryStore("")
	default:
		s3, err := objectstore.NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.PresignTTL)
		if err != nil {
			b.close()
			return b, fmt.Errorf("object store: %w", err)
		}
		b.objects = s3
	}
	return b, nil
}

func newEmailService(cfg config.Config, logger *zap.Logger) sendemail.EmailService {
	if cfg.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set; emails are logged instead of sent")
		return sendemail.NewLogService(logger)
	}
	return sendemail.NewSendGridService(cfg.SendGridAPIKey, cfg.SendGridSenderEmail, cfg.SendGridSenderName)
}

// buildRouter wires every component onto one gin engine.
func buildRouter(cfg config.Config, logger *zap.Logger, b backends, email sendemail.EmailService) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens := session.NewTokenStore(b.store)

	profileService := profiles.NewProfileService(profiles.NewProfileRepository(b.store), b.objects, logger)
	directoryService := directory.NewDirectoryService(profileService, logger)
	postService := posts.NewPostService(posts.NewPostRepository(b.store), b.objects, logger)
	groupService := groups.NewGroupService(groups.NewGroupRepository(b.store), logger)
	userService := users.NewUserService(users.NewAccountRepository(b.store), tokens, logger)
	otpService := otp.NewOTPService(otp.NewOTPRepository(b.store), userService, email, logger)
	chatHandler := chat.NewHandler(chat.NewConnectionManager(), chat.NewMessageStore(b.store), logger)

	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(session.Middleware(tokens, logger))

	users.NewUserHandler(userService, logger).RegisterRoutes(router)
	otp.NewOTPHandler(otpService, logger).RegisterRoutes(router)
	profiles.NewProfileHandler(profileService, logger).RegisterRoutes(router)
	directory.NewDirectoryHandler(directoryService, logger).RegisterRoutes(router)
	posts.NewPostHandler(postService, logger).RegisterRoutes(router)
	groups.NewGroupHandler(groupService, logger).RegisterRoutes(router)
	chatHandler.RegisterRoutes(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return router
}
