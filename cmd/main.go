package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomoya0245/sa-chat/internal/db"
	"github.com/tomoya0245/sa-chat/internal/handlers"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/middleware"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/server"
	"github.com/tomoya0245/sa-chat/internal/services"
	"github.com/tomoya0245/sa-chat/internal/sse"
	"github.com/tomoya0245/sa-chat/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "8080", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	courseRepo := repos.NewCourseRepo(thePG, log)
	messageRepo := repos.NewMessageRepo(thePG, log)
	callRepo := repos.NewCallRepo(thePG, log)
	lockRepo := repos.NewThreadLockRepo(thePG, log)
	readRepo := repos.NewThreadReadRepo(thePG, log)
	pinRepo := repos.NewThreadPinRepo(thePG, log)
	aliasRepo := repos.NewStudentAliasRepo(thePG, log)
	profileRepo := repos.NewSAProfileRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)
	sseBus, err := services.NewRedisSSEBus(log)
	if err != nil {
		log.Warn("Redis SSE bus unavailable; change feed is instance-local", "error", err)
		sseBus = nil
	}
	if sseBus != nil {
		if err := sseBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
			log.Warn("Could not start SSE bus forwarder", "error", err)
		}
		defer sseBus.Close()
	}

	// Services
	log.Info("Setting up Services from main...")
	notifier := services.NewChangeNotifier(log, sseHub, sseBus)
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService; attachments disabled", "error", err)
	}
	authService := services.NewAuthService(log)
	profileService := services.NewProfileService(log, profileRepo)
	courseService := services.NewCourseService(thePG, log, courseRepo, lockRepo, readRepo, notifier)
	messageService := services.NewMessageService(log, messageRepo, lockRepo, profileRepo, bucketService, notifier)
	callService := services.NewCallService(log, callRepo, notifier)
	lockService := services.NewLockService(log, lockRepo, notifier)
	readService := services.NewReadService(log, readRepo, messageRepo, notifier)
	pinService := services.NewPinService(log, pinRepo, notifier)
	aliasService := services.NewAliasService(log, aliasRepo, notifier)

	// Handlers
	log.Info("Setting up Handlers from main...")
	courseHandler := handlers.NewCourseHandler(log, courseService)
	messageHandler := handlers.NewMessageHandler(log, messageService, readService)
	callHandler := handlers.NewCallHandler(log, callService)
	lockHandler := handlers.NewLockHandler(log, lockService)
	readHandler := handlers.NewReadHandler(log, readService)
	pinHandler := handlers.NewPinHandler(log, pinService)
	aliasHandler := handlers.NewAliasHandler(log, aliasService)
	profileHandler := handlers.NewProfileHandler(log, profileService)
	streamHandler := handlers.NewStreamHandler(log, sseHub)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware: authMiddleware,
		CourseHandler:  courseHandler,
		MessageHandler: messageHandler,
		CallHandler:    callHandler,
		LockHandler:    lockHandler,
		ReadHandler:    readHandler,
		PinHandler:     pinHandler,
		AliasHandler:   aliasHandler,
		ProfileHandler: profileHandler,
		StreamHandler:  streamHandler,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
