package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tomoya0245/sa-chat/internal/handlers"
	"github.com/tomoya0245/sa-chat/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	CourseHandler  *handlers.CourseHandler
	MessageHandler *handlers.MessageHandler
	CallHandler    *handlers.CallHandler
	LockHandler    *handlers.LockHandler
	ReadHandler    *handlers.ReadHandler
	PinHandler     *handlers.PinHandler
	AliasHandler   *handlers.AliasHandler
	ProfileHandler *handlers.ProfileHandler
	StreamHandler  *handlers.StreamHandler
	AllowOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Profile
	api.GET("/profile", cfg.ProfileHandler.GetProfile)
	api.PUT("/profile", cfg.ProfileHandler.UpdateProfile)

	// Courses
	api.POST("/courses", cfg.CourseHandler.CreateCourse)
	api.GET("/courses", cfg.CourseHandler.ListCourses)
	api.GET("/courses/:code", cfg.CourseHandler.GetCourse)
	api.DELETE("/courses/:code", cfg.CourseHandler.DeleteCourse)

	// Change feed + identity
	api.GET("/courses/:code/stream", cfg.StreamHandler.CourseStream)
	api.GET("/courses/:code/me", cfg.StreamHandler.WhoAmI)
	api.GET("/courses/:code/me/thread", cfg.MessageHandler.GetOwnThread)

	// Messages
	api.POST("/courses/:code/messages", cfg.MessageHandler.SendAsStudent)
	api.GET("/courses/:code/messages", cfg.MessageHandler.ListCourseMessages)
	api.GET("/courses/:code/threads/:token/messages", cfg.MessageHandler.ListThreadMessages)
	api.POST("/courses/:code/threads/:token/messages", cfg.MessageHandler.SendAsSA)

	// Calls
	api.POST("/courses/:code/calls", cfg.CallHandler.CreateCall)
	api.GET("/courses/:code/calls", cfg.CallHandler.ListCallGroups)
	api.POST("/courses/:code/threads/:token/calls/handle", cfg.CallHandler.MarkHandled)

	// Locks
	api.POST("/courses/:code/threads/:token/lock", cfg.LockHandler.ClaimLock)
	api.DELETE("/courses/:code/threads/:token/lock", cfg.LockHandler.ReleaseLock)
	api.GET("/courses/:code/locks", cfg.LockHandler.ListLocks)

	// Read cursors
	api.POST("/courses/:code/threads/:token/read", cfg.ReadHandler.MarkRead)
	api.GET("/courses/:code/threads/:token/unread", cfg.ReadHandler.UnreadCount)
	api.GET("/courses/:code/reads", cfg.ReadHandler.ListCursors)

	// Pins
	api.POST("/courses/:code/threads/:token/pin", cfg.PinHandler.TogglePin)
	api.GET("/courses/:code/pins", cfg.PinHandler.ListPins)

	// Aliases
	api.POST("/courses/:code/aliases/ensure", cfg.AliasHandler.EnsureAliases)
	api.GET("/courses/:code/aliases", cfg.AliasHandler.ListAliases)

	return router
}
