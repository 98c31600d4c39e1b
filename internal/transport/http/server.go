package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/auth"
	"github.com/vovakirdan/roomchat/internal/chat"
	"github.com/vovakirdan/roomchat/internal/config"
)

// NewServer builds the HTTP server serving the JSON API and the HTML pages.
func NewServer(authService *auth.Service, chatService *chat.Service, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(authService, chatService, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers all routes on a gin engine.
func NewRouter(authService *auth.Service, chatService *chat.Service, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(logger))
	router.SetHTMLTemplate(pageTemplates)

	router.GET("/health", healthHandler)

	api := NewAPIHandlers(authService, chatService, cfg.APIHistoryLimit, logger)
	router.POST("/api/register", api.Register)
	router.POST("/api/login", api.Login)

	authed := router.Group("/api", AuthMiddleware(authService, logger))
	authed.GET("/rooms", api.ListRooms)
	authed.GET("/messages/:room_id", api.Messages)

	pages := NewPageHandlers(authService, chatService, cfg, logger)
	public := router.Group("/", OptionalAuthMiddleware(authService))
	public.GET("/", pages.Index)
	public.GET("/register", pages.RegisterForm)
	public.POST("/register", pages.Register)
	public.GET("/login", pages.LoginForm)
	public.POST("/login", pages.Login)

	member := router.Group("/", PageAuthMiddleware(authService))
	member.GET("/logout", pages.Logout)
	member.GET("/chat", pages.Chat)
	member.GET("/chat/:room_id", pages.Chat)
	member.POST("/send_message", pages.SendMessage)
	member.POST("/create_room", pages.CreateRoom)
	member.POST("/join_room", pages.JoinRoom)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
