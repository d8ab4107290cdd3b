package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/DevOwais28/wepollin/internal/server/handlers"
	"github.com/DevOwais28/wepollin/internal/server/middleware"
	"github.com/DevOwais28/wepollin/internal/service"
	"github.com/DevOwais28/wepollin/internal/ws"
)

// Services bundles what the router needs.
type Services struct {
	Auth     *service.AuthService
	Polls    *service.PollService
	Votes    *service.VoteService
	Presence *service.PresenceService
	Hub      *ws.Hub
}

// NewRouter builds the gin engine with all REST routes and the websocket
// endpoint.
//
// @title        WePollin API
// @version      1.0
// @description  Real-time poll voting service.
// @BasePath     /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewRouter(svc Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authHandler := handlers.NewAuthHandler(svc.Auth)
	pollHandler := handlers.NewPollHandler(svc.Polls, svc.Presence)
	voteHandler := handlers.NewVoteHandler(svc.Votes)

	api := router.Group("/api/v1")

	public := api.Group("/auth")
	{
		public.POST("/register", authHandler.Register)
		public.POST("/login", authHandler.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(svc.Auth))
	{
		protected.POST("/polls/poll", pollHandler.CreatePoll)
		protected.GET("/polls", pollHandler.ListPolls)
		protected.POST("/polls/join-private", pollHandler.JoinPrivate)
		protected.GET("/polls/:pollId", pollHandler.GetPoll)
		protected.PUT("/polls/poll/:pollId", pollHandler.UpdatePoll)
		protected.DELETE("/polls/poll/:pollId", pollHandler.DeletePoll)
		protected.GET("/polls/:pollId/viewers", pollHandler.Viewers)

		protected.POST("/votes/vote/:pollId", voteHandler.CastVote)
		protected.GET("/votes/vote/:pollId", voteHandler.GetVotes)
	}

	// Browsers cannot set headers on the upgrade request, so the websocket
	// route authenticates via query parameter.
	router.GET("/ws", middleware.WSAuth(svc.Auth), ws.ServeWs(svc.Hub))

	return router
}
