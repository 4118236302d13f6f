package routes

import (
	"net/http"
	"time"

	"github.com/bellapacxx/guba-backend/controllers"
	"github.com/bellapacxx/guba-backend/metrics"
	"github.com/bellapacxx/guba-backend/middleware"
	"github.com/bellapacxx/guba-backend/models"
	"github.com/gin-gonic/gin"
)

// Deps are the controllers and middleware the routes are wired to.
type Deps struct {
	Auth      *controllers.AuthController
	Users     *controllers.UserController
	Posts     *controllers.PostController
	Wallet    *controllers.WalletController
	Support   *controllers.SupportController
	WS        *controllers.WSController
	Verifier  middleware.Authenticator
	AuthLimit *middleware.RateLimiter
}

func SetupRoutes(r *gin.Engine, d Deps) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API is running...")
	})

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// WebSocket notifications endpoint
	r.GET("/ws", d.WS.HandleWebSocket)

	api := r.Group("/api")
	authRequired := middleware.JwtAuthMiddleware(d.Verifier)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// ----------------------
	// Auth routes
	// ----------------------
	auth := api.Group("/auth")
	auth.POST("/register", d.AuthLimit.Handler(), d.Auth.Register)
	auth.POST("/login", d.AuthLimit.Handler(), d.Auth.Login)
	auth.POST("/logout", authRequired, d.Auth.Logout)
	auth.GET("/me", authRequired, d.Auth.Me)
	// the admin console manages customers under /api/auth/users
	auth.GET("/users", authRequired, adminOnly, d.Users.ListUsers)
	auth.DELETE("/users/:id", authRequired, adminOnly, d.Users.DeleteUser)

	// ----------------------
	// User routes (admin)
	// ----------------------
	users := api.Group("/users", authRequired, adminOnly)
	users.GET("", d.Users.ListUsers)
	users.POST("", d.Users.CreateUser)
	users.PATCH("/:id/role", d.Users.UpdateRole)
	users.DELETE("/:id", d.Users.DeleteUser)

	// ----------------------
	// Post (draw) routes
	// ----------------------
	posts := api.Group("/posts")
	posts.GET("", d.Posts.GetAllPosts)
	posts.GET("/:id", d.Posts.GetPost)
	posts.POST("", authRequired, adminOnly, d.Posts.CreatePost)
	posts.PUT("/:id", authRequired, adminOnly, d.Posts.UpdatePost)
	posts.DELETE("/:id", authRequired, adminOnly, d.Posts.DeletePost)
	posts.POST("/:id/purchase", authRequired, d.Posts.BuyTicket)

	api.GET("/tickets", authRequired, d.Posts.GetMyTickets)

	// ----------------------
	// Wallet routes
	// ----------------------
	wallet := api.Group("/wallet", authRequired)
	wallet.GET("/balance", d.Wallet.GetBalance)
	wallet.POST("/deposit", d.Wallet.Deposit)
	wallet.POST("/withdraw", d.Wallet.Withdraw)
	wallet.GET("/transactions", d.Wallet.GetTransactionHistory)

	// ----------------------
	// Support routes
	// ----------------------
	support := api.Group("/support", authRequired)
	support.POST("", d.Support.CreateMessage)
	support.GET("/mine", d.Support.ListMine)
	support.GET("", adminOnly, d.Support.ListAll)
	support.POST("/:id/respond", adminOnly, d.Support.Respond)
}
