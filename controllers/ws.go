package controllers

import (
	"net/http"

	"github.com/bellapacxx/guba-backend/middleware"
	"github.com/bellapacxx/guba-backend/services"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSController struct {
	auth     middleware.Authenticator
	hub      *services.Hub
	upgrader websocket.Upgrader
}

// NewWSController accepts upgrades from allowedOrigins only. Requests
// without an Origin header (native mobile clients) are allowed.
func NewWSController(auth middleware.Authenticator, hub *services.Hub, allowedOrigins []string) *WSController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSController{
		auth: auth,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// HandleWebSocket authenticates with ?token= (browsers cannot set headers
// on websocket requests) or a bearer header, then joins the hub
func (wc *WSController) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, middleware.ErrorBody("Missing token"))
		return
	}
	claims, err := wc.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, middleware.ErrorBody("Not authorized or invalid token"))
		return
	}

	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[WS] upgrade error: %v", err)
		return
	}
	wc.hub.Register(claims.UserID(), conn)
	logger.Debugf("[WS] new client: user=%s", claims.UserID())
}
