package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/Alexzafra13/echo-sub000/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const authDeadline = 5 * time.Second

// Gateway authenticates every real-time connection before any command
// handler becomes reachable. The bearer credential may arrive as a
// query parameter, an Authorization header, or a first-frame auth
// message; a missing, malformed or expired credential rejects the
// connection outright.
type Gateway struct {
	hub      *Hub
	secret   string
	upgrader websocket.Upgrader
}

// NewGateway creates the gateway verifying credentials against secret.
func NewGateway(hub *Hub, secret string) *Gateway {
	return &Gateway{
		hub:    hub,
		secret: secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handle is the gin handler for the websocket endpoint.
func (g *Gateway) Handle(c *gin.Context) {
	if token := bearerFromRequest(c.Request); token != "" {
		identity, err := VerifyToken(g.secret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
			return
		}
		ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Debug("websocket upgrade failed: %v", err)
			return
		}
		g.hub.HandleConnection(ws, identity)
		return
	}

	// No credential on the request itself: upgrade and require an auth
	// frame before anything else. Until it verifies, no command is
	// dispatched.
	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed: %v", err)
		return
	}

	identity, ok := g.handshakeAuth(ws)
	if !ok {
		ws.Close()
		return
	}
	g.hub.HandleConnection(ws, identity)
}

func (g *Gateway) handshakeAuth(ws *websocket.Conn) (*Identity, bool) {
	ws.SetReadDeadline(time.Now().Add(authDeadline))
	defer ws.SetReadDeadline(time.Time{})

	var msg ClientMessage
	if err := ws.ReadJSON(&msg); err != nil {
		return nil, false
	}
	if msg.Type != MsgAuth {
		ws.WriteJSON(exceptionMessage("authentication required"))
		return nil, false
	}
	identity, err := VerifyToken(g.secret, msg.Token)
	if err != nil {
		ws.WriteJSON(exceptionMessage("invalid credential"))
		return nil, false
	}
	return identity, true
}

func bearerFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
