package controllers

import (
	"log"
	"net/http"
	"time"

	"nigran/internal/middleware"
	"nigran/internal/models"
	"nigran/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSController upgrades viewer connections and pumps messages between them
// and the broadcast hub.
type WSController struct {
	hub *services.Hub
}

func NewWSController(hub *services.Hub) *WSController {
	return &WSController{hub: hub}
}

// HandleWebSocket handles incoming WebSocket connections
func (wc *WSController) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		middleware.GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "missing token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := services.ValidateToken(token)
	if err != nil {
		middleware.GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	middleware.GlobalSecurityLogger.LogSessionConnected(c.ClientIP(), claims.ViewerName)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	// Reconnects from the same viewer at the same address map to the same
	// session ID, so a retained baseline can serve them a cheap delta.
	sessionID := c.ClientIP() + "-" + claims.ViewerName
	session := services.NewSession(sessionID, ws)
	wc.hub.Register(session)

	go wc.readPump(session)
	go wc.writePump(session)
}

// readPump reads messages from the viewing session
func (wc *WSController) readPump(session *services.Session) {
	defer func() {
		wc.hub.Unregister(session)
		session.Conn.Close()
	}()

	session.Conn.SetReadDeadline(time.Now().Add(pongWait))
	session.Conn.SetPongHandler(func(string) error {
		session.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg models.WebSocketMessage
		if err := session.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] read error from %s: %v", session.ID, err)
			}
			return
		}
		session.Conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case models.MsgRequestStats:
			wc.hub.RequestStats(session.ID, msg.Full)

		case models.MsgVisibility:
			session.SetVisible(msg.Visible)

		case models.MsgPing:
			select {
			case session.Send <- models.WebSocketMessage{Type: models.MsgPong}:
			default:
			}

		case models.MsgPong:
			// Handled by the pong handler above.

		default:
			log.Printf("[WS] unknown message type from %s: %s", session.ID, msg.Type)
		}
	}
}

// writePump writes hub messages to the viewing session. Each update is
// written whole or not at all.
func (wc *WSController) writePump(session *services.Session) {
	pinger := time.NewTicker(pingInterval)
	defer func() {
		pinger.Stop()
		session.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-session.Send:
			if !ok {
				session.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			session.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := session.Conn.WriteJSON(msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[WS] write error to %s: %v", session.ID, err)
				}
				return
			}

		case <-pinger.C:
			session.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := session.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
