package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tradefan-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocket streams dispatched signals and position changes to the client.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("api: ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	signals, unsubSig := s.Bus.Subscribe(events.EventSignalAccepted, 100)
	defer unsubSig()
	opened, unsubOpen := s.Bus.Subscribe(events.EventPositionOpened, 100)
	defer unsubOpen()
	closed, unsubClose := s.Bus.Subscribe(events.EventPositionClosed, 100)
	defer unsubClose()

	for {
		var payload any
		var topic string
		select {
		case msg, ok := <-signals:
			if !ok {
				return
			}
			topic, payload = "signal", msg
		case msg, ok := <-opened:
			if !ok {
				return
			}
			topic, payload = "position_opened", msg
		case msg, ok := <-closed:
			if !ok {
				return
			}
			topic, payload = "position_closed", msg
		}

		if err := conn.WriteJSON(gin.H{"topic": topic, "data": payload}); err != nil {
			log.Printf("api: ws write error: %v", err)
			return
		}
	}
}
