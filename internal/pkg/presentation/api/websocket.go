package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/diwise/gas-monitor/internal/pkg/application/subscribers"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// liveUpdatesHandler upgrades the request and streams every broadcast frame to the peer
// until either side goes away or the registry evicts the subscriber.
func liveUpdatesHandler(log zerolog.Logger, registry *subscribers.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		sub := registry.Register()
		clientLog := log.With().Str("remote", conn.RemoteAddr().String()).Logger()
		clientLog.Debug().Int("subscribers", registry.Count()).Msg("client connected")

		go writePump(clientLog, conn, sub)
		go readPump(clientLog, conn, registry, sub)
	}
}

// readPump discards anything the peer sends and keeps the read deadline alive through
// pongs. It is the only place a client disconnect is turned into an unregister.
func readPump(log zerolog.Logger, conn *websocket.Conn, registry *subscribers.Registry, sub *subscribers.Subscriber) {
	defer func() {
		registry.Unregister(sub)
		conn.Close()
		log.Debug().Bool("evicted", sub.Evicted()).Msg("client disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
	}
}

// writePump owns all writes to conn. Each frame is sent as its own text message.
func writePump(log zerolog.Logger, conn *websocket.Conn, sub *subscribers.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.Outbound():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				reason := ""
				if sub.Evicted() {
					reason = "too slow"
				}
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, reason))
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		}
	}
}
