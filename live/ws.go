package live

import (
	"log"
	"net/http"

	"tablematch/middleware"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// ServeWS upgrades a client onto its session's room. Browsers cannot set
// headers on websocket dials, so the token rides in the query string.
func ServeWS(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sessionID := ps.ByName("sessionid")
		if sessionID == "" {
			http.Error(w, "missing session id", http.StatusBadRequest)
			return
		}

		token := "Bearer " + r.URL.Query().Get("token")
		claims, err := middleware.ValidateJWT(token)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			Send:      make(chan []byte, 64),
			SessionID: sessionID,
			UserID:    claims.UserID,
		}
		if !hub.add(client) {
			conn.Close()
			return
		}

		go writePump(conn, client)
		go readPump(conn, client, hub)
	}
}

func writePump(conn *websocket.Conn, c *Client) {
	defer conn.Close()
	for msg := range c.Send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// readPump only watches for the peer going away; clients talk to the
// gateway over HTTP, the socket is downstream-only.
func readPump(conn *websocket.Conn, c *Client, hub *Hub) {
	defer func() {
		hub.drop(c)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
