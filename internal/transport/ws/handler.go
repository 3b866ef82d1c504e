package ws

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
)

// TokenVerifier is the external identity contract: verify a bearer
// token, get back who is calling.
type TokenVerifier interface {
	VerifyToken(token string) (domain.Identity, error)
}

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
// A bad token rejects the upgrade before any connection state exists.
func ServeWS(hub *Hub, verifier TokenVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		ident, err := verifier.VerifyToken(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // Allow any origin (dev mode)
		})
		if err != nil {
			log.Warn().Err(err).Msg("ws: accept error")
			return
		}

		client := NewClient(hub, conn, ident)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
