package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Mailer is the outbound mail relay used by the websocket channel.
type Mailer interface {
	SendAs(ctx context.Context, to, subject, body, contentType string) ([]byte, error)
}

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsSendTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The SPA is served from another origin; the relay carries no session.
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsRequest struct {
	Action      string `json:"action"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	ContentType string `json:"contentType"`
}

type wsResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Details string          `json:"details,omitempty"`
}

// serveWS upgrades the connection and serves send-mail commands until the
// client goes away.
func (h *handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("échec de l'upgrade websocket")
		return
	}
	defer conn.Close()

	h.log.WithField("remote", conn.RemoteAddr().String()).Info("client websocket connecté")

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Warn("connexion websocket interrompue")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		resp := h.handleWSRequest(r.Context(), req)

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(resp); err != nil {
			h.log.WithError(err).Warn("échec de l'écriture websocket")
			return
		}
	}
}

func (h *handler) handleWSRequest(ctx context.Context, req wsRequest) wsResponse {
	if req.Action != "send-mail" {
		return wsResponse{Success: false, Error: "Action inconnue.", Details: req.Action}
	}

	ctx, cancel := context.WithTimeout(ctx, wsSendTimeout)
	defer cancel()

	contentType := req.ContentType
	if contentType == "" {
		contentType = "text/html"
	}

	data, err := h.mailer.SendAs(ctx, req.To, req.Subject, req.Message, contentType)
	if err != nil {
		return wsResponse{Success: false, Error: "Échec de l'envoi du mail.", Details: err.Error()}
	}
	if !json.Valid(data) {
		data, _ = json.Marshal(string(data))
	}
	return wsResponse{Success: true, Data: data}
}
