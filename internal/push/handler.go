package push

import (
	"io"
	"net/http"

	"golang.org/x/net/websocket"

	"homestay/internal/registry"
	"homestay/pkg/logger"
)

// registerFrame is the first message a client must send after connecting.
type registerFrame struct {
	Action string `json:"action"`
	UserID string `json:"user_id"`
}

// Handler upgrades websocket connections and binds them to the
// connection registry for the lifetime of the socket.
type Handler struct {
	registry *registry.Registry
	log      *logger.Logger
}

func NewHandler(reg *registry.Registry, log *logger.Logger) *Handler {
	return &Handler{
		registry: reg,
		log:      log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv := websocket.Server{
		Handler: h.serve,
		// Browsers connect cross-origin during local development;
		// identity comes from the register frame, not the origin.
		Handshake: func(cfg *websocket.Config, req *http.Request) error { return nil },
	}
	srv.ServeHTTP(w, r)
}

func (h *Handler) serve(ws *websocket.Conn) {
	defer ws.Close()

	var reg registerFrame
	if err := websocket.JSON.Receive(ws, &reg); err != nil {
		h.log.Warn("websocket closed before registration", "error", err)
		return
	}
	if reg.Action != "register" || reg.UserID == "" {
		h.log.Warn("websocket registration rejected", "action", reg.Action)
		return
	}

	conn := newConn(ws)
	h.registry.Register(reg.UserID, conn)
	h.log.Info("websocket registered", "user_id", reg.UserID)

	defer func() {
		h.registry.Unregister(conn)
		h.log.Info("websocket disconnected", "user_id", reg.UserID)
	}()

	// Drain incoming frames until the peer closes. Clients only
	// receive on this socket; anything they send is ignored.
	for {
		var discard any
		if err := websocket.JSON.Receive(ws, &discard); err != nil {
			if err != io.EOF {
				h.log.Debug("websocket receive ended", "user_id", reg.UserID, "error", err)
			}
			return
		}
	}
}
