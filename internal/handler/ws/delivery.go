package ws

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/streamcue/relay-service/config"
	"github.com/streamcue/relay-service/internal/domain/model"
	"github.com/streamcue/relay-service/internal/domain/registry"
	wsmarshaller "github.com/streamcue/relay-service/internal/handler/marshaller/ws"
	"github.com/streamcue/relay-service/internal/service"
)

const (
	writeWait      = 5 * time.Second
	maxFrameSize   = 4096
	defaultPingGap = 20 * time.Second
)

// WSHandler serves the assistant endpoint: approved messages go out, speaking
// signals come back on the same socket.
type WSHandler struct {
	logger       *slog.Logger
	deliverer    service.Deliverer
	signals      service.SignalApplier
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	version      string
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer, signals service.SignalApplier, cfg *config.Config) *WSHandler {
	ping := cfg.Delivery.PingInterval
	if ping <= 0 {
		ping = defaultPingGap
	}
	return &WSHandler{
		logger:    logger.With("component", "ws_assistant"),
		deliverer: deliverer,
		signals:   signals,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // local assistant only
		},
		pingInterval: ping,
		version:      cfg.Service.Version,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. UPGRADE TO WEBSOCKET
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WS_UPGRADE_FAILED", "err", err)
		return
	}
	defer ws.Close()

	// 2. SUBSCRIBE; the session dies with the socket
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess, err := h.deliverer.Subscribe(ctx, registry.SessionMetadata{
		RemoteIP:  remoteIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logger.Error("WS_SUBSCRIBE_FAILED", "err", err)
		return
	}
	defer h.deliverer.Unsubscribe(sess.GetID())

	l := h.logger.With("session_id", sess.GetID())
	l.Info("WS_OPENED", "remote_ip", sess.Metadata().RemoteIP)

	// 3. HANDSHAKE
	hello, _ := wsmarshaller.MarshallConnected(&model.ConnectedPayload{
		Ok:            true,
		SessionID:     sess.GetID().String(),
		ServerVersion: h.version,
		Speaking:      h.signals.Speaking(),
	})
	if err := h.write(ws, hello); err != nil {
		l.Warn("WS_HANDSHAKE_FAILED", "err", err)
		return
	}

	go h.readPump(ctx, cancel, ws, sess, l)

	// 4. MAIN WS PUMP LOOP
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info("WS_CLOSED", "reason", "client_gone")
			return

		case <-sess.Done():
			if ctx.Err() != nil {
				continue
			}
			// [TERMINATION_SENTINEL] the hub dropped us: say goodbye first
			bye, _ := wsmarshaller.MarshallDisconnected(&model.DisconnectedPayload{
				Reason: "session_closed_by_server",
				Code:   "EVICTED",
			})
			_ = h.write(ws, bye)
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
				time.Now().Add(writeWait))
			l.Info("WS_CLOSED", "reason", "server")
			return

		case msg := <-sess.Recv():
			data, err := wsmarshaller.MarshallApproved(msg)
			if err != nil {
				l.Error("WS_MARSHAL_FAILED", "err", err, "message_id", msg.ID)
				continue
			}
			if err := h.write(ws, data); err != nil {
				l.Warn("WS_SEND_FAILED", "err", err)
				return
			}

		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				l.Warn("WS_PING_FAILED", "err", err)
				return
			}
		}
	}
}

// readPump consumes client frames until the socket fails, then cancels ctx.
func (h *WSHandler) readPump(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, sess registry.Session, l *slog.Logger) {
	defer cancel()

	pongWait := 2 * h.pingInterval
	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		sess.Touch()
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.Warn("WS_READ_FAILED", "err", err)
			}
			return
		}
		sess.Touch()
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		frame, err := wsmarshaller.UnmarshallClientFrame(data)
		if err != nil || frame.Signal == "" {
			l.Debug("WS_FRAME_IGNORED", "size", len(data))
			continue
		}
		if err := h.signals.ApplyName(ctx, frame.Signal); err != nil {
			l.Warn("WS_SIGNAL_REJECTED", "signal", frame.Signal)
		}
	}
}

func (h *WSHandler) write(ws *websocket.Conn, data []byte) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, data)
}

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
