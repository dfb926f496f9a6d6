package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/overlay-relay/internal/hub"
	"github.com/DoyleJ11/overlay-relay/internal/types"
)

const (
	outboxSize   = 16
	writeTimeout = 3 * time.Second
)

// Handler upgrades the connection and runs the relay protocol: the
// first meaningful message must be a register naming a role and a
// channel, after which every decoded envelope is handed to the hub
// with this connection as origin. Undecodable frames are dropped
// without closing the connection.
func Handler(h *hub.Hub, log *zap.Logger, defaultChannel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Overlays run inside OBS browser sources and controllers are
			// often opened from file://, so origin checks stay open.
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		id := uuid.New()
		clog := log.With(zap.String("conn", id.String()))

		var (
			registered bool
			role       types.Role
			channel    string
		)
		defer func() {
			if registered {
				h.Inbox() <- hub.Unregister{ID: id}
			}
		}()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Abnormal termination; Unregister in the defer cleans up.
				return
			}

			var env types.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				clog.Debug("dropping undecodable frame", zap.Error(err))
				continue
			}

			if env.Type == types.TypeRegister {
				if registered {
					// Reject: the earlier registration stays authoritative.
					writeEnvelope(writeCtx, conn, types.ErrorEnvelope("already registered"))
					continue
				}
				parsed, ok := types.ParseRole(env.Role)
				if !ok {
					writeEnvelope(writeCtx, conn, types.ErrorEnvelope("unknown role"))
					continue
				}
				role = parsed
				channel = env.Channel
				if channel == "" {
					channel = defaultChannel
				}

				outbox := make(chan []byte, outboxSize)
				reply := make(chan error, 1)
				h.Inbox() <- hub.Register{ID: id, Role: role, Channel: channel, Outbox: outbox, Reply: reply}
				if err := <-reply; err != nil {
					writeEnvelope(writeCtx, conn, types.ErrorEnvelope(err.Error()))
					continue
				}
				registered = true

				// Writer goroutine: drains pre-marshaled frames until the
				// hub closes the outbox on unregister.
				go func() {
					for frame := range outbox {
						ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
						_ = conn.Write(ctx, websocket.MessageText, frame)
						cancel()
					}
				}()

				clog.Info("connection registered",
					zap.String("role", string(role)),
					zap.String("channel", channel))
				continue
			}

			if !registered {
				// Traffic before the handshake has no channel to go to.
				continue
			}

			h.Inbox() <- hub.Route{Origin: id, Role: role, Channel: channel, Env: env}
		}
	}
}

func writeEnvelope(ctx context.Context, conn *websocket.Conn, env types.Envelope) {
	frame, err := json.Marshal(env)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, frame)
}
