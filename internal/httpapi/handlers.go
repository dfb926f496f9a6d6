package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/overlay-relay/internal/catalog"
	"github.com/DoyleJ11/overlay-relay/internal/hub"
	"github.com/DoyleJ11/overlay-relay/internal/selection"
	"github.com/DoyleJ11/overlay-relay/internal/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListGames serves the discovered game folders.
func ListGames(scanner *catalog.Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Games []catalog.Game `json:"games"`
		}{Games: scanner.Games()})
	}
}

// GetManifest serves the selection pools for ?game=<id>, falling back
// per the scanner's default-game rules when the id is absent or
// unknown. An unreadable content root yields empty pools, not an
// error.
func GetManifest(scanner *catalog.Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, scanner.Manifest(r.URL.Query().Get("game")))
	}
}

// Trigger lets automation tooling inject a command into a channel
// without holding a connection. The command is routed exactly as if a
// controller had sent it; channels with no displays drop it silently
// and still get a 200. Spin commands arriving without a payload get a
// selection plan computed here, once, so every display agrees on the
// outcome.
func Trigger(h *hub.Hub, scanner *catalog.Scanner, log *zap.Logger, defaultChannel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		cmd := q.Get("cmd")
		if cmd == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing cmd parameter"})
			return
		}
		channel := q.Get("channel")
		if channel == "" {
			channel = defaultChannel
		}

		// Prefer a JSON body; fall back to the payload query parameter.
		// Malformed JSON means no payload, not an error.
		var payload json.RawMessage
		if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 && json.Valid(body) {
			payload = body
		} else if raw := q.Get("payload"); raw != "" && json.Valid([]byte(raw)) {
			payload = json.RawMessage(raw)
		}

		if payload == nil && (cmd == "slotSpin" || cmd == "spin") {
			m := scanner.Manifest(q.Get("game"))
			plan := selection.NewPlan(m.Legends, m.Weapons)
			if buf, err := json.Marshal(plan); err == nil {
				payload = buf
			}
		}

		h.Inbox() <- hub.Route{
			Role:    types.RoleController,
			Channel: channel,
			Env:     types.Envelope{Type: types.TypeCmd, Cmd: cmd, Payload: payload},
		}
		log.Debug("trigger accepted", zap.String("channel", channel), zap.String("cmd", cmd))

		writeJSON(w, http.StatusOK, struct {
			OK      bool   `json:"ok"`
			Channel string `json:"channel"`
			Cmd     string `json:"cmd"`
		}{OK: true, Channel: channel, Cmd: cmd})
	}
}

// Healthz reports liveness plus registry counts.
func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.View, 1)
		h.Inbox() <- hub.GetView{Reply: reply}
		view := <-reply
		writeJSON(w, http.StatusOK, struct {
			OK          bool `json:"ok"`
			Channels    int  `json:"channels"`
			Connections int  `json:"connections"`
		}{OK: true, Channels: len(view.Channels), Connections: view.Connections})
	}
}
