package hub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/overlay-relay/internal/types"
)

var (
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrUnknownRole       = errors.New("unknown role")
)

type HubMsg interface{ isHubMsg() }

// Register adds a connection to a channel under one role. The channel
// entry is created on demand. A connection may register at most once;
// a duplicate attempt replies ErrAlreadyRegistered and the earlier
// registration stays authoritative.
type Register struct {
	ID      uuid.UUID
	Role    types.Role
	Channel string
	Outbox  chan []byte
	Reply   chan error
}

// Unregister removes a connection from whichever role-set holds it.
// Unknown IDs are a no-op, so unregistering twice is safe. When both
// role-sets of the channel become empty, the channel entry is deleted.
type Unregister struct {
	ID uuid.UUID
}

// Route fans a message out within one channel according to the origin
// role: state/cmd from a controller go to displays, event and
// request-state from a display go to controllers. Everything else is
// dropped. Origin may be uuid.Nil for synthesized traffic (the trigger
// gateway), which routes as a controller without a connection.
type Route struct {
	Origin  uuid.UUID
	Role    types.Role
	Channel string
	Env     types.Envelope
}

// GetView replies with member counts, for tests and the health endpoint.
type GetView struct {
	Reply chan View
}

type ShutdownHub struct{}

func (Register) isHubMsg()    {}
func (Unregister) isHubMsg()  {}
func (Route) isHubMsg()       {}
func (GetView) isHubMsg()     {}
func (ShutdownHub) isHubMsg() {}

// View is a point-in-time snapshot of the registry.
type View struct {
	Connections int
	Channels    map[string]ChannelView
}

type ChannelView struct {
	Controllers int
	Displays    int
}

// channel holds the two disjoint role-sets of live connections. The
// hub loop is the single writer, so no locking here.
type channel struct {
	controllers map[uuid.UUID]chan []byte
	displays    map[uuid.UUID]chan []byte
}

func (ch *channel) set(role types.Role) map[uuid.UUID]chan []byte {
	if role == types.RoleController {
		return ch.controllers
	}
	return ch.displays
}

func (ch *channel) empty() bool {
	return len(ch.controllers) == 0 && len(ch.displays) == 0
}

type member struct {
	role    types.Role
	channel string
	outbox  chan []byte
}

// Hub is the channel registry: it tracks which connections hold which
// role on which channel and routes messages between them. All state is
// owned by a single goroutine fed through the inbox, so broadcasts see
// a consistent snapshot and membership changes are mutually exclusive.
// Delivery is best effort: a full outbox loses the message, never
// stalls the loop.
type Hub struct {
	inbox    chan HubMsg
	channels map[string]*channel
	members  map[uuid.UUID]member
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		channels: make(map[string]*channel),
		members:  make(map[uuid.UUID]member),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				msg.Reply <- h.register(msg)

			case Unregister:
				h.unregister(msg.ID)

			case Route:
				h.route(msg)

			case GetView:
				msg.Reply <- h.view()

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) register(msg Register) error {
	if _, ok := h.members[msg.ID]; ok {
		return ErrAlreadyRegistered
	}
	if msg.Role != types.RoleController && msg.Role != types.RoleDisplay {
		return ErrUnknownRole
	}

	ch, ok := h.channels[msg.Channel]
	if !ok {
		ch = &channel{
			controllers: make(map[uuid.UUID]chan []byte),
			displays:    make(map[uuid.UUID]chan []byte),
		}
		h.channels[msg.Channel] = ch
	}
	ch.set(msg.Role)[msg.ID] = msg.Outbox
	h.members[msg.ID] = member{role: msg.Role, channel: msg.Channel, outbox: msg.Outbox}

	h.log.Debug("registered",
		zap.String("conn", msg.ID.String()),
		zap.String("role", string(msg.Role)),
		zap.String("channel", msg.Channel))
	return nil
}

func (h *Hub) unregister(id uuid.UUID) {
	mem, ok := h.members[id]
	if !ok {
		return
	}
	delete(h.members, id)
	close(mem.outbox) // tell the writer no more frames are coming

	ch, ok := h.channels[mem.channel]
	if !ok {
		return
	}
	delete(ch.set(mem.role), id)
	if ch.empty() {
		delete(h.channels, mem.channel)
	}

	h.log.Debug("unregistered",
		zap.String("conn", id.String()),
		zap.String("channel", mem.channel))
}

func (h *Hub) route(msg Route) {
	ch, ok := h.channels[msg.Channel]
	if !ok {
		// Nobody connected; dropping is not an error.
		return
	}

	var targets map[uuid.UUID]chan []byte
	switch msg.Env.Type {
	case types.TypeState, types.TypeCmd:
		if msg.Role != types.RoleController {
			return
		}
		targets = ch.displays
	case types.TypeEvent, types.TypeRequestState:
		if msg.Role != types.RoleDisplay {
			return
		}
		targets = ch.controllers
	default:
		// Unknown kinds are ignored, never fatal to the connection.
		return
	}

	env := msg.Env
	env.Channel = msg.Channel
	env.Role = ""
	frame, err := json.Marshal(env)
	if err != nil {
		h.log.Warn("marshal outbound frame", zap.Error(err))
		return
	}

	for id, out := range targets {
		if id == msg.Origin {
			continue
		}
		select {
		case out <- frame:
		default:
			// Slow or closed peer loses this frame; the loop moves on.
			h.log.Debug("dropped frame for slow peer", zap.String("conn", id.String()))
		}
	}
}

func (h *Hub) view() View {
	v := View{
		Connections: len(h.members),
		Channels:    make(map[string]ChannelView, len(h.channels)),
	}
	for name, ch := range h.channels {
		v.Channels[name] = ChannelView{
			Controllers: len(ch.controllers),
			Displays:    len(ch.displays),
		}
	}
	return v
}

func (h *Hub) shutdown() {
	for id, mem := range h.members {
		close(mem.outbox)
		delete(h.members, id)
	}
	clear(h.channels)
	h.cancel()
}
