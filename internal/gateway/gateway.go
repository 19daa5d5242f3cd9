package gateway

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"whist-lite/internal/auth"
	"whist-lite/internal/codec"
	"whist-lite/internal/event"
	"whist-lite/internal/room"
	"whist-lite/internal/service"
)

const (
	readLimit     = 65536
	pongWait      = 60 * time.Second
	pingPeriod    = 30 * time.Second
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict origins before exposing publicly
	},
}

// Connection is one WebSocket client. A connection is anonymous until its
// first auth frame binds it to a player identity.
type Connection struct {
	id       uint64
	playerID string // guarded by gateway mu
	roomCode string // guarded by gateway mu

	conn    *websocket.Conn
	send    chan []byte
	gateway *Gateway
	log     zerolog.Logger
}

// Gateway owns WebSocket connections and fans domain events out to the
// members of the room they concern.
type Gateway struct {
	mu          sync.RWMutex
	connections map[uint64]*Connection
	byPlayer    map[string]*Connection
	nextConnID  uint64

	svc  *service.Service
	auth auth.Service
	stop chan struct{}
	log  zerolog.Logger
}

func New(svc *service.Service, authSvc auth.Service, log zerolog.Logger) *Gateway {
	return &Gateway{
		connections: make(map[uint64]*Connection),
		byPlayer:    make(map[string]*Connection),
		svc:         svc,
		auth:        authSvc,
		stop:        make(chan struct{}),
		log:         log.With().Str("component", "gateway").Logger(),
	}
}

// Run subscribes to the domain event streams and fans them out until
// Close is called.
func (g *Gateway) Run() {
	events, cancel := g.svc.RoomEvents().Subscribe()
	defer cancel()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			g.fanOut(ev)
		case <-g.stop:
			return
		}
	}
}

// Close stops the fan-out loop and closes every connection.
func (g *Gateway) Close() {
	close(g.stop)
	g.mu.Lock()
	conns := make([]*Connection, 0, len(g.connections))
	for _, c := range g.connections {
		conns = append(conns, c)
	}
	g.mu.Unlock()
	for _, c := range conns {
		c.conn.Close()
	}
}

// HandleWebSocket upgrades the request and starts the connection pumps.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("upgrade failed")
		return
	}

	id := atomic.AddUint64(&g.nextConnID, 1)
	c := &Connection{
		id:      id,
		conn:    ws,
		send:    make(chan []byte, sendQueueSize),
		gateway: g,
		log:     g.log.With().Uint64("conn", id).Logger(),
	}
	g.mu.Lock()
	g.connections[id] = c
	total := len(g.connections)
	g.mu.Unlock()

	c.log.Info().Int("total", total).Msg("client connected")
	go c.readPump()
	go c.writePump()
}

func (c *Connection) readPump() {
	defer func() {
		c.gateway.dropConnection(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("read error")
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	env, err := codec.Decode(data)
	if err != nil {
		c.sendError("", "badFrame", "invalid message format")
		return
	}

	if env.Type == codec.ClientPing {
		c.enqueue(codec.ServerEnvelope{Type: codec.ServerPong, RequestID: env.RequestID})
		return
	}
	if env.Type == codec.ClientAuth {
		c.handleAuth(env)
		return
	}

	playerID := c.currentPlayerID()
	if playerID == "" {
		c.sendError(env.RequestID, "unauthenticated", "authenticate first")
		return
	}

	switch env.Type {
	case codec.ClientCreateRoom:
		c.handleCreateRoom(env, playerID)
	case codec.ClientJoinRoom:
		c.handleJoinRoom(env, playerID)
	case codec.ClientLeaveRoom:
		c.handleLeaveRoom(env, playerID)
	case codec.ClientSetReady:
		c.respond(env, c.gateway.svc.SetReady(playerID, env.RoomCode, env.Ready))
	case codec.ClientStartGame:
		c.respond(env, c.gateway.svc.StartGame(playerID, env.RoomCode))
	case codec.ClientAction:
		c.handleAction(env, playerID)
	case codec.ClientGetState:
		c.handleGetState(env, playerID)
	default:
		c.sendError(env.RequestID, "badFrame", "unknown message type: "+env.Type)
	}
}

func (c *Connection) handleAuth(env codec.ClientEnvelope) {
	displayName := env.DisplayName
	if env.Token != "" && c.gateway.auth != nil {
		sess, ok := c.gateway.auth.ResolveSession(env.Token)
		if !ok {
			c.sendError(env.RequestID, "invalidSession", "session token rejected")
			return
		}
		if sess.DisplayName != "" {
			displayName = sess.DisplayName
		}
	}
	p, reclaimed := c.gateway.svc.Authenticate(env.PlayerID, displayName)

	c.gateway.mu.Lock()
	// An identity moving to a new socket evicts the stale one.
	if prev, ok := c.gateway.byPlayer[p.ID]; ok && prev != c {
		prev.playerID = ""
		go prev.conn.Close()
	}
	c.playerID = p.ID
	c.roomCode = p.CurrentRoomCode
	c.gateway.byPlayer[p.ID] = c
	c.gateway.mu.Unlock()

	c.log.Info().Str("player", p.ID).Bool("reclaimed", reclaimed).Msg("authenticated")
	out := codec.ServerEnvelope{
		Type:      codec.ServerAuthOK,
		RequestID: env.RequestID,
		PlayerID:  p.ID,
	}
	if p.CurrentRoomCode != "" {
		if snap, err := c.gateway.svc.RoomSnapshot(p.CurrentRoomCode); err == nil {
			view := codec.BuildRoomView(snap, p.ID)
			out.Room = &view
		}
	}
	c.enqueue(out)
}

func (c *Connection) handleCreateRoom(env codec.ClientEnvelope, playerID string) {
	var settings room.Settings
	if env.Settings != nil {
		settings = *env.Settings
	}
	snap, err := c.gateway.svc.CreateRoom(playerID, settings)
	if err != nil {
		c.sendDomainError(env.RequestID, err)
		return
	}
	c.setRoom(snap.Code)
	view := codec.BuildRoomView(snap, playerID)
	c.enqueue(codec.ServerEnvelope{Type: codec.ServerRoomState, RequestID: env.RequestID, Room: &view})
}

func (c *Connection) handleJoinRoom(env codec.ClientEnvelope, playerID string) {
	snap, err := c.gateway.svc.JoinRoom(playerID, env.RoomCode)
	if err != nil {
		c.sendDomainError(env.RequestID, err)
		return
	}
	c.setRoom(snap.Code)
	view := codec.BuildRoomView(snap, playerID)
	c.enqueue(codec.ServerEnvelope{Type: codec.ServerRoomState, RequestID: env.RequestID, Room: &view})
}

func (c *Connection) handleLeaveRoom(env codec.ClientEnvelope, playerID string) {
	err := c.gateway.svc.LeaveRoom(playerID, env.RoomCode)
	if err == nil {
		c.setRoom("")
	}
	c.respond(env, err)
}

func (c *Connection) handleAction(env codec.ClientEnvelope, playerID string) {
	if env.Action == nil {
		c.sendError(env.RequestID, "badFrame", "action frame without action body")
		return
	}
	c.respond(env, c.gateway.svc.SubmitAction(playerID, env.RoomCode, *env.Action))
}

func (c *Connection) handleGetState(env codec.ClientEnvelope, playerID string) {
	snap, err := c.gateway.svc.RoomSnapshot(env.RoomCode)
	if err != nil {
		c.sendDomainError(env.RequestID, err)
		return
	}
	view := codec.BuildRoomView(snap, playerID)
	c.enqueue(codec.ServerEnvelope{Type: codec.ServerRoomState, RequestID: env.RequestID, Room: &view})
}

// respond acks a request with either an error frame or the viewer's fresh
// room state.
func (c *Connection) respond(env codec.ClientEnvelope, err error) {
	if err != nil {
		c.sendDomainError(env.RequestID, err)
		return
	}
	playerID := c.currentPlayerID()
	if snap, snapErr := c.gateway.svc.RoomSnapshot(env.RoomCode); snapErr == nil {
		view := codec.BuildRoomView(snap, playerID)
		c.enqueue(codec.ServerEnvelope{Type: codec.ServerRoomState, RequestID: env.RequestID, Room: &view})
		return
	}
	c.enqueue(codec.ServerEnvelope{Type: codec.ServerRoomState, RequestID: env.RequestID})
}

func (c *Connection) currentPlayerID() string {
	c.gateway.mu.RLock()
	defer c.gateway.mu.RUnlock()
	return c.playerID
}

func (c *Connection) setRoom(code string) {
	c.gateway.mu.Lock()
	c.roomCode = code
	c.gateway.mu.Unlock()
}

func (c *Connection) sendDomainError(requestID string, err error) {
	c.sendError(requestID, codec.ErrorCode(err), err.Error())
}

func (c *Connection) sendError(requestID, code, msg string) {
	c.enqueue(codec.ServerEnvelope{
		Type:      codec.ServerError,
		RequestID: requestID,
		Error:     &codec.ErrorBody{Code: code, Message: msg},
	})
}

func (c *Connection) enqueue(env codec.ServerEnvelope) {
	data, err := codec.Encode(env)
	if err != nil {
		c.log.Error().Err(err).Msg("encode failed")
		return
	}
	select {
	case c.send <- data:
	default:
		// Slow consumer: drop rather than stall the room.
	}
}

func (g *Gateway) dropConnection(c *Connection) {
	g.mu.Lock()
	delete(g.connections, c.id)
	playerID := c.playerID
	if playerID != "" && g.byPlayer[playerID] == c {
		delete(g.byPlayer, playerID)
	} else {
		playerID = "" // identity already moved to another socket
	}
	total := len(g.connections)
	g.mu.Unlock()

	c.log.Info().Int("total", total).Msg("client disconnected")
	if playerID != "" {
		g.svc.Disconnect(playerID)
	}
}

// fanOut delivers one domain event to every connection in the room it
// concerns, shaping the attached snapshot per viewer.
func (g *Gateway) fanOut(ev event.Event) {
	if ev.RoomCode == "" {
		return
	}

	g.mu.RLock()
	targets := make([]*Connection, 0, 8)
	for _, c := range g.connections {
		if c.playerID != "" && c.roomCode == ev.RoomCode {
			targets = append(targets, c)
		}
	}
	g.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	body := codec.EventBody{
		Name:     string(ev.Type),
		RoomCode: ev.RoomCode,
		PlayerID: ev.PlayerID,
	}
	var snap *room.Snapshot
	switch p := ev.Payload.(type) {
	case room.Snapshot:
		snap = &p
	case room.ActionPayload:
		snap = &p.Snapshot
	case room.EndPayload:
		snap = &p.Snapshot
		body.Results = codec.BuildResultViews(p.Results)
	case room.PausePayload:
		body.Reason = p.Reason
	}

	for _, c := range targets {
		out := codec.ServerEnvelope{
			Type:     codec.ServerEvent,
			ServerTs: ev.At.UnixMilli(),
			Event:    &body,
		}
		if snap != nil {
			view := codec.BuildRoomView(*snap, c.playerID)
			out.Room = &view
		}
		c.enqueue(out)
	}
}
