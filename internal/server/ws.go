package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/openduel/engine-go/internal/game"
	"github.com/openduel/engine-go/internal/game/rulerr"
	"github.com/openduel/engine-go/internal/metrics"
	"go.uber.org/zap"
)

const (
	maxMessageSize  = 64 * 1024
	clientSendDepth = 256
)

// WSMessage is the envelope for every gateway frame in both directions.
// Data is type-specific: a Seat list for create_game, a game.Action for
// action frames, a game.GameView for game_state frames.
type WSMessage struct {
	Type     string          `json:"type"`
	GameID   string          `json:"game_id,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

type createGamePayload struct {
	Seats []Seat `json:"seats"`
	Seed  int64  `json:"seed,omitempty"`
	Demo  bool   `json:"demo,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type gameOverPayload struct {
	WinnerID string `json:"winner_id"`
}

// Client is one WebSocket connection with its outbound queue.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	playerID string
	gameID   string
}

// Hub tracks connected clients and routes gateway frames to the game
// manager. One watcher goroutine per hosted game turns engine signals
// into per-viewer game_state broadcasts.
type Hub struct {
	manager    *Manager
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	watched    map[string]bool
	stop       chan struct{}
	stopOnce   sync.Once
	upgrader   websocket.Upgrader
	metrics    *metrics.Metrics
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewHub creates a hub in front of manager. An empty allowedOrigins list
// accepts any origin.
func NewHub(manager *Manager, m *metrics.Metrics, allowedOrigins []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		manager:    manager,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		watched:    make(map[string]bool),
		stop:       make(chan struct{}),
		metrics:    m,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Run processes client registration until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.ClientConnected()
			h.logger.Info("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.metrics.ClientDisconnected()
			h.logger.Info("client disconnected", zap.String("player_id", client.playerID))

		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop terminates Run and drops all clients.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// ServeWS upgrades an HTTP request into a gateway connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, clientSendDepth),
	}

	select {
	case h.register <- client:
	case <-h.stop:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

func (h *Hub) handleMessage(client *Client, msg WSMessage) {
	switch msg.Type {
	case "create_game":
		h.handleCreateGame(client, msg)
	case "join_game":
		h.handleJoinGame(client, msg)
	case "action":
		h.handleAction(client, msg)
	case "state":
		h.handleStateRequest(client, msg)
	default:
		h.sendError(client, "", "unknown message type "+msg.Type)
	}
}

func (h *Hub) handleCreateGame(client *Client, msg WSMessage) {
	var payload createGamePayload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			h.sendError(client, "", "malformed create_game payload: "+err.Error())
			return
		}
	}

	gameID := msg.GameID
	if gameID == "" {
		gameID = "game-" + uuid.NewString()
	}

	var hosted *HostedGame
	if payload.Demo {
		players := make([]string, 0, len(payload.Seats))
		for _, seat := range payload.Seats {
			players = append(players, seat.PlayerID)
		}
		if len(players) == 0 {
			players = []string{"player1", "player2"}
		}
		hosted = h.manager.CreateDemoGame(gameID, players)
	} else {
		var err error
		hosted, err = h.manager.CreateGame(context.Background(), gameID, payload.Seed, payload.Seats)
		if err != nil {
			h.sendError(client, string(rulerr.CodeOf(err)), err.Error())
			return
		}
	}

	h.seatClient(client, hosted.ID, msg.PlayerID)
	h.ensureWatcher(hosted)

	if msg.PlayerID != "" && hosted.HasSeat(msg.PlayerID) {
		if err := hosted.Join(msg.PlayerID); err != nil {
			h.sendError(client, "", err.Error())
			return
		}
	}

	h.reply(client, "game_created", hosted.ID, map[string]any{
		"game_id": hosted.ID,
		"status":  hosted.Status().String(),
		"players": hosted.Players(),
	})
	h.reply(client, "game_state", hosted.ID, hosted.View(client.playerID))
}

func (h *Hub) handleJoinGame(client *Client, msg WSMessage) {
	hosted, ok := h.manager.Game(msg.GameID)
	if !ok {
		h.sendError(client, "", "game "+msg.GameID+" not found")
		return
	}

	if msg.PlayerID != "" && hosted.HasSeat(msg.PlayerID) {
		if err := hosted.Join(msg.PlayerID); err != nil {
			h.sendError(client, "", err.Error())
			return
		}
	}

	h.seatClient(client, hosted.ID, msg.PlayerID)
	h.ensureWatcher(hosted)
	h.broadcastGameState(hosted)
}

func (h *Hub) handleAction(client *Client, msg WSMessage) {
	gameID := msg.GameID
	if gameID == "" {
		gameID = client.gameID
	}
	hosted, ok := h.manager.Game(gameID)
	if !ok {
		h.sendError(client, "", "join a game before sending actions")
		return
	}

	playerID := msg.PlayerID
	if playerID == "" {
		playerID = client.playerID
	}

	var action game.Action
	if err := json.Unmarshal(msg.Data, &action); err != nil {
		h.sendError(client, "", "malformed action: "+err.Error())
		return
	}

	if _, err := hosted.Submit(playerID, action); err != nil {
		h.sendError(client, string(rulerr.CodeOf(err)), err.Error())
	}
	// The game watcher broadcasts the committed state.
}

func (h *Hub) handleStateRequest(client *Client, msg WSMessage) {
	gameID := msg.GameID
	if gameID == "" {
		gameID = client.gameID
	}
	hosted, ok := h.manager.Game(gameID)
	if !ok {
		h.sendError(client, "", "game "+gameID+" not found")
		return
	}
	viewerID := msg.PlayerID
	if viewerID == "" {
		viewerID = client.playerID
	}
	h.reply(client, "game_state", hosted.ID, hosted.View(viewerID))
}

// seatClient records which game and player a connection speaks for.
func (h *Hub) seatClient(client *Client, gameID, playerID string) {
	h.mu.Lock()
	client.gameID = gameID
	if playerID != "" {
		client.playerID = playerID
	}
	h.mu.Unlock()
}

// ensureWatcher starts the signal watcher for a game exactly once.
func (h *Hub) ensureWatcher(g *HostedGame) {
	h.mu.Lock()
	if h.watched[g.ID] {
		h.mu.Unlock()
		return
	}
	h.watched[g.ID] = true
	h.mu.Unlock()

	go h.watchGame(g)
}

// watchGame forwards engine signals to the game's clients until the
// game closes its subscriber channels.
func (h *Hub) watchGame(g *HostedGame) {
	ch := g.Subscribe()
	for sig := range ch {
		h.broadcastGameState(g)
		if sig.Kind == game.SignalGameOver {
			h.broadcastToGame(g.ID, "game_over", gameOverPayload{WinnerID: sig.WinnerID})
		}
	}

	h.mu.Lock()
	delete(h.watched, g.ID)
	h.mu.Unlock()
}

// broadcastGameState sends each connected client of the game its own
// view, so hand visibility stays per viewer.
func (h *Hub) broadcastGameState(g *HostedGame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.gameID != g.ID {
			continue
		}
		frame, err := encodeFrame("game_state", g.ID, g.View(client.playerID))
		if err != nil {
			continue
		}
		select {
		case client.send <- frame:
		default:
		}
	}
}

func (h *Hub) broadcastToGame(gameID, msgType string, data any) {
	frame, err := encodeFrame(msgType, gameID, data)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.gameID != gameID {
			continue
		}
		select {
		case client.send <- frame:
		default:
		}
	}
}

func (h *Hub) reply(client *Client, msgType, gameID string, data any) {
	frame, err := encodeFrame(msgType, gameID, data)
	if err != nil {
		h.logger.Error("failed to encode frame", zap.String("type", msgType), zap.Error(err))
		return
	}
	select {
	case client.send <- frame:
	default:
	}
}

func (h *Hub) sendError(client *Client, code, message string) {
	h.reply(client, "error", client.gameID, errorPayload{Code: code, Message: message})
}

func encodeFrame(msgType, gameID string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{Type: msgType, GameID: gameID, Data: payload})
}

func (c *Client) readPump(hub *Hub) {
	defer func() {
		select {
		case hub.unregister <- c:
		case <-hub.stop:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			hub.sendError(c, "", "malformed frame: "+err.Error())
			continue
		}

		hub.handleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
