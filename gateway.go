// Fakefinder connection gateway
//
// Every websocket connection is one team. The gateway assigns the team an
// ephemeral id, decodes inbound command frames and hands them to the room
// registry; the game sessions answer through Gateway.Send, which queues the
// event on the matching connection's write pump.
//
// Features:
// - Single websocket endpoint at {prefix}/ws, rooms addressed by code in the frames
// - Per-connection UUID team ids, never reused
// - Failed commands answered with an error event to the sender only
// - Slow readers are disconnected instead of stalling their room
// - Disconnecting leaves the current room, which may tear it down

package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/yanggeonha/fakefinder/game"
)

const (
	sendBuffer   = 64
	maxFrameSize = 8 << 10
)

// Inbound command types.
const (
	cmdCreateRoom   = "createRoom"
	cmdJoinRoom     = "joinRoom"
	cmdLeaveRoom    = "leaveRoom"
	cmdStartGame    = "startGame"
	cmdSubmitSecret = "submitSecret"
	cmdSubmitGuess  = "submitGuess"
	cmdAdvanceRound = "advanceRound"
	cmdAdvanceStage = "advanceStage"
	cmdResetGame    = "resetGame"
)

// Messages coming from clients
type ClientMessage struct {
	Type string          `json:"type"`
	Name string          `json:"name,omitempty"` // createRoom / joinRoom
	Code string          `json:"code,omitempty"` // joinRoom
	Bill json.RawMessage `json:"bill,omitempty"` // submitSecret / submitGuess
}

// ConnectedMessage is sent immediately on connect so the client knows its own team id.
type ConnectedMessage struct {
	Type string `json:"type"` // "connected"
	ID   string `json:"id"`
}

type Client struct {
	conn      *websocket.Conn
	send      chan any
	id        string
	room      string // owned by the read pump
	closeOnce sync.Once
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

// Gateway maps team ids to live connections and routes commands to rooms.
type Gateway struct {
	cfg   *Config
	rooms *game.Registry

	mu      sync.RWMutex
	clients map[string]*Client
}

func newGateway(cfg *Config) *Gateway {
	g := &Gateway{
		cfg:     cfg,
		clients: make(map[string]*Client),
	}
	g.rooms = game.NewRegistry(cfg.gameOptions(), g)

	return g
}

// Send implements game.Outbox. It is called with a session lock held and
// never blocks.
func (g *Gateway) Send(teamID string, event any) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c, ok := g.clients[teamID]
	if !ok {
		return
	}

	select {
	case c.send <- event:
	default:
		logf(g.cfg, "ERROR: Dropping slow connection %s", c.id)
		c.shutdown()
	}
}

func (g *Gateway) register(c *Client) {
	g.mu.Lock()
	g.clients[c.id] = c
	g.mu.Unlock()
}

func (g *Gateway) unregister(c *Client) {
	g.leave(c)

	g.mu.Lock()
	if _, ok := g.clients[c.id]; ok {
		delete(g.clients, c.id)
		close(c.send)
	}
	g.mu.Unlock()
}

func (g *Gateway) connections() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.clients)
}

func (g *Gateway) leave(c *Client) {
	if c.room == "" {
		return
	}

	g.rooms.RemoveParticipant(c.room, c.id)
	logf(g.cfg, "ROOMS: %s left room %s", c.id, c.room)
	c.room = ""
}

func (g *Gateway) session(c *Client) (*game.Session, error) {
	if c.room == "" {
		return nil, &game.Error{Kind: game.KindNotFound, Message: "not in a room"}
	}

	return g.rooms.Session(c.room)
}

func decodeBill(raw json.RawMessage) (game.Bill, error) {
	var b game.Bill
	if len(raw) == 0 || string(raw) == "null" {
		return b, &game.Error{Kind: game.KindInvalid, Message: "missing bill"}
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return b, err
	}

	return b, nil
}

// dispatch applies one command on behalf of c.
func (g *Gateway) dispatch(c *Client, msg ClientMessage) error {
	switch msg.Type {
	case cmdCreateRoom:
		g.leave(c)

		code, _, err := g.rooms.CreateRoom(c.id, msg.Name)
		if err != nil {
			return err
		}
		c.room = code
		logf(g.cfg, "ROOMS: %s created room %s", c.id, code)

		return nil
	case cmdJoinRoom:
		code := strings.ToUpper(strings.TrimSpace(msg.Code))
		// c.room can be stale after a pruning reset or teardown; the room
		// itself reports a live duplicate.
		if code != c.room {
			g.leave(c)
		}

		if _, err := g.rooms.JoinRoom(code, c.id, msg.Name); err != nil {
			return err
		}
		c.room = code
		logf(g.cfg, "ROOMS: %s joined room %s", c.id, code)

		return nil
	case cmdLeaveRoom:
		g.leave(c)

		return nil
	}

	s, err := g.session(c)
	if err != nil {
		return err
	}

	switch msg.Type {
	case cmdStartGame:
		return s.Start(c.id)
	case cmdSubmitSecret:
		bill, err := decodeBill(msg.Bill)
		if err != nil {
			return err
		}
		return s.SubmitSecret(c.id, bill)
	case cmdSubmitGuess:
		bill, err := decodeBill(msg.Bill)
		if err != nil {
			return err
		}
		return s.SubmitGuess(c.id, bill)
	case cmdAdvanceRound:
		return s.AdvanceRound(c.id)
	case cmdAdvanceStage:
		return s.AdvanceStage(c.id)
	case cmdResetGame:
		return s.Reset(c.id)
	default:
		return &game.Error{Kind: game.KindInvalid, Message: "unknown command " + msg.Type}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (c *Client) readPump(g *Gateway) {
	defer func() {
		g.unregister(c)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxFrameSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			g.Send(c.id, game.NewErrorEvent(&game.Error{Kind: game.KindInvalid, Message: "malformed frame"}))

			continue
		}

		if err := g.dispatch(c, msg); err != nil {
			logf(g.cfg, "GAMES: %s %s rejected: %v", c.id, msg.Type, err)
			g.Send(c.id, game.NewErrorEvent(err))
		}
	}
}

func (c *Client) writePump() {
	defer c.shutdown()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func serveWS(cfg *Config, g *Gateway) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Websocket upgrade from %s failed: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, sendBuffer),
			id:   uuid.NewString(),
		}

		g.register(client)
		client.send <- ConnectedMessage{Type: "connected", ID: client.id}

		logf(cfg, "SERVE: Websocket %s opened by %s", client.id, realIP(r))

		go client.writePump()
		client.readPump(g)
	}
}

func registerGame(cfg *Config, g *Gateway, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/ws", serveWS(cfg, g))
	mux.GET(cfg.prefix+"/room/:code/qr", serveRoomQR(cfg, g))
}
