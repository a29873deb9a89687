package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	randv2 "math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"
)

const sendBuffer = 8

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// sessionWords feed the human-readable session names phones type in.
var sessionWords = []string{
	"acorn", "amber", "anchor", "apple", "aspen",
	"badger", "bamboo", "beacon", "birch", "bison",
	"breeze", "canyon", "cedar", "clover", "comet",
	"coral", "crane", "delta", "ember", "falcon",
	"fern", "flint", "garnet", "glacier", "harbor",
	"hazel", "heron", "ivory", "jasper", "juniper",
	"kelp", "lagoon", "lantern", "lichen", "lotus",
	"maple", "meadow", "nectar", "nimbus", "ocean",
	"onyx", "orchid", "osprey", "otter", "pebble",
	"pinecone", "quartz", "raven", "reef", "ridge",
	"sage", "sequoia", "sparrow", "spruce", "summit",
	"thistle", "tundra", "walnut", "willow", "zephyr",
}

// Client is one websocket connection, either the board or a phone.
type Client struct {
	conn    *websocket.Conn
	send    chan any
	id      string
	origin  string
	mobile  bool
	session *Session
}

// reconnectRecord preserves a named player across a dropped connection,
// keyed by network origin.
type reconnectRecord struct {
	player    *Player
	sessionID string
}

// SessionManager tracks every live session and the reconnection cache.
type SessionManager struct {
	cfg *Config
	gen Generator

	mu         sync.Mutex
	sessions   map[string]*Session
	reconnects map[string]reconnectRecord
}

func newSessionManager(cfg *Config, gen Generator) *SessionManager {
	m := &SessionManager{
		cfg:        cfg,
		gen:        gen,
		sessions:   make(map[string]*Session),
		reconnects: make(map[string]reconnectRecord),
	}

	if cfg.sessionTimeout > 0 {
		go m.reap()
	}

	return m
}

// reap shuts down sessions that have gone quiet.
func (m *SessionManager) reap() {
	interval := m.cfg.sessionTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}

	for {
		time.Sleep(interval)

		cutoff := time.Now().Add(-m.cfg.sessionTimeout)

		m.mu.Lock()
		stale := make([]*Session, 0)
		for _, s := range m.sessions {
			if s.idle(cutoff) {
				stale = append(stale, s)
			}
		}
		m.mu.Unlock()

		for _, s := range stale {
			logf(m.cfg, "GAMES: Reaping idle session %s", s.id)
			s.enqueue(shutdownEvent{})
		}
	}
}

func randomWord() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(sessionWords))))
	if err != nil {
		return "", err
	}
	return sessionWords[n.Int64()], nil
}

// newSessionName picks an unused name, widening to two words on collision.
// Caller must hold m.mu.
func (m *SessionManager) newSessionName() (string, error) {
	for range 16 {
		first, err := randomWord()
		if err != nil {
			return "", err
		}

		if _, taken := m.sessions[first]; !taken {
			return first, nil
		}

		second, err := randomWord()
		if err != nil {
			return "", err
		}

		name := first + "-" + second
		if _, taken := m.sessions[name]; !taken {
			return name, nil
		}
	}

	return "", fmt.Errorf("no free session name")
}

func (m *SessionManager) createSession(board *Client) (*Session, error) {
	m.mu.Lock()
	name, err := m.newSessionName()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	s := newSession(name, m.cfg, m, board)
	m.sessions[name] = s
	m.mu.Unlock()

	board.session = s

	// Queued before the run loop starts, so nothing can be closing the
	// channel on the other side yet.
	board.send <- SessionNameMessage{
		Type:    "session_name",
		Session: name,
	}

	go s.run()
	go m.acquireContent(s)

	logf(m.cfg, "GAMES: Created session %s", name)

	return s, nil
}

// acquireContent fetches and validates the full board off the hot path,
// then hands the result to the session's run loop.
func (m *SessionManager) acquireContent(s *Session) {
	r := randv2.New(randv2.NewPCG(randv2.Uint64(), randv2.Uint64()))

	content, err := fetchGame(context.Background(), m.gen, m.cfg.contentAttempts, r)

	s.enqueue(contentEvent{
		content: content,
		err:     err,
	})
}

func (m *SessionManager) getSession(name string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[strings.ToLower(strings.TrimSpace(name))]
}

func (m *SessionManager) removeSession(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)

	for origin, record := range m.reconnects {
		if record.sessionID == id {
			delete(m.reconnects, origin)
		}
	}
}

// rememberPlayer stashes a departed player so the same origin can pick
// their game back up. Records die with the session.
func (m *SessionManager) rememberPlayer(origin string, player *Player, sessionID string) {
	if origin == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.reconnects[origin] = reconnectRecord{
		player:    player,
		sessionID: sessionID,
	}
}

// takeRecord claims the reconnection record for an origin, if its session
// is still alive. Claiming removes it; a second connection from the same
// origin joins fresh.
func (m *SessionManager) takeRecord(origin string) (reconnectRecord, *Session, bool) {
	if origin == "" {
		return reconnectRecord{}, nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.reconnects[origin]
	if !ok {
		return reconnectRecord{}, nil, false
	}

	s, alive := m.sessions[record.sessionID]
	if !alive {
		delete(m.reconnects, origin)
		return reconnectRecord{}, nil, false
	}

	delete(m.reconnects, origin)

	return record, s, true
}

func (m *SessionManager) connectDevice(c *Client, isMobile bool) {
	c.mobile = isMobile

	if !isMobile {
		_, err := m.createSession(c)
		if err != nil {
			logf(m.cfg, "GAMES: Failed to create session: %v", err)
			c.send <- SimpleMessage{
				Type:    "connect_device_failure",
				Message: "Couldn't create a session. Please try again.",
			}
		}

		return
	}

	record, s, ok := m.takeRecord(c.origin)
	if !ok {
		return
	}

	c.session = s
	s.enqueue(reconnectEvent{
		client: c,
		record: record,
	})
}

func (m *SessionManager) joinSession(c *Client, name string) {
	s := m.getSession(name)
	if s == nil {
		c.send <- SessionNameMessage{
			Type:    "join_session_failure",
			Session: name,
		}

		return
	}

	c.session = s
	s.enqueue(joinEvent{
		client: c,
	})
}

func (c *Client) readPump(cfg *Config, m *SessionManager) {
	defer func() {
		if c.session != nil {
			c.session.enqueue(unregisterEvent{
				client: c,
			})
		} else {
			close(c.send)
		}

		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage

		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logf(cfg, "GAMES: Read failed for %s: %v", c.id, err)
			}

			return
		}

		switch msg.Type {
		case "connect_device":
			if c.session == nil {
				m.connectDevice(c, msg.IsMobile)
			}
		case "join_session":
			if c.session == nil {
				m.joinSession(c, msg.Session)
			}
		case "submit_signature", "start_game", "request_clue",
			"buzz_in", "submit_answer", "answer_livefeed":
			if c.session != nil {
				c.session.enqueue(clientEvent{
					client: c,
					msg:    msg,
				})
			}
		}
	}
}

func (c *Client) writePump() {
	for msg := range c.send {
		err := c.conn.WriteJSON(msg)
		if err != nil {
			_ = c.conn.Close()

			return
		}
	}

	_ = c.conn.Close()
}

func serveTriviaWebsocket(cfg *Config, m *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade failed for %s: %v", realIP(r), err)

			return
		}

		client := &Client{
			conn:   conn,
			send:   make(chan any, sendBuffer),
			id:     uuid.NewString(),
			origin: clientOrigin(r),
		}

		client.send <- SimpleMessage{
			Type: "connect_device",
		}

		go client.writePump()

		client.readPump(cfg, m)
	}
}

func serveSessionQRCode(cfg *Config, path string, m *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		name := p.ByName("session")

		if m.getSession(name) == nil {
			http.NotFound(w, r)

			return
		}

		joinURL := fmt.Sprintf("%s://%s%s%s/%s",
			cfg.scheme(),
			r.Host,
			cfg.prefix,
			path,
			name)

		png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")

		_, err = w.Write(png)
		if err != nil {
			logf(cfg, "GAMES: Failed to serve QR code for %s: %v", name, err)
		}
	}
}

func registerTriviaGame(cfg *Config, path string, mux *httprouter.Router) {
	m := newSessionManager(cfg, newChatClient(cfg))

	mux.GET(cfg.prefix+path+"/ws", serveTriviaWebsocket(cfg, m))
	mux.GET(cfg.prefix+path+"/qr/:session", serveSessionQRCode(cfg, path, m))
}
