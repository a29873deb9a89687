// Triviabox Board Game
//
// One browser acts as the board display and many phones join it by session
// name to buzz in, answer, and accumulate scores. The board connection owns
// the session: connecting creates it, disconnecting ends it.
//
// Features:
// - Per-session hub: all events for one session drain through one goroutine
// - Category content generated asynchronously via a chat-completion backend,
//   validated and retried before the game may start
// - Six-phase game loop (lobby/board/clue/answer/decision/scoreboard) with
//   fixed reveal delays between decision and scoreboard
// - Stale timers carry the state and epoch captured at schedule time and
//   are dropped if either has moved on
// - Buzz-in answering with fuzzy answer matching and an anti-cheat check
// - Daily doubles placed by weighted difficulty tier, one on the first
//   board and two (distinct categories) on the second
// - Phones reconnect by network origin and recover name, score, and
//   answered status while their session is alive
// - Sessions auto-reaped after a configurable idle timeout
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"sort"
	"sync"
	"time"
)

type GameState string

const (
	StateLobby      GameState = "lobby"
	StateBoard      GameState = "board"
	StateClue       GameState = "clue"
	StateAnswer     GameState = "answer"
	StateDecision   GameState = "decision"
	StateScoreboard GameState = "scoreboard"
)

// Player holds the data we store server-side for one phone.
type Player struct {
	ConnectionID string `json:"connection_id"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	SessionID    string `json:"session_id"`
}

// Messages coming from clients
type ClientMessage struct {
	Type          string `json:"type"`                     // "connect_device", "join_session", "submit_signature", "start_game", "request_clue", "buzz_in", "submit_answer", "answer_livefeed"
	IsMobile      bool   `json:"is_mobile,omitempty"`      // connect_device
	Session       string `json:"session,omitempty"`        // join_session
	Name          string `json:"name,omitempty"`           // submit_signature
	CategoryIndex *int   `json:"category_index,omitempty"` // request_clue
	ClueIndex     *int   `json:"clue_index,omitempty"`     // request_clue
	Text          string `json:"text,omitempty"`           // submit_answer / answer_livefeed
}

// SimpleMessage is for generic notifications ("connect_device", "reconnect",
// "show_decision", failure events, etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// SessionNameMessage carries a session name to one client, both for the
// newly created session and for join results.
type SessionNameMessage struct {
	Type    string `json:"type"` // "session_name", "join_session_success", "join_session_failure"
	Session string `json:"session"`
}

type StateMessage struct {
	Type  string    `json:"type"` // "set_game_state"
	State GameState `json:"state"`
}

type CategoriesMessage struct {
	Type       string      `json:"type"` // "categories"
	Round      int         `json:"round"`
	Categories []*Category `json:"categories"`
}

type BoardControllerMessage struct {
	Type         string `json:"type"` // "board_controller"
	ConnectionID string `json:"connection_id"`
}

type ClueMessage struct {
	Type          string `json:"type"` // "request_clue"
	CategoryIndex int    `json:"category_index"`
	ClueIndex     int    `json:"clue_index"`
	Question      string `json:"question"`
}

type PlayersAnsweredMessage struct {
	Type          string   `json:"type"` // "players_answered"
	ConnectionIDs []string `json:"connection_ids"`
}

type DecisionMessage struct {
	Type    string `json:"type"` // "decision"
	Answer  string `json:"answer"`
	Correct bool   `json:"correct"`
}

type ShowAnswerMessage struct {
	Type   string `json:"type"` // "show_answer"
	Answer string `json:"answer"`
}

type PlayersMessage struct {
	Type    string             `json:"type"` // "players"
	Players map[string]*Player `json:"players"`
}

type LivefeedMessage struct {
	Type string `json:"type"` // "answer_livefeed"
	Name string `json:"name"`
	Text string `json:"text"`
}

type FinalClueMessage struct {
	Type  string    `json:"type"` // "final_clue"
	Final FinalClue `json:"final"`
}

// ---- Session events ----

type joinEvent struct {
	client *Client
}

type reconnectEvent struct {
	client *Client
	record reconnectRecord
}

type unregisterEvent struct {
	client *Client
}

type clientEvent struct {
	client *Client
	msg    ClientMessage
}

type timerStep int

const (
	stepShowDecision timerStep = iota
	stepResolveDecision
	stepShowScoreboard
	stepShowBoard
)

// timerEvent fires a scheduled phase transition. It only applies if the
// session is still in the state it was scheduled against, at the same
// epoch; anything else means a later event superseded it.
type timerEvent struct {
	step   timerStep
	expect GameState
	epoch  uint64
}

type contentEvent struct {
	content *GameContent
	err     error
}

type shutdownEvent struct{}

type funcEvent func()

// pendingDecision captures who answered what while the reveal timers run.
type pendingDecision struct {
	playerID string
	correct  bool
	value    int
}

// Session is one running game: one board, N phones, and all game state.
// Every field below mu is only touched from the run loop.
type Session struct {
	id      string
	cfg     *Config
	manager *SessionManager

	events chan sessionEvent
	done   chan struct{}

	mu         sync.RWMutex
	lastActive time.Time

	clients map[*Client]bool
	board   *Client

	state           GameState
	epoch           uint64
	players         map[string]*Player
	playersAnswered map[string]bool
	roster          map[string]bool
	boardController string

	content      *GameContent
	contentReady bool
	contentErr   error

	round          int
	finalShown     bool
	activeCategory int
	activeClue     int
	buzzed         string
	pending        pendingDecision
}

type sessionEvent any

func newSession(id string, cfg *Config, manager *SessionManager, board *Client) *Session {
	now := time.Now()
	s := &Session{
		id:              id,
		cfg:             cfg,
		manager:         manager,
		events:          make(chan sessionEvent, 64),
		done:            make(chan struct{}),
		lastActive:      now,
		clients:         make(map[*Client]bool),
		board:           board,
		state:           StateLobby,
		players:         make(map[string]*Player),
		playersAnswered: make(map[string]bool),
		round:           1,
		activeCategory:  -1,
		activeClue:      -1,
	}

	if board != nil {
		s.clients[board] = true
	}

	return s
}

func (s *Session) run() {
	for {
		select {
		case ev := <-s.events:
			s.touch()

			switch ev := ev.(type) {
			case joinEvent:
				s.handleJoin(ev.client)
			case reconnectEvent:
				s.handleReconnect(ev.client, ev.record)
			case unregisterEvent:
				s.handleUnregister(ev.client)
			case clientEvent:
				s.handleMessage(ev.client, ev.msg)
			case timerEvent:
				s.handleTimer(ev)
			case contentEvent:
				s.handleContent(ev)
			case shutdownEvent:
				s.teardown()
			case funcEvent:
				ev()
			}
		case <-s.done:
			return
		}
	}
}

// enqueue delivers an event into the session's serialized stream, dropping
// it if the session has already been torn down.
func (s *Session) enqueue(ev sessionEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// do runs fn inside the session's run loop and waits for it, returning
// false if the session is gone.
func (s *Session) do(fn func()) bool {
	ran := make(chan struct{})

	select {
	case s.events <- funcEvent(func() {
		fn()
		close(ran)
	}):
	case <-s.done:
		return false
	}

	select {
	case <-ran:
		return true
	case <-s.done:
		return false
	}
}

// State reports the session's current phase.
func (s *Session) State() GameState {
	state := GameState("")
	s.do(func() {
		state = s.state
	})
	return state
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) idle(cutoff time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive.Before(cutoff)
}

// schedule arms a phase timer. The expected state and the current epoch are
// captured now; handleTimer drops the event if either no longer matches.
func (s *Session) schedule(d time.Duration, step timerStep, expect GameState) {
	ev := timerEvent{
		step:   step,
		expect: expect,
		epoch:  s.epoch,
	}

	time.AfterFunc(d, func() {
		s.enqueue(ev)
	})
}

func (s *Session) sendTo(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Session) broadcast(msg any) {
	for client := range s.clients {
		select {
		case client.send <- msg:
		default:
			delete(s.clients, client)
			close(client.send)
		}
	}
}

// transition moves the session into a new phase and announces it. Bumping
// the epoch here is what invalidates any timer scheduled before this point.
func (s *Session) transition(state GameState) {
	s.state = state
	s.epoch++

	s.broadcast(StateMessage{
		Type:  "set_game_state",
		State: state,
	})
}

func (s *Session) currentCategories() []*Category {
	if s.content == nil {
		return nil
	}
	if s.round == 2 {
		return s.content.DoubleCategories
	}
	return s.content.Categories
}

func boardComplete(categories []*Category) bool {
	for _, category := range categories {
		if !category.Completed {
			return false
		}
	}
	return true
}

func (s *Session) activeClueRef() *Clue {
	categories := s.currentCategories()
	if categories == nil || s.activeCategory < 0 || s.activeCategory >= len(categories) {
		return nil
	}
	category := categories[s.activeCategory]
	if s.activeClue < 0 || s.activeClue >= len(category.Clues) {
		return nil
	}
	return category.Clues[s.activeClue]
}

func (s *Session) answeredIDs() []string {
	ids := make([]string, 0, len(s.playersAnswered))
	for id := range s.playersAnswered {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// allAnswered reports whether every player in the roster snapshot taken at
// clue-open time has answered. Players who joined mid-clue are not counted.
func (s *Session) allAnswered() bool {
	if len(s.roster) == 0 {
		return false
	}
	for id := range s.roster {
		if !s.playersAnswered[id] {
			return false
		}
	}
	return true
}

// ---- Phase broadcasts ----

func (s *Session) showBoard() {
	if s.round == 1 && boardComplete(s.content.Categories) {
		s.round = 2
	}

	s.transition(StateBoard)
	s.broadcast(CategoriesMessage{
		Type:       "categories",
		Round:      s.round,
		Categories: s.currentCategories(),
	})
	s.broadcast(BoardControllerMessage{
		Type:         "board_controller",
		ConnectionID: s.boardController,
	})

	if s.round == 2 && !s.finalShown && boardComplete(s.content.DoubleCategories) {
		s.finalShown = true
		s.broadcast(FinalClueMessage{
			Type:  "final_clue",
			Final: s.content.Final,
		})
	}
}

func (s *Session) showClue(categoryIndex, clueIndex int) {
	clue := s.currentCategories()[categoryIndex].Clues[clueIndex]

	s.transition(StateClue)
	s.broadcast(ClueMessage{
		Type:          "request_clue",
		CategoryIndex: categoryIndex,
		ClueIndex:     clueIndex,
		Question:      clue.Question,
	})
	s.broadcast(PlayersAnsweredMessage{
		Type:          "players_answered",
		ConnectionIDs: s.answeredIDs(),
	})
}

func (s *Session) showScoreboard() {
	s.transition(StateScoreboard)
	s.broadcast(PlayersMessage{
		Type:    "players",
		Players: s.players,
	})

	s.activeCategory, s.activeClue = -1, -1
	s.playersAnswered = make(map[string]bool)
	s.roster = nil
	s.buzzed = ""

	s.schedule(s.cfg.scoreboardDelay, stepShowBoard, StateScoreboard)
}

// ---- Event handlers ----

func (s *Session) handleJoin(c *Client) {
	s.clients[c] = true

	if s.players[c.id] == nil {
		s.players[c.id] = &Player{
			ConnectionID: c.id,
			SessionID:    s.id,
		}
	}

	// The first phone to join controls the board until someone answers
	// correctly.
	if s.boardController == "" {
		s.boardController = c.id
	}

	s.sendTo(c, SessionNameMessage{
		Type:    "join_session_success",
		Session: s.id,
	})
	s.sendTo(c, StateMessage{
		Type:  "set_game_state",
		State: s.state,
	})

	logf(s.cfg, "GAMES: Connection %s joined %s", c.id, s.id)
}

func (s *Session) handleReconnect(c *Client, record reconnectRecord) {
	oldID := record.player.ConnectionID

	s.clients[c] = true

	record.player.ConnectionID = c.id
	s.players[c.id] = record.player

	// Carry answered status and any role tied to the old connection over
	// to the new one, so the reveal logic never double-counts.
	if s.playersAnswered[oldID] {
		delete(s.playersAnswered, oldID)
		s.playersAnswered[c.id] = true
	}
	if s.roster[oldID] {
		delete(s.roster, oldID)
		s.roster[c.id] = true
	}
	if s.boardController == oldID {
		s.boardController = c.id
	}
	if s.buzzed == oldID {
		s.buzzed = c.id
	}
	if s.pending.playerID == oldID {
		s.pending.playerID = c.id
	}

	s.sendTo(c, StateMessage{
		Type:  "set_game_state",
		State: s.state,
	})
	s.sendTo(c, SimpleMessage{
		Type: "reconnect",
	})
	s.broadcast(PlayersMessage{
		Type:    "players",
		Players: s.players,
	})

	logf(s.cfg, "GAMES: Player %q reconnected to %s", record.player.Name, s.id)
}

func (s *Session) handleUnregister(c *Client) {
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}

	if c == s.board {
		logf(s.cfg, "GAMES: Board left, ending %s", s.id)
		s.teardown()
		return
	}

	player := s.players[c.id]
	if player == nil {
		return
	}

	// Only remember players who have submitted a signature; an unnamed
	// entry has nothing worth restoring.
	if player.Name != "" {
		s.manager.rememberPlayer(c.origin, player, s.id)
	}

	delete(s.players, c.id)

	// A departed player can no longer answer; don't let the reveal wait
	// on them unless they already did.
	if !s.playersAnswered[c.id] {
		delete(s.roster, c.id)
	}

	s.broadcast(PlayersMessage{
		Type:    "players",
		Players: s.players,
	})

	// If the buzzer drops mid-answer nothing else can advance the state,
	// so put the clue back up for grabs.
	if s.state == StateAnswer && s.buzzed == c.id {
		s.buzzed = ""
		s.showClue(s.activeCategory, s.activeClue)
	}
}

func (s *Session) handleContent(ev contentEvent) {
	if ev.err != nil {
		s.contentErr = ev.err
		s.broadcast(SimpleMessage{
			Type:    "content_error",
			Message: "Couldn't put a game together. Please try again later.",
		})

		logf(s.cfg, "GAMES: Content acquisition for %s failed: %v", s.id, ev.err)
		return
	}

	s.content = ev.content
	s.contentReady = true

	logf(s.cfg, "GAMES: Content ready for %s", s.id)
}

func (s *Session) handleMessage(c *Client, msg ClientMessage) {
	switch msg.Type {
	case "submit_signature":
		s.handleSignature(c, msg)
	case "start_game":
		s.handleStartGame(c)
	case "request_clue":
		s.handleRequestClue(c, msg)
	case "buzz_in":
		s.handleBuzz(c)
	case "submit_answer":
		s.handleAnswer(c, msg)
	case "answer_livefeed":
		s.handleLivefeed(c, msg)
	}
}

func (s *Session) handleSignature(c *Client, msg ClientMessage) {
	player := s.players[c.id]
	if player == nil {
		return
	}

	if errText := checkPlayerName(msg.Name); errText != "" {
		s.sendTo(c, SimpleMessage{
			Type:    "submit_signature_failure",
			Message: errText,
		})
		return
	}

	player.Name = msg.Name

	s.sendTo(c, SimpleMessage{
		Type: "submit_signature_success",
	})
	s.broadcast(PlayersMessage{
		Type:    "players",
		Players: s.players,
	})

	logf(s.cfg, "GAMES: Player %q signed in to %s", msg.Name, s.id)
}

func (s *Session) signedPlayers() int {
	count := 0
	for _, player := range s.players {
		if player.Name != "" {
			count++
		}
	}
	return count
}

func (s *Session) handleStartGame(c *Client) {
	if c != s.board || s.state != StateLobby {
		return
	}

	switch {
	case s.contentErr != nil:
		s.sendTo(c, SimpleMessage{
			Type:    "start_game_failure",
			Message: "No game content is available.",
		})
	case !s.contentReady:
		s.sendTo(c, SimpleMessage{
			Type:    "start_game_failure",
			Message: "Still preparing the board, hang tight.",
		})
	case s.signedPlayers() == 0:
		s.sendTo(c, SimpleMessage{
			Type:    "start_game_failure",
			Message: "At least one player has to join first.",
		})
	default:
		s.showBoard()
	}
}

func (s *Session) handleRequestClue(c *Client, msg ClientMessage) {
	if s.state != StateBoard || c.id != s.boardController {
		return
	}
	if msg.CategoryIndex == nil || msg.ClueIndex == nil {
		return
	}

	categoryIndex, clueIndex := *msg.CategoryIndex, *msg.ClueIndex

	categories := s.currentCategories()
	if categoryIndex < 0 || categoryIndex >= len(categories) {
		return
	}
	category := categories[categoryIndex]
	if clueIndex < 0 || clueIndex >= len(category.Clues) {
		return
	}

	clue := category.Clues[clueIndex]
	if clue.Completed {
		return
	}

	clue.Completed = true
	category.NumCluesUsed++
	if category.NumCluesUsed == numClues {
		category.Completed = true
	}

	s.activeCategory, s.activeClue = categoryIndex, clueIndex
	s.playersAnswered = make(map[string]bool)
	s.buzzed = ""

	// Freeze the roster for this clue: only players signed in right now
	// count toward "everyone has answered".
	s.roster = make(map[string]bool)
	for id, player := range s.players {
		if player.Name != "" {
			s.roster[id] = true
		}
	}

	s.showClue(categoryIndex, clueIndex)
}

func (s *Session) handleBuzz(c *Client) {
	if s.state != StateClue {
		return
	}

	player := s.players[c.id]
	if player == nil || player.Name == "" || s.playersAnswered[c.id] {
		return
	}

	s.buzzed = c.id
	s.transition(StateAnswer)
}

func (s *Session) handleAnswer(c *Client, msg ClientMessage) {
	if s.state != StateAnswer || c.id != s.buzzed {
		return
	}

	clue := s.activeClueRef()
	if clue == nil {
		return
	}

	s.playersAnswered[c.id] = true

	correct := checkAnswer(
		s.currentCategories()[s.activeCategory].Title,
		clue.Question,
		clue.Answer,
		msg.Text,
	)

	s.pending = pendingDecision{
		playerID: c.id,
		correct:  correct,
		value:    clue.Value,
	}

	s.transition(StateDecision)
	s.broadcast(DecisionMessage{
		Type:    "decision",
		Answer:  msg.Text,
		Correct: correct,
	})

	s.schedule(s.cfg.revealDelay, stepShowDecision, StateDecision)
}

func (s *Session) handleLivefeed(c *Client, msg ClientMessage) {
	if s.state != StateAnswer || c.id != s.buzzed {
		return
	}

	player := s.players[c.id]
	if player == nil {
		return
	}

	s.broadcast(LivefeedMessage{
		Type: "answer_livefeed",
		Name: player.Name,
		Text: msg.Text,
	})
}

func (s *Session) handleTimer(ev timerEvent) {
	if ev.epoch != s.epoch || ev.expect != s.state {
		return
	}

	switch ev.step {
	case stepShowDecision:
		s.broadcast(SimpleMessage{
			Type: "show_decision",
		})
		s.schedule(s.cfg.decisionDelay, stepResolveDecision, StateDecision)

	case stepResolveDecision:
		s.resolveDecision()

	case stepShowScoreboard:
		s.showScoreboard()

	case stepShowBoard:
		s.showBoard()
	}
}

func (s *Session) resolveDecision() {
	player := s.players[s.pending.playerID]

	if s.pending.correct {
		if player != nil {
			player.Score += s.pending.value
		}
		s.boardController = s.pending.playerID
		s.showScoreboard()
		return
	}

	if player != nil {
		player.Score -= s.pending.value
	}

	if s.allAnswered() {
		clue := s.activeClueRef()

		answer := ""
		if clue != nil {
			answer = clue.Answer
		}
		s.broadcast(ShowAnswerMessage{
			Type:   "show_answer",
			Answer: answer,
		})

		s.schedule(s.cfg.answerDelay, stepShowScoreboard, StateDecision)
		return
	}

	// Someone hasn't had a go yet; re-open buzzing on the same clue
	// without resetting who has already answered.
	s.showClue(s.activeCategory, s.activeClue)
}

func (s *Session) teardown() {
	select {
	case <-s.done:
		return
	default:
	}

	s.manager.removeSession(s.id)

	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}

	close(s.done)
}
