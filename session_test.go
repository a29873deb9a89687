package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionName(t *testing.T) {
	m := newSessionManager(testConfig(), successGenerator())

	name, err := m.newSessionName()
	require.NoError(t, err)
	assert.Contains(t, sessionWords, name)

	// With every single word taken, names widen to two words.
	for _, word := range sessionWords {
		m.sessions[word] = nil
	}

	name, err = m.newSessionName()
	require.NoError(t, err)
	assert.Contains(t, name, "-")
	_, taken := m.sessions[name]
	assert.False(t, taken)
}

func TestCreateSessionAnnouncesName(t *testing.T) {
	m := newSessionManager(testConfig(), successGenerator())

	board := newTestClient("board-host")
	s, err := m.createSession(board)
	require.NoError(t, err)

	// The name must already be queued by the time createSession returns,
	// before the run loop could touch the channel.
	select {
	case msg := <-board.send:
		announced, ok := msg.(SessionNameMessage)
		require.True(t, ok, "first queued message should carry the session name")
		assert.Equal(t, "session_name", announced.Type)
		assert.Equal(t, s.id, announced.Session)
	default:
		t.Fatal("session name was not queued synchronously")
	}
}

func TestJoinUnknownSession(t *testing.T) {
	m := newSessionManager(testConfig(), successGenerator())

	c := newTestClient("origin-alice")
	m.joinSession(c, "no-such-session")

	msg := <-c.send
	failure, ok := msg.(SessionNameMessage)
	require.True(t, ok)
	assert.Equal(t, "join_session_failure", failure.Type)
	assert.Nil(t, c.session)
}

func TestReconnectRecords(t *testing.T) {
	cfg := testConfig()
	m := newSessionManager(cfg, successGenerator())

	s := newSession("maple", cfg, m, nil)
	m.sessions["maple"] = s

	player := &Player{
		ConnectionID: "old",
		Name:         "Alice",
		Score:        300,
		SessionID:    "maple",
	}

	m.rememberPlayer("10.0.0.7", player, "maple")

	record, got, ok := m.takeRecord("10.0.0.7")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Same(t, player, record.player)

	// Records are claimed exactly once.
	_, _, ok = m.takeRecord("10.0.0.7")
	assert.False(t, ok)

	// A record pointing at a dead session is useless.
	m.rememberPlayer("10.0.0.8", player, "gone")
	_, _, ok = m.takeRecord("10.0.0.8")
	assert.False(t, ok)

	// Tearing a session down purges its records.
	m.rememberPlayer("10.0.0.9", player, "maple")
	m.removeSession("maple")
	_, _, ok = m.takeRecord("10.0.0.9")
	assert.False(t, ok)
}

func TestPlayerReconnects(t *testing.T) {
	cfg := testConfig()
	m := newSessionManager(cfg, successGenerator())

	board := newTestClient("board-host")
	s, err := m.createSession(board)
	require.NoError(t, err)

	alice := newTestClient("10.0.0.7")
	m.joinSession(alice, s.id)
	signIn(s, alice, "Alice")

	s.do(func() {
		s.players[alice.id].Score = 300
	})

	// Alice's phone drops. She was the first joiner, so the board
	// controller role has to follow her new connection too.
	s.enqueue(unregisterEvent{client: alice})

	require.Eventually(t, func() bool {
		remembered := false
		s.do(func() {
			_, present := s.players[alice.id]
			remembered = !present
		})
		return remembered
	}, 2*time.Second, 5*time.Millisecond)

	replacement := newTestClient("10.0.0.7")
	m.connectDevice(replacement, true)

	require.Eventually(t, func() bool {
		restored := false
		s.do(func() {
			player := s.players[replacement.id]
			restored = player != nil && player.Name == "Alice"
		})
		return restored
	}, 2*time.Second, 5*time.Millisecond)

	s.do(func() {
		player := s.players[replacement.id]
		assert.Equal(t, 300, player.Score)
		assert.Equal(t, replacement.id, player.ConnectionID)
		assert.Equal(t, replacement.id, s.boardController)
	})

	awaitSimple(t, replacement, "reconnect")

	// The record was consumed; a second device from the same origin
	// starts fresh.
	another := newTestClient("10.0.0.7")
	m.connectDevice(another, true)
	assert.Nil(t, another.session)
}

func TestAnsweredStatusSurvivesReconnect(t *testing.T) {
	cfg := testConfig()
	m := newSessionManager(cfg, successGenerator())

	board := newTestClient("board-host")
	s, err := m.createSession(board)
	require.NoError(t, err)

	awaitContent(t, s)

	alice := newTestClient("10.0.0.7")
	bob := newTestClient("10.0.0.8")
	m.joinSession(alice, s.id)
	m.joinSession(bob, s.id)
	signIn(s, alice, "Alice")
	signIn(s, bob, "Bob")

	s.enqueue(clientEvent{client: board, msg: ClientMessage{Type: "start_game"}})
	awaitState(t, s, StateBoard)

	pickClue(s, alice, 0, 0)
	awaitState(t, s, StateClue)

	buzz(s, alice)
	awaitState(t, s, StateAnswer)
	answer(s, alice, "wrong")
	awaitState(t, s, StateClue)

	s.enqueue(unregisterEvent{client: alice})

	require.Eventually(t, func() bool {
		remembered := false
		s.do(func() {
			_, present := s.players[alice.id]
			remembered = !present
		})
		return remembered
	}, 2*time.Second, 5*time.Millisecond)

	replacement := newTestClient("10.0.0.7")
	m.connectDevice(replacement, true)

	require.Eventually(t, func() bool {
		restored := false
		s.do(func() {
			restored = s.players[replacement.id] != nil
		})
		return restored
	}, 2*time.Second, 5*time.Millisecond)

	s.do(func() {
		assert.True(t, s.playersAnswered[replacement.id])
		assert.True(t, s.roster[replacement.id])
	})

	// Having already answered this clue, the reconnected Alice can't
	// buzz in again.
	buzz(s, replacement)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateClue, s.State())
}

func TestReaper(t *testing.T) {
	cfg := testConfig()
	cfg.sessionTimeout = 100 * time.Millisecond

	m := newSessionManager(cfg, successGenerator())

	board := newTestClient("board-host")
	s, err := m.createSession(board)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case <-s.done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	assert.Nil(t, m.getSession(s.id))
}
