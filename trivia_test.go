package main

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		bind:            "0.0.0.0",
		port:            8080,
		contentAttempts: 5,
		revealDelay:     10 * time.Millisecond,
		decisionDelay:   10 * time.Millisecond,
		answerDelay:     10 * time.Millisecond,
		scoreboardDelay: 10 * time.Millisecond,
	}
}

func newTestClient(origin string) *Client {
	return &Client{
		send:   make(chan any, 256),
		id:     uuid.NewString(),
		origin: origin,
	}
}

func successGenerator() *stubGenerator {
	return &stubGenerator{
		titlesFn: sequentialTitles(),
		cluesFn: func(string) ([]*Clue, error) {
			return validClues(), nil
		},
	}
}

func awaitSimple(t *testing.T, c *Client, msgType string) SimpleMessage {
	t.Helper()

	deadline := time.After(2 * time.Second)

	for {
		select {
		case msg := <-c.send:
			if simple, ok := msg.(SimpleMessage); ok && simple.Type == msgType {
				return simple
			}
		case <-deadline:
			t.Fatalf("never received %q", msgType)
		}
	}
}

func awaitContent(t *testing.T, s *Session) {
	t.Helper()

	require.Eventually(t, func() bool {
		ready := false
		s.do(func() {
			ready = s.contentReady
		})
		return ready
	}, 2*time.Second, 5*time.Millisecond)
}

func awaitState(t *testing.T, s *Session, want GameState) {
	t.Helper()

	require.Eventually(t, func() bool {
		return s.State() == want
	}, 2*time.Second, 5*time.Millisecond, "never reached state %q", want)
}

func signIn(s *Session, c *Client, name string) {
	s.enqueue(clientEvent{
		client: c,
		msg: ClientMessage{
			Type: "submit_signature",
			Name: name,
		},
	})
}

func pickClue(s *Session, c *Client, categoryIndex, clueIndex int) {
	s.enqueue(clientEvent{
		client: c,
		msg: ClientMessage{
			Type:          "request_clue",
			CategoryIndex: &categoryIndex,
			ClueIndex:     &clueIndex,
		},
	})
}

func buzz(s *Session, c *Client) {
	s.enqueue(clientEvent{
		client: c,
		msg: ClientMessage{
			Type: "buzz_in",
		},
	})
}

func answer(s *Session, c *Client, text string) {
	s.enqueue(clientEvent{
		client: c,
		msg: ClientMessage{
			Type: "submit_answer",
			Text: text,
		},
	})
}

func TestGameFlow(t *testing.T) {
	cfg := testConfig()
	m := newSessionManager(cfg, successGenerator())

	board := newTestClient("board-host")
	s, err := m.createSession(board)
	require.NoError(t, err)

	awaitContent(t, s)

	alice := newTestClient("origin-alice")
	bob := newTestClient("origin-bob")
	m.joinSession(alice, s.id)
	m.joinSession(bob, s.id)
	signIn(s, alice, "Alice")
	signIn(s, bob, "Bob")

	s.enqueue(clientEvent{client: board, msg: ClientMessage{Type: "start_game"}})
	awaitState(t, s, StateBoard)

	// Alice joined first, so she controls the board.
	pickClue(s, bob, 0, 0)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateBoard, s.State())

	pickClue(s, alice, 0, 0)
	awaitState(t, s, StateClue)

	// Bob buzzes first and gets it wrong; the clue reopens for Alice.
	buzz(s, bob)
	awaitState(t, s, StateAnswer)
	answer(s, bob, "definitely wrong")
	awaitState(t, s, StateClue)

	s.do(func() {
		assert.Equal(t, -100, s.players[bob.id].Score)
		assert.True(t, s.playersAnswered[bob.id])
	})

	// Bob already answered; his buzz is ignored.
	buzz(s, bob)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateClue, s.State())

	buzz(s, alice)
	awaitState(t, s, StateAnswer)
	answer(s, alice, "answer 1")
	awaitState(t, s, StateBoard)

	s.do(func() {
		assert.Equal(t, 100, s.players[alice.id].Score)
		assert.Equal(t, alice.id, s.boardController)
		assert.True(t, s.content.Categories[0].Clues[0].Completed)
		assert.Equal(t, 1, s.content.Categories[0].NumCluesUsed)
	})

	// The completed clue can't be picked again.
	pickClue(s, alice, 0, 0)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateBoard, s.State())
}

func TestRosterFrozenAtClueOpen(t *testing.T) {
	cfg := testConfig()
	m := newSessionManager(cfg, successGenerator())

	board := newTestClient("board-host")
	s, err := m.createSession(board)
	require.NoError(t, err)

	awaitContent(t, s)

	alice := newTestClient("origin-alice")
	bob := newTestClient("origin-bob")
	m.joinSession(alice, s.id)
	m.joinSession(bob, s.id)
	signIn(s, alice, "Alice")
	signIn(s, bob, "Bob")

	s.enqueue(clientEvent{client: board, msg: ClientMessage{Type: "start_game"}})
	awaitState(t, s, StateBoard)

	pickClue(s, alice, 1, 0)
	awaitState(t, s, StateClue)

	buzz(s, alice)
	awaitState(t, s, StateAnswer)
	answer(s, alice, "wrong")
	awaitState(t, s, StateClue)

	// Carol joins mid-clue; she must not block the reveal.
	carol := newTestClient("origin-carol")
	m.joinSession(carol, s.id)
	signIn(s, carol, "Carol")

	buzz(s, bob)
	awaitState(t, s, StateAnswer)
	answer(s, bob, "also wrong")

	// Both snapshot players have answered, so the answer is revealed and
	// the game moves on even though Carol never buzzed.
	awaitState(t, s, StateBoard)
}

func TestBuzzerDisconnectReopensClue(t *testing.T) {
	cfg := testConfig()
	m := newSessionManager(cfg, successGenerator())

	board := newTestClient("board-host")
	s, err := m.createSession(board)
	require.NoError(t, err)

	awaitContent(t, s)

	alice := newTestClient("origin-alice")
	bob := newTestClient("origin-bob")
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

	// Alice's phone dies while she holds the buzzer. The clue has to
	// reopen or nobody could ever advance the game again.
	s.enqueue(unregisterEvent{client: alice})
	awaitState(t, s, StateClue)

	buzz(s, bob)
	awaitState(t, s, StateAnswer)
	answer(s, bob, "answer 1")
	awaitState(t, s, StateBoard)

	s.do(func() {
		assert.Equal(t, 100, s.players[bob.id].Score)
		assert.Equal(t, bob.id, s.boardController)
	})
}

func TestStartGameGating(t *testing.T) {
	t.Run("content pending", func(t *testing.T) {
		release := make(chan struct{})
		gen := &stubGenerator{
			titlesFn: func(count int) ([]string, error) {
				<-release
				return nil, nil
			},
		}
		defer close(release)

		m := newSessionManager(testConfig(), gen)
		board := newTestClient("board-host")
		s, err := m.createSession(board)
		require.NoError(t, err)

		alice := newTestClient("origin-alice")
		m.joinSession(alice, s.id)
		signIn(s, alice, "Alice")

		s.enqueue(clientEvent{client: board, msg: ClientMessage{Type: "start_game"}})

		failure := awaitSimple(t, board, "start_game_failure")
		assert.Contains(t, failure.Message, "preparing")
		assert.Equal(t, StateLobby, s.State())
	})

	t.Run("no players", func(t *testing.T) {
		m := newSessionManager(testConfig(), successGenerator())
		board := newTestClient("board-host")
		s, err := m.createSession(board)
		require.NoError(t, err)

		awaitContent(t, s)

		s.enqueue(clientEvent{client: board, msg: ClientMessage{Type: "start_game"}})

		failure := awaitSimple(t, board, "start_game_failure")
		assert.Contains(t, failure.Message, "player")
		assert.Equal(t, StateLobby, s.State())
	})

	t.Run("content failed", func(t *testing.T) {
		gen := &stubGenerator{
			titlesFn: func(int) ([]string, error) {
				return nil, assert.AnError
			},
		}

		m := newSessionManager(testConfig(), gen)
		board := newTestClient("board-host")
		s, err := m.createSession(board)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			failed := false
			s.do(func() {
				failed = s.contentErr != nil
			})
			return failed
		}, 2*time.Second, 5*time.Millisecond)

		s.enqueue(clientEvent{client: board, msg: ClientMessage{Type: "start_game"}})

		failure := awaitSimple(t, board, "start_game_failure")
		assert.Contains(t, failure.Message, "No game content")
		assert.Equal(t, StateLobby, s.State())
	})
}

func TestStaleTimersDropped(t *testing.T) {
	m := newSessionManager(testConfig(), successGenerator())

	board := newTestClient("board-host")
	s, err := m.createSession(board)
	require.NoError(t, err)

	awaitContent(t, s)

	s.do(func() {
		s.transition(StateScoreboard)

		fresh := timerEvent{
			step:   stepShowBoard,
			expect: StateScoreboard,
			epoch:  s.epoch,
		}
		s.handleTimer(fresh)
		assert.Equal(t, StateBoard, s.state)
	})

	s.do(func() {
		stale := timerEvent{
			step:   stepShowBoard,
			expect: StateBoard,
			epoch:  s.epoch,
		}

		// The transition below supersedes the timer scheduled above.
		s.transition(StateClue)

		s.handleTimer(stale)
		assert.Equal(t, StateClue, s.state)

		wrongState := timerEvent{
			step:   stepShowBoard,
			expect: StateScoreboard,
			epoch:  s.epoch,
		}
		s.handleTimer(wrongState)
		assert.Equal(t, StateClue, s.state)
	})
}

func TestBoardDisconnectEndsSession(t *testing.T) {
	m := newSessionManager(testConfig(), successGenerator())

	board := newTestClient("board-host")
	s, err := m.createSession(board)
	require.NoError(t, err)

	alice := newTestClient("origin-alice")
	m.joinSession(alice, s.id)

	s.enqueue(unregisterEvent{client: board})

	require.Eventually(t, func() bool {
		select {
		case <-s.done:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	assert.Nil(t, m.getSession(s.id))
}
