package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wricardo/tictactoe-rooms/api"
	"github.com/wricardo/tictactoe-rooms/game/config"
	"github.com/wricardo/tictactoe-rooms/game/engine"
	"github.com/wricardo/tictactoe-rooms/game/room"
	"github.com/wricardo/tictactoe-rooms/game/service"
	"github.com/wricardo/tictactoe-rooms/transport/websocket"
)

const (
	X = engine.First
	O = engine.Second
)

func TestBestMove(t *testing.T) {
	tests := []struct {
		name  string
		board engine.Board
		me    engine.Role
		want  int
	}{
		{
			name: "opens in the centre",
			me:   X,
			want: 4,
		},
		{
			name:  "answers the centre with a corner",
			board: engine.Board{4: X},
			me:    O,
			want:  0,
		},
		{
			name:  "takes the win",
			board: engine.Board{0: X, 1: X, 3: O, 4: O},
			me:    X,
			want:  2,
		},
		{
			name:  "prefers winning to blocking",
			board: engine.Board{0: X, 1: X, 3: O, 4: O, 8: X},
			me:    O,
			want:  5,
		},
		{
			name:  "blocks",
			board: engine.Board{0: X, 1: X, 4: O},
			me:    O,
			want:  2,
		},
		{
			name:  "finished game",
			board: engine.Board{0: X, 1: X, 2: X, 3: O, 4: O},
			me:    O,
			want:  -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BestMove(tt.board, tt.me))
		})
	}
}

func TestBestMove_SelfPlayDraws(t *testing.T) {
	var g engine.Game
	g.Restart(X)

	for g.Status == engine.Playing {
		index := BestMove(g.Board, g.Turn)
		require.NoError(t, g.Legal(g.Turn, index))
		g.Apply(index)
	}
	assert.True(t, engine.IsDraw(g.Board), "perfect play ends in a draw")
}

func TestBestMove_NeverLoses(t *testing.T) {
	// The bot plays O against every possible sequence of X moves.
	var explore func(g engine.Game)
	explore = func(g engine.Game) {
		if g.Status != engine.Playing {
			assert.NotEqual(t, X, engine.Winner(g.Board), "lost on %v", g.Board)
			return
		}
		if g.Turn == O {
			next := g
			next.Apply(BestMove(g.Board, O))
			explore(next)
			return
		}
		for i := 0; i < engine.BoardSize; i++ {
			if g.Board[i] != engine.None {
				continue
			}
			next := g
			next.Apply(i)
			explore(next)
		}
	}

	var g engine.Game
	g.Restart(X)
	explore(g)
}

func startServer(t *testing.T) string {
	t.Helper()
	rooms := room.NewManager(room.NewBcryptHasher(bcrypt.MinCost), nil)
	t.Cleanup(rooms.Close)

	svc := service.NewGameService(rooms, nil)
	hub := websocket.NewHub(svc, config.WebSocket{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(api.NewServer(svc, hub, nil))
	t.Cleanup(server.Close)
	return server.URL
}

func TestClient(t *testing.T) {
	baseURL := startServer(t)
	ctx := context.Background()
	host, guest := NewClient(baseURL), NewClient(baseURL)

	roomID, err := host.CreateRoom(ctx, "abcd")
	require.NoError(t, err)
	assert.True(t, room.ValidID(roomID))
	assert.NotEmpty(t, host.ConnectionID())

	var eventErr *EventError
	err = guest.JoinRoom(ctx, roomID, "nope")
	require.True(t, errors.As(err, &eventErr))
	assert.Equal(t, service.CodeWrongPasskey, eventErr.Code)

	require.NoError(t, guest.JoinRoom(ctx, roomID, "abcd"))
	require.NoError(t, host.Move(ctx, roomID, 4))

	err = host.Move(ctx, roomID, 0)
	require.True(t, errors.As(err, &eventErr))
	assert.Equal(t, service.CodeNotYourTurn, eventErr.Code)

	view, err := guest.Room(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, engine.Playing, view.Status)
	assert.Equal(t, O, *view.Role)
	assert.Equal(t, O, *view.Turn)
	assert.Equal(t, engine.Board{4: X}, *view.Board)

	_, err = guest.Room(ctx, "ZZZZZZ")
	require.True(t, errors.As(err, &eventErr))
	assert.Equal(t, service.CodeRoomNotFound, eventErr.Code)
}

func TestPlay_TwoBots(t *testing.T) {
	baseURL := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host, guest := NewClient(baseURL), NewClient(baseURL)
	roomID, err := host.CreateRoom(ctx, "abcd")
	require.NoError(t, err)
	require.NoError(t, guest.JoinRoom(ctx, roomID, "abcd"))

	type result struct {
		summary Summary
		err     error
	}
	guestDone := make(chan result, 1)
	go func() {
		s, err := Play(ctx, guest, roomID, Options{PollInterval: 5 * time.Millisecond}, nil)
		guestDone <- result{s, err}
	}()

	summary, err := Play(ctx, host, roomID, Options{Games: 2, PollInterval: 5 * time.Millisecond}, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Draws: 2}, summary)

	got := <-guestDone
	assert.ErrorIs(t, got.err, ErrOpponentLeft)
	assert.Zero(t, got.summary.Wins+got.summary.Losses)
}

func TestPlay_NotAMember(t *testing.T) {
	baseURL := startServer(t)
	ctx := context.Background()

	roomID, err := NewClient(baseURL).CreateRoom(ctx, "abcd")
	require.NoError(t, err)

	_, err = Play(ctx, NewClient(baseURL), roomID, Options{PollInterval: time.Millisecond}, nil)
	assert.ErrorContains(t, err, "not a member")
}
