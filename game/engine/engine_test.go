package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playingGame() Game {
	g := NewGame()
	g.Restart(First)
	return g
}

func TestNewGame(t *testing.T) {
	g := NewGame()

	assert.Equal(t, Waiting, g.Status)
	assert.Equal(t, First, g.Turn)
	assert.Equal(t, First, g.Starting)
	assert.Equal(t, Board{}, g.Board)
}

func TestWinner(t *testing.T) {
	X, O, E := First, Second, None

	tests := []struct {
		name  string
		board Board
		want  Role
	}{
		{"empty", Board{}, None},
		{"top row", Board{X, X, X, O, O, E, E, E, E}, First},
		{"middle row", Board{X, E, X, O, O, O, X, E, E}, Second},
		{"bottom row", Board{O, O, E, E, E, E, X, X, X}, First},
		{"left column", Board{O, X, X, O, X, E, O, E, E}, Second},
		{"middle column", Board{O, X, E, E, X, O, E, X, E}, First},
		{"right column", Board{X, X, O, E, E, O, X, E, O}, Second},
		{"diagonal", Board{X, O, O, E, X, E, E, E, X}, First},
		{"anti-diagonal", Board{X, X, O, E, O, E, O, E, X}, Second},
		{"two in a row", Board{X, X, E, O, O, E, E, E, E}, None},
		{"full no line", Board{X, O, X, X, O, O, O, X, X}, None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Winner(tt.board))
		})
	}
}

func TestIsDraw(t *testing.T) {
	X, O, E := First, Second, None

	t.Run("full board without a line", func(t *testing.T) {
		assert.True(t, IsDraw(Board{X, O, X, X, O, O, O, X, X}))
	})

	t.Run("full board with a line", func(t *testing.T) {
		assert.False(t, IsDraw(Board{X, X, X, O, O, X, O, X, O}))
	})

	t.Run("board with empty cells", func(t *testing.T) {
		assert.False(t, IsDraw(Board{X, O, X, X, O, O, O, X, E}))
	})
}

func TestGame_Legal(t *testing.T) {
	t.Run("waiting game", func(t *testing.T) {
		g := NewGame()
		assert.ErrorIs(t, g.Legal(First, 0), ErrGameNotStarted)
	})

	t.Run("ended game", func(t *testing.T) {
		g := playingGame()
		g.Status = Ended
		assert.ErrorIs(t, g.Legal(First, 0), ErrGameNotStarted)
	})

	t.Run("wrong turn", func(t *testing.T) {
		g := playingGame()
		assert.ErrorIs(t, g.Legal(Second, 0), ErrNotYourTurn)
	})

	t.Run("index out of range", func(t *testing.T) {
		g := playingGame()
		assert.ErrorIs(t, g.Legal(First, -1), ErrInvalidCell)
		assert.ErrorIs(t, g.Legal(First, 9), ErrInvalidCell)
	})

	t.Run("occupied cell", func(t *testing.T) {
		g := playingGame()
		g.Board[3] = Second
		assert.ErrorIs(t, g.Legal(First, 3), ErrCellTaken)
	})

	t.Run("turn is checked before the cell", func(t *testing.T) {
		g := playingGame()
		g.Board[3] = First
		assert.ErrorIs(t, g.Legal(Second, 3), ErrNotYourTurn)
	})

	t.Run("legal move", func(t *testing.T) {
		g := playingGame()
		assert.NoError(t, g.Legal(First, 8))
	})
}

func TestGame_Apply(t *testing.T) {
	t.Run("continuing move flips the turn", func(t *testing.T) {
		g := playingGame()
		outcome := g.Apply(4)

		assert.False(t, outcome.Ended())
		assert.Equal(t, First, g.Board[4])
		assert.Equal(t, Second, g.Turn)
		assert.Equal(t, Playing, g.Status)
	})

	t.Run("diagonal win", func(t *testing.T) {
		g := playingGame()
		for _, idx := range []int{0, 1, 4, 2, 8} {
			require.NoError(t, g.Legal(g.Turn, idx))
			g.Apply(idx)
		}

		X, O, E := First, Second, None
		assert.Equal(t, Board{X, O, O, E, X, E, E, E, X}, g.Board)
		assert.Equal(t, Ended, g.Status)
		assert.Equal(t, First, Winner(g.Board))
		// The winning move does not pass the turn.
		assert.Equal(t, First, g.Turn)
	})

	t.Run("draw on a full board", func(t *testing.T) {
		g := playingGame()
		var outcome Outcome
		for _, idx := range []int{0, 1, 2, 4, 3, 5, 7, 6, 8} {
			require.NoError(t, g.Legal(g.Turn, idx))
			outcome = g.Apply(idx)
		}

		assert.True(t, outcome.Draw)
		assert.Equal(t, None, outcome.Winner)
		assert.Equal(t, Ended, g.Status)
		assert.True(t, IsDraw(g.Board))
	})
}

func TestGame_RestartAndAbandon(t *testing.T) {
	g := playingGame()
	g.Apply(0)
	g.Status = Ended

	g.Restart(Second)
	assert.Equal(t, Board{}, g.Board)
	assert.Equal(t, Second, g.Turn)
	assert.Equal(t, Second, g.Starting)
	assert.Equal(t, Playing, g.Status)

	g.Apply(4)
	g.Abandon()
	assert.Equal(t, Board{}, g.Board)
	assert.Equal(t, First, g.Turn)
	assert.Equal(t, First, g.Starting)
	assert.Equal(t, Waiting, g.Status)
}

// reachable walks every board reachable by alternating legal moves from
// both starting roles.
func reachable(t *testing.T) []Board {
	t.Helper()

	seen := make(map[Game]bool)
	var walk func(g Game)
	walk = func(g Game) {
		if seen[g] {
			return
		}
		seen[g] = true
		if g.Status != Playing {
			return
		}
		for idx := 0; idx < BoardSize; idx++ {
			if g.Legal(g.Turn, idx) != nil {
				continue
			}
			next := g
			next.Apply(idx)
			walk(next)
		}
	}

	for _, starting := range []Role{First, Second} {
		g := NewGame()
		g.Restart(starting)
		walk(g)
	}

	boards := make([]Board, 0, len(seen))
	for g := range seen {
		boards = append(boards, g.Board)
	}
	return boards
}

func TestReachableBoards_WinAndDrawExclusive(t *testing.T) {
	for _, b := range reachable(t) {
		won := Winner(b) != None
		drawn := IsDraw(b)
		assert.False(t, won && drawn, "board %v is both won and drawn", b)
	}
}

func TestWinner_LineOrderInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	boards := reachable(t)

	for i := 0; i < 20; i++ {
		perm := make([][3]int, len(lines))
		for j, k := range rng.Perm(len(lines)) {
			perm[j] = lines[k]
		}
		for _, b := range boards {
			require.Equal(t, Winner(b), winnerOver(b, perm), "board %v", b)
		}
	}
}
