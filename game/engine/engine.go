package engine

import "errors"

var (
	ErrGameNotStarted = errors.New("game has not started")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrInvalidCell    = errors.New("cell index out of range")
	ErrCellTaken      = errors.New("cell already taken")
)

// lines lists every winning triple: rows, then columns, then diagonals.
var lines = [8][3]int{
	{0, 1, 2}, // top row
	{3, 4, 5}, // middle row
	{6, 7, 8}, // bottom row
	{0, 3, 6}, // left column
	{1, 4, 7}, // middle column
	{2, 5, 8}, // right column
	{0, 4, 8}, // diagonal
	{2, 4, 6}, // anti-diagonal
}

// Winner returns the role holding a complete line, or None.
func Winner(board Board) Role {
	return winnerOver(board, lines[:])
}

func winnerOver(board Board, triples [][3]int) Role {
	for _, t := range triples {
		a, b, c := t[0], t[1], t[2]
		if board[a] != None && board[a] == board[b] && board[b] == board[c] {
			return board[a]
		}
	}
	return None
}

// IsDraw reports whether the board is full and nobody has won.
func IsDraw(board Board) bool {
	return board.Full() && Winner(board) == None
}

// Game is the rules-relevant part of a room: the grid, whose move it is,
// the lifecycle status, and which role opened the current game.
type Game struct {
	Board    Board
	Turn     Role
	Status   Status
	Starting Role
}

// NewGame returns an empty game waiting for its second player.
func NewGame() Game {
	return Game{
		Turn:     First,
		Status:   Waiting,
		Starting: First,
	}
}

// Legal checks whether actor may play index right now.
func (g *Game) Legal(actor Role, index int) error {
	if g.Status != Playing {
		return ErrGameNotStarted
	}
	if actor != g.Turn {
		return ErrNotYourTurn
	}
	if index < 0 || index >= BoardSize {
		return ErrInvalidCell
	}
	if g.Board[index] != None {
		return ErrCellTaken
	}
	return nil
}

// Apply places the current turn's mark at index. Callers must check Legal
// first. A win or draw ends the game; otherwise the turn passes.
func (g *Game) Apply(index int) Outcome {
	mover := g.Turn
	g.Board[index] = mover

	if winner := Winner(g.Board); winner != None {
		g.Status = Ended
		return Outcome{Winner: winner}
	}
	if g.Board.Full() {
		g.Status = Ended
		return Outcome{Draw: true}
	}

	g.Turn = mover.Other()
	return Outcome{}
}

// Restart clears the board and begins a new game opened by starting.
func (g *Game) Restart(starting Role) {
	g.Board = Board{}
	g.Starting = starting
	g.Turn = starting
	g.Status = Playing
}

// Abandon clears the board and returns to waiting for a partner.
func (g *Game) Abandon() {
	g.Board = Board{}
	g.Starting = First
	g.Turn = First
	g.Status = Waiting
}
