package main

import "github.com/wricardo/tictactoe-rooms/game/engine"

// preference is the order cells are tried in when scores tie: centre,
// corners, then edges.
var preference = [engine.BoardSize]int{4, 0, 2, 6, 8, 1, 3, 5, 7}

// BestMove returns the cell a perfect player would mark for me, or -1 when
// the game is already over. Faster wins and slower losses score higher.
func BestMove(board engine.Board, me engine.Role) int {
	if engine.Winner(board) != engine.None || board.Full() {
		return -1
	}

	best, bestScore := -1, -1000
	for _, i := range preference {
		if board[i] != engine.None {
			continue
		}
		board[i] = me
		score := -negamax(board, me.Other(), 1)
		board[i] = engine.None

		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// negamax scores board from toMove's point of view.
func negamax(board engine.Board, toMove engine.Role, depth int) int {
	switch engine.Winner(board) {
	case toMove:
		return 10 - depth
	case toMove.Other():
		return depth - 10
	}
	if board.Full() {
		return 0
	}

	best := -1000
	for _, i := range preference {
		if board[i] != engine.None {
			continue
		}
		board[i] = toMove
		if score := -negamax(board, toMove.Other(), depth+1); score > best {
			best = score
		}
		board[i] = engine.None
	}
	return best
}
