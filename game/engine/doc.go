// Package engine provides the rules of the 3x3 game.
//
// The engine package implements:
//   - The two playable roles (X moves first in a fresh room)
//   - Win detection over the eight fixed lines
//   - Draw detection on a full board
//   - Move legality checks and move application
//
// Core Types:
//
// Game holds the board, the role whose move is legal, the lifecycle Status
// and the role that opened the current game. Outcome describes what a move
// produced. The package owns no rooms and performs no I/O; room state lives
// in the room package, which calls into Game while holding the room lock.
//
// Usage:
//
//	g := engine.NewGame()
//	g.Restart(engine.First)
//
//	if err := g.Legal(engine.First, 4); err != nil {
//		return err
//	}
//	outcome := g.Apply(4)
//	if outcome.Ended() {
//		fmt.Println("result:", outcome)
//	}
package engine
