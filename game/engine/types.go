package engine

import (
	"encoding/json"
	"fmt"
)

// Role identifies one of the two seats at a board. None marks an empty cell.
type Role uint8

const (
	None Role = iota
	First
	Second
)

// BoardSize is the number of cells on the 3x3 grid.
const BoardSize = 9

// String returns the wire symbol for the role ("X", "O" or "").
func (r Role) String() string {
	switch r {
	case First:
		return "X"
	case Second:
		return "O"
	default:
		return ""
	}
}

// Other returns the opposing role. None has no opponent and maps to None.
func (r Role) Other() Role {
	switch r {
	case First:
		return Second
	case Second:
		return First
	default:
		return None
	}
}

// Valid reports whether r is one of the two playable roles.
func (r Role) Valid() bool {
	return r == First || r == Second
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	switch string(text) {
	case "X":
		*r = First
	case "O":
		*r = Second
	case "":
		*r = None
	default:
		return fmt.Errorf("unknown role %q", text)
	}
	return nil
}

// Board is the fixed 3x3 grid in row-major order.
type Board [BoardSize]Role

// Full reports whether no cell is empty.
func (b Board) Full() bool {
	for _, cell := range b {
		if cell == None {
			return false
		}
	}
	return true
}

// Status is the lifecycle state of a game.
type Status uint8

const (
	Waiting Status = iota
	Playing
	Ended
)

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Playing:
		return "playing"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "waiting":
		*s = Waiting
	case "playing":
		*s = Playing
	case "ended":
		*s = Ended
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Outcome is the result of a move: nothing yet, a winning role, or a draw.
type Outcome struct {
	Winner Role
	Draw   bool
}

// Ended reports whether the move finished the game.
func (o Outcome) Ended() bool {
	return o.Draw || o.Winner != None
}

// String returns "X", "O", "draw", or "" when the game continues.
func (o Outcome) String() string {
	if o.Draw {
		return "draw"
	}
	return o.Winner.String()
}

// MarshalJSON encodes a continuing game as null.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.Ended() {
		return []byte("null"), nil
	}
	return json.Marshal(o.String())
}
