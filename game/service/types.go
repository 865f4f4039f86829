package service

import (
	"encoding/json"

	"github.com/wricardo/tictactoe-rooms/game/engine"
	"github.com/wricardo/tictactoe-rooms/game/room"
)

// EventType names an inbound event.
type EventType string

const (
	EventCreateRoom EventType = "create_room"
	EventJoinRoom   EventType = "join_room"
	EventMakeMove   EventType = "make_move"
	EventReplayVote EventType = "replay_vote"
	EventLeaveRoom  EventType = "leave_room"
)

// Event is an inbound envelope. Payload is decoded per type.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType names an outbound message.
type MessageType string

const (
	MessageConnected    MessageType = "connected"
	MessageRoomCreated  MessageType = "room_created"
	MessageGameState    MessageType = "game_state"
	MessageMoveApplied  MessageType = "move_applied"
	MessageReplayVotes  MessageType = "replay_votes"
	MessageOpponentLeft MessageType = "opponent_left"
	MessageError        MessageType = "error"
)

// Message is an outbound envelope.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

// ConnectedPayload announces the id the transport assigned to a connection.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// RoomCreatedPayload is sent to the creator of a room.
type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

// GameStatePayload is one member's view of a room.
type GameStatePayload struct {
	RoomID string        `json:"roomId"`
	Board  engine.Board  `json:"board"`
	Turn   engine.Role   `json:"turn"`
	Role   engine.Role   `json:"role"`
	Status engine.Status `json:"status"`
}

// MoveAppliedPayload is broadcast after every legal move. Outcome is null
// while the game continues.
type MoveAppliedPayload struct {
	Board   engine.Board   `json:"board"`
	Turn    engine.Role    `json:"turn"`
	Outcome engine.Outcome `json:"outcome"`
}

// ReplayVotesPayload is broadcast after every accepted replay vote.
type ReplayVotesPayload struct {
	VoteCount int `json:"voteCount"`
}

// OpponentLeftPayload carries no fields.
type OpponentLeftPayload struct{}

// ErrorPayload is the body of an error message.
type ErrorPayload struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// RoomView is what a lookup returns. Members only see Board, Turn, Role and
// VoteCount; everyone else gets the public summary.
type RoomView struct {
	RoomID    string        `json:"roomId"`
	Status    engine.Status `json:"status"`
	Members   int           `json:"members"`
	Board     *engine.Board `json:"board,omitempty"`
	Turn      *engine.Role  `json:"turn,omitempty"`
	Role      *engine.Role  `json:"role,omitempty"`
	VoteCount *int          `json:"voteCount,omitempty"`
}

// Stats summarizes the live server state.
type Stats struct {
	Rooms int `json:"rooms"`
}

func newRoomView(snap *room.Snapshot, connID string) *RoomView {
	view := &RoomView{
		RoomID:  snap.ID,
		Status:  snap.Status,
		Members: len(snap.Members),
	}
	if role, ok := snap.RoleOf(connID); ok {
		board, turn, votes := snap.Board, snap.Turn, snap.VoteCount
		view.Board = &board
		view.Turn = &turn
		view.Role = &role
		view.VoteCount = &votes
	}
	return view
}

func gameState(snap *room.Snapshot, role engine.Role) *Message {
	return &Message{
		Type: MessageGameState,
		Payload: GameStatePayload{
			RoomID: snap.ID,
			Board:  snap.Board,
			Turn:   snap.Turn,
			Role:   role,
			Status: snap.Status,
		},
	}
}

func errorMessage(err *Error) *Message {
	return &Message{
		Type:    MessageError,
		Payload: ErrorPayload{Code: err.Code, Message: err.Message},
	}
}
