package service

import (
	"context"
	"time"

	"github.com/wricardo/tictactoe-rooms/game/room"
)

// GameService is the event boundary between transports and the room
// coordinator.
type GameService interface {
	// Event handling
	Handle(ctx context.Context, out Transport, connID string, ev Event)
	Disconnect(ctx context.Context, out Transport, connID string)
	CleanupIdleRooms(ctx context.Context, out Transport, maxIdle time.Duration) int

	// Lookups
	GetRoom(ctx context.Context, roomID, connID string) (*RoomView, error)
	RoomsOf(ctx context.Context, connID string) []string
	Stats(ctx context.Context) Stats
}

// Transport delivers outbound messages and tracks which connections listen
// to which room.
type Transport interface {
	Send(connID string, msg *Message)
	Broadcast(roomID string, msg *Message)
	Subscribe(connID, roomID string)
	Unsubscribe(connID, roomID string)
}

// RoomManager is the coordinator the service drives. *room.Manager
// implements it.
type RoomManager interface {
	CreateRoom(secret, connID string) (string, error)
	JoinRoom(roomID, secret, connID string) (*room.JoinResult, error)
	GetRoom(roomID string) (*room.Snapshot, bool)
	ApplyMove(roomID, connID string, index int) (*room.MoveResult, error)
	RegisterReplayVote(roomID, connID string) (int, error)
	ResetRoom(roomID string) (*room.Snapshot, bool)
	RemoveMember(roomID, connID string) room.RemoveResult
	RoomsContaining(connID string) []string
	IdleRooms(maxIdle time.Duration) []room.IdleRoom
	Count() int
}
