package room

import (
	"sync"
	"time"

	"github.com/wricardo/tictactoe-rooms/game/engine"
)

// MaxMembers is the room capacity.
const MaxMembers = 2

// Member is one occupant of a room.
type Member struct {
	ConnectionID string      `json:"connectionId"`
	Role         engine.Role `json:"role"`
}

// Room is a two-player session. All fields except id and passKeyHash are
// guarded by mu; those two never change after the room is published.
type Room struct {
	id          string
	passKeyHash []byte

	mu         sync.Mutex
	members    []Member
	game       engine.Game
	votes      map[string]struct{}
	lastActive time.Time
	closed     bool
}

func newRoom(hash []byte, creator string, now time.Time) *Room {
	return &Room{
		passKeyHash: hash,
		lastActive:  now,
		members:     []Member{{ConnectionID: creator, Role: engine.First}},
		game:        engine.NewGame(),
		votes:       make(map[string]struct{}),
	}
}

// Snapshot is a copy of a room's state taken under its lock.
type Snapshot struct {
	ID        string        `json:"roomId"`
	Status    engine.Status `json:"status"`
	Board     engine.Board  `json:"board"`
	Turn      engine.Role   `json:"turn"`
	Starting  engine.Role   `json:"startingRole"`
	Members   []Member      `json:"members"`
	VoteCount int           `json:"voteCount"`

	// LastActive is when a member last changed the room.
	LastActive time.Time `json:"lastActive"`
}

// RoleOf returns the role held by connID in the snapshot.
func (s *Snapshot) RoleOf(connID string) (engine.Role, bool) {
	for _, m := range s.Members {
		if m.ConnectionID == connID {
			return m.Role, true
		}
	}
	return engine.None, false
}

// snapshot requires r.mu.
func (r *Room) snapshot() *Snapshot {
	members := make([]Member, len(r.members))
	copy(members, r.members)
	return &Snapshot{
		ID:         r.id,
		Status:     r.game.Status,
		Board:      r.game.Board,
		Turn:       r.game.Turn,
		Starting:   r.game.Starting,
		Members:    members,
		VoteCount:  len(r.votes),
		LastActive: r.lastActive,
	}
}

// memberIndex requires r.mu.
func (r *Room) memberIndex(connID string) int {
	for i, m := range r.members {
		if m.ConnectionID == connID {
			return i
		}
	}
	return -1
}

// roleOf requires r.mu.
func (r *Room) roleOf(connID string) (engine.Role, bool) {
	if i := r.memberIndex(connID); i >= 0 {
		return r.members[i].Role, true
	}
	return engine.None, false
}

// freeRole returns the seat a newcomer takes. requires r.mu.
func (r *Room) freeRole() engine.Role {
	if len(r.members) == 0 {
		return engine.First
	}
	return r.members[0].Role.Other()
}

// clearVotes requires r.mu.
func (r *Room) clearVotes() {
	for id := range r.votes {
		delete(r.votes, id)
	}
}
