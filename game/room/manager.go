package room

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/tictactoe-rooms/game/engine"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrWrongPasskey = errors.New("wrong pass key")
	ErrRoomFull     = errors.New("room is full")
	ErrNotInRoom    = errors.New("not a member of this room")
	ErrGameNotEnded = errors.New("game has not ended")
	ErrAlreadyVoted = errors.New("already voted to replay")
	ErrIDExhausted  = errors.New("could not allocate a room id")
)

const (
	// IDLength is the number of characters in a room id.
	IDLength = 6

	idAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxIDAttempts = 64
)

// JoinResult describes a successful join.
type JoinResult struct {
	Role engine.Role
	// Rejoined is set when the connection was already a member and nothing
	// changed.
	Rejoined bool
	// Started is set when this join filled the room and began play.
	Started  bool
	Snapshot *Snapshot
}

// IdleRoom is a room nobody has touched within the idle window.
type IdleRoom struct {
	ID      string
	Members []string
}

// MoveResult is the room state right after a legal move.
type MoveResult struct {
	Board   engine.Board
	Turn    engine.Role
	Status  engine.Status
	Outcome engine.Outcome
	Members []Member
}

// RemoveResult reports what a departure did to the room.
type RemoveResult struct {
	RoomDestroyed bool
	HadMember     bool
	Remaining     int
	// Opponent is the connection left behind, if any.
	Opponent string
}

// Manager is the process-wide room registry. The map is guarded by mu and
// each room by its own lock. Lock order is room then registry; mu is never
// held while waiting for a room lock.
type Manager struct {
	rooms  map[string]*Room
	hasher Hasher
	logger *slog.Logger
	newID  func() string
	now    func() time.Time
	mu     sync.RWMutex
}

// NewManager creates an empty room registry.
func NewManager(hasher Hasher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		rooms:  make(map[string]*Room),
		hasher: hasher,
		logger: logger,
		newID:  generateRoomID,
		now:    time.Now,
	}
}

// CreateRoom hashes secret, allocates a fresh id and seats connID as the
// first player of a waiting room.
func (m *Manager) CreateRoom(secret, connID string) (string, error) {
	hash, err := m.hasher.Hash(secret)
	if err != nil {
		return "", fmt.Errorf("hash pass key: %w", err)
	}

	room := newRoom(hash, connID, m.now())

	m.mu.Lock()
	id, err := m.allocateID()
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	room.id = id
	m.rooms[id] = room
	m.mu.Unlock()

	m.logger.Info("room created", "room_id", id, "connection_id", connID)
	return id, nil
}

// allocateID requires m.mu held for writing.
func (m *Manager) allocateID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := m.newID()
		if _, taken := m.rooms[id]; !taken {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// JoinRoom seats connID in the room. A connection that is already a member
// gets its role back without any state change.
func (m *Manager) JoinRoom(roomID, secret, connID string) (*JoinResult, error) {
	room := m.lookup(roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	// The hash is immutable, so the slow comparison runs without the lock.
	if !m.hasher.Compare(room.passKeyHash, secret) {
		return nil, ErrWrongPasskey
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed {
		return nil, ErrRoomNotFound
	}

	room.lastActive = m.now()

	if role, ok := room.roleOf(connID); ok {
		return &JoinResult{Role: role, Rejoined: true, Snapshot: room.snapshot()}, nil
	}

	if len(room.members) >= MaxMembers {
		return nil, ErrRoomFull
	}

	role := room.freeRole()
	room.members = append(room.members, Member{ConnectionID: connID, Role: role})

	started := false
	if len(room.members) == MaxMembers && room.game.Status == engine.Waiting {
		room.game.Restart(room.game.Starting)
		room.clearVotes()
		started = true
	}

	m.logger.Info("player joined room",
		"room_id", roomID,
		"connection_id", connID,
		"role", role.String(),
		"started", started)

	return &JoinResult{Role: role, Started: started, Snapshot: room.snapshot()}, nil
}

// GetRoom returns a copy of the room's state.
func (m *Manager) GetRoom(roomID string) (*Snapshot, bool) {
	room, err := m.lockRoom(roomID)
	if err != nil {
		return nil, false
	}
	defer room.mu.Unlock()
	return room.snapshot(), true
}

// RoleOf returns the role connID holds in the room.
func (m *Manager) RoleOf(roomID, connID string) (engine.Role, bool) {
	room, err := m.lockRoom(roomID)
	if err != nil {
		return engine.None, false
	}
	defer room.mu.Unlock()
	return room.roleOf(connID)
}

// ApplyMove plays index for connID. Engine legality errors are returned
// unwrapped so callers can match them directly.
func (m *Manager) ApplyMove(roomID, connID string, index int) (*MoveResult, error) {
	room, err := m.lockRoom(roomID)
	if err != nil {
		return nil, err
	}
	defer room.mu.Unlock()

	role, ok := room.roleOf(connID)
	if !ok {
		return nil, ErrNotInRoom
	}
	if err := room.game.Legal(role, index); err != nil {
		return nil, err
	}

	outcome := room.game.Apply(index)
	room.lastActive = m.now()
	if outcome.Ended() {
		m.logger.Info("game ended", "room_id", roomID, "outcome", outcome.String())
	}

	members := make([]Member, len(room.members))
	copy(members, room.members)

	return &MoveResult{
		Board:   room.game.Board,
		Turn:    room.game.Turn,
		Status:  room.game.Status,
		Outcome: outcome,
		Members: members,
	}, nil
}

// RegisterReplayVote records connID's vote to play again and returns the
// vote count. At two votes the caller should follow up with ResetRoom.
func (m *Manager) RegisterReplayVote(roomID, connID string) (int, error) {
	room, err := m.lockRoom(roomID)
	if err != nil {
		return 0, err
	}
	defer room.mu.Unlock()

	if room.memberIndex(connID) < 0 {
		return 0, ErrNotInRoom
	}
	if room.game.Status != engine.Ended {
		return 0, ErrGameNotEnded
	}
	if _, voted := room.votes[connID]; voted {
		return 0, ErrAlreadyVoted
	}

	room.votes[connID] = struct{}{}
	room.lastActive = m.now()
	return len(room.votes), nil
}

// ResetRoom starts the next game once both members have voted. The role
// that waited last game opens this one. It reports false if the room is
// gone or no longer ready to restart.
func (m *Manager) ResetRoom(roomID string) (*Snapshot, bool) {
	room, err := m.lockRoom(roomID)
	if err != nil {
		return nil, false
	}
	defer room.mu.Unlock()

	if room.game.Status != engine.Ended || len(room.votes) < MaxMembers {
		return room.snapshot(), false
	}

	room.game.Restart(room.game.Starting.Other())
	room.clearVotes()
	room.lastActive = m.now()

	m.logger.Info("room reset for replay",
		"room_id", roomID,
		"starting_role", room.game.Starting.String())

	return room.snapshot(), true
}

// RemoveMember takes connID out of the room. The last departure destroys
// the room; any other departure abandons the current game and waits for a
// new partner.
func (m *Manager) RemoveMember(roomID, connID string) RemoveResult {
	room, err := m.lockRoom(roomID)
	if err != nil {
		return RemoveResult{}
	}
	defer room.mu.Unlock()

	i := room.memberIndex(connID)
	if i < 0 {
		return RemoveResult{Remaining: len(room.members)}
	}
	room.members = append(room.members[:i], room.members[i+1:]...)
	delete(room.votes, connID)

	if len(room.members) == 0 {
		room.closed = true
		m.mu.Lock()
		if m.rooms[roomID] == room {
			delete(m.rooms, roomID)
		}
		m.mu.Unlock()

		m.logger.Info("room destroyed", "room_id", roomID, "connection_id", connID)
		return RemoveResult{RoomDestroyed: true, HadMember: true}
	}

	room.game.Abandon()
	room.clearVotes()
	room.lastActive = m.now()

	m.logger.Info("player left room",
		"room_id", roomID,
		"connection_id", connID,
		"remaining", len(room.members))

	return RemoveResult{
		HadMember: true,
		Remaining: len(room.members),
		Opponent:  room.members[0].ConnectionID,
	}
}

// RoomsContaining lists, in id order, every room connID belongs to.
func (m *Manager) RoomsContaining(connID string) []string {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mu.RUnlock()

	var ids []string
	for _, room := range rooms {
		room.mu.Lock()
		if !room.closed && room.memberIndex(connID) >= 0 {
			ids = append(ids, room.id)
		}
		room.mu.Unlock()
	}

	sort.Strings(ids)
	return ids
}

// IdleRooms lists, in id order, the rooms whose last change is older than
// maxIdle, with the members seated at the time of the check.
func (m *Manager) IdleRooms(maxIdle time.Duration) []IdleRoom {
	cutoff := m.now().Add(-maxIdle)

	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mu.RUnlock()

	var idle []IdleRoom
	for _, room := range rooms {
		room.mu.Lock()
		if !room.closed && room.lastActive.Before(cutoff) {
			members := make([]string, len(room.members))
			for i, member := range room.members {
				members[i] = member.ConnectionID
			}
			idle = append(idle, IdleRoom{ID: room.id, Members: members})
		}
		room.mu.Unlock()
	}

	sort.Slice(idle, func(i, j int) bool { return idle[i].ID < idle[j].ID })
	return idle
}

// OpponentOf returns the other member's connection id.
func (m *Manager) OpponentOf(roomID, connID string) (string, bool) {
	room, err := m.lockRoom(roomID)
	if err != nil {
		return "", false
	}
	defer room.mu.Unlock()

	if room.memberIndex(connID) < 0 {
		return "", false
	}
	for _, member := range room.members {
		if member.ConnectionID != connID {
			return member.ConnectionID, true
		}
	}
	return "", false
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Close drops every room. Later lookups report ErrRoomNotFound.
func (m *Manager) Close() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	for _, room := range rooms {
		room.mu.Lock()
		room.closed = true
		room.mu.Unlock()
	}

	m.logger.Info("room manager closed", "rooms", len(rooms))
}

func (m *Manager) lookup(roomID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

// lockRoom returns the room with its lock held.
func (m *Manager) lockRoom(roomID string) (*Room, error) {
	room := m.lookup(roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// ValidID reports whether id has the shape of a room id.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// generateRoomID draws IDLength characters uniformly from idAlphabet.
func generateRoomID() string {
	// 252 is the largest multiple of 36 that fits in a byte.
	const limit = 252

	id := make([]byte, 0, IDLength)
	buf := make([]byte, 2*IDLength)
	for len(id) < IDLength {
		rand.Read(buf)
		for _, b := range buf {
			if b >= limit {
				continue
			}
			id = append(id, idAlphabet[int(b)%len(idAlphabet)])
			if len(id) == IDLength {
				break
			}
		}
	}
	return string(id)
}
