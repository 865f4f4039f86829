package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wricardo/tictactoe-rooms/game/engine"
	"github.com/wricardo/tictactoe-rooms/game/room"
)

const (
	MinSecretLength = 4
	MaxSecretLength = 20
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	rooms  RoomManager
	logger *slog.Logger
}

// NewGameService creates a new game service instance
func NewGameService(rooms RoomManager, logger *slog.Logger) GameService {
	if logger == nil {
		logger = slog.Default()
	}
	return &gameServiceImpl{
		rooms:  rooms,
		logger: logger,
	}
}

// Handle processes one inbound event for connID. Failures are sent to connID
// only; nothing is returned to the caller.
func (s *gameServiceImpl) Handle(ctx context.Context, out Transport, connID string, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while handling event",
				"event", ev.Type,
				"connection_id", connID,
				"panic", r)
			out.Send(connID, errorMessage(errInternal))
		}
	}()

	s.logger.Debug("handling event", "event", ev.Type, "connection_id", connID)

	if err := s.dispatch(ctx, out, connID, ev); err != nil {
		e := toError(err)
		if e.Code == CodeInternal {
			s.logger.Error("event failed", "event", ev.Type, "connection_id", connID, "error", err)
		}
		out.Send(connID, errorMessage(e))
	}
}

func (s *gameServiceImpl) dispatch(ctx context.Context, out Transport, connID string, ev Event) error {
	fields, err := decodePayload(ev.Payload)
	if err != nil {
		return err
	}

	switch ev.Type {
	case EventCreateRoom:
		return s.createRoom(out, connID, fields)
	case EventJoinRoom:
		return s.joinRoom(out, connID, fields)
	case EventMakeMove:
		return s.makeMove(out, connID, fields)
	case EventReplayVote:
		return s.replayVote(out, connID, fields)
	case EventLeaveRoom:
		return s.leaveRoom(out, connID, fields)
	default:
		return newError(CodeInvalidEvent, "unknown event type")
	}
}

func (s *gameServiceImpl) createRoom(out Transport, connID string, fields payload) error {
	secret, err := fields.secret()
	if err != nil {
		return err
	}

	roomID, err := s.rooms.CreateRoom(secret, connID)
	if err != nil {
		return err
	}

	out.Subscribe(connID, roomID)
	out.Send(connID, &Message{Type: MessageRoomCreated, Payload: RoomCreatedPayload{RoomID: roomID}})
	return nil
}

func (s *gameServiceImpl) joinRoom(out Transport, connID string, fields payload) error {
	roomID, err := fields.roomID()
	if err != nil {
		return err
	}
	secret, err := fields.secret()
	if err != nil {
		return err
	}

	joined, err := s.rooms.JoinRoom(roomID, secret, connID)
	if err != nil {
		return err
	}

	out.Subscribe(connID, roomID)

	// A rejoin changed nothing, so only the rejoiner needs the state.
	if joined.Rejoined {
		out.Send(connID, gameState(joined.Snapshot, joined.Role))
		return nil
	}
	if joined.Started {
		s.logger.Info("game started", "room_id", roomID, "starting_role", joined.Snapshot.Starting.String())
	}
	sendGameState(out, joined.Snapshot)
	return nil
}

func (s *gameServiceImpl) makeMove(out Transport, connID string, fields payload) error {
	roomID, err := fields.roomID()
	if err != nil {
		return err
	}
	index, err := fields.index()
	if err != nil {
		return err
	}

	result, err := s.rooms.ApplyMove(roomID, connID, index)
	if err != nil {
		return err
	}

	out.Broadcast(roomID, &Message{
		Type: MessageMoveApplied,
		Payload: MoveAppliedPayload{
			Board:   result.Board,
			Turn:    result.Turn,
			Outcome: result.Outcome,
		},
	})
	return nil
}

func (s *gameServiceImpl) replayVote(out Transport, connID string, fields payload) error {
	roomID, err := fields.roomID()
	if err != nil {
		return err
	}

	count, err := s.rooms.RegisterReplayVote(roomID, connID)
	if err != nil {
		return err
	}

	out.Broadcast(roomID, &Message{Type: MessageReplayVotes, Payload: ReplayVotesPayload{VoteCount: count}})

	if count < room.MaxMembers {
		return nil
	}
	if snap, ok := s.rooms.ResetRoom(roomID); ok {
		sendGameState(out, snap)
	}
	return nil
}

func (s *gameServiceImpl) leaveRoom(out Transport, connID string, fields payload) error {
	roomID, err := fields.roomID()
	if err != nil {
		return err
	}
	s.depart(out, connID, roomID)
	return nil
}

// Disconnect removes connID from every room it occupies and tells each
// remaining member.
func (s *gameServiceImpl) Disconnect(ctx context.Context, out Transport, connID string) {
	roomIDs := s.rooms.RoomsContaining(connID)
	for _, roomID := range roomIDs {
		s.depart(out, connID, roomID)
	}
	if len(roomIDs) > 0 {
		s.logger.Info("connection closed", "connection_id", connID, "rooms", len(roomIDs))
	}
}

// CleanupIdleRooms empties every room nobody has changed within maxIdle.
// Members are removed one at a time so the last one standing still hears
// opponent_left before the room goes away.
func (s *gameServiceImpl) CleanupIdleRooms(ctx context.Context, out Transport, maxIdle time.Duration) int {
	idle := s.rooms.IdleRooms(maxIdle)
	for _, r := range idle {
		for _, connID := range r.Members {
			s.depart(out, connID, r.ID)
		}
		s.logger.Info("idle room expired", "room_id", r.ID, "members", len(r.Members), "max_idle", maxIdle)
	}
	return len(idle)
}

func (s *gameServiceImpl) depart(out Transport, connID, roomID string) {
	res := s.rooms.RemoveMember(roomID, connID)
	if !res.HadMember {
		return
	}
	out.Unsubscribe(connID, roomID)
	if res.Opponent != "" {
		out.Send(res.Opponent, &Message{Type: MessageOpponentLeft, Payload: OpponentLeftPayload{}})
	}
}

// GetRoom returns connID's view of the room.
func (s *gameServiceImpl) GetRoom(ctx context.Context, roomID, connID string) (*RoomView, error) {
	id, err := normalizeRoomID(roomID)
	if err != nil {
		return nil, err
	}
	snap, ok := s.rooms.GetRoom(id)
	if !ok {
		return nil, toError(room.ErrRoomNotFound)
	}
	return newRoomView(snap, connID), nil
}

// RoomsOf lists the rooms connID belongs to.
func (s *gameServiceImpl) RoomsOf(ctx context.Context, connID string) []string {
	return s.rooms.RoomsContaining(connID)
}

// Stats reports live counters.
func (s *gameServiceImpl) Stats(ctx context.Context) Stats {
	return Stats{Rooms: s.rooms.Count()}
}

func sendGameState(out Transport, snap *room.Snapshot) {
	for _, member := range snap.Members {
		out.Send(member.ConnectionID, gameState(snap, member.Role))
	}
}

// payload holds the undecoded fields of an event payload.
type payload map[string]json.RawMessage

func decodePayload(raw json.RawMessage) (payload, error) {
	fields := payload{}
	if len(raw) == 0 || string(raw) == "null" {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, newError(CodeInvalidEvent, "payload must be a JSON object")
	}
	return fields, nil
}

func (p payload) secret() (string, error) {
	var secret string
	if err := json.Unmarshal(p["secret"], &secret); err != nil {
		return "", newError(CodeInvalidPasskey, "secret must be a string")
	}
	if n := utf8.RuneCountInString(secret); n < MinSecretLength || n > MaxSecretLength {
		return "", newError(CodeInvalidPasskey, "secret must be 4 to 20 characters")
	}
	return secret, nil
}

func (p payload) roomID() (string, error) {
	var id string
	if err := json.Unmarshal(p["roomId"], &id); err != nil {
		return "", newError(CodeInvalidRoomID, "roomId must be a string")
	}
	return normalizeRoomID(id)
}

func (p payload) index() (int, error) {
	raw, ok := p["index"]
	if !ok || string(raw) == "null" {
		return 0, newError(CodeInvalidCell, "index is required")
	}
	var index int
	if err := json.Unmarshal(raw, &index); err != nil {
		return 0, newError(CodeInvalidCell, "index must be an integer")
	}
	if index < 0 || index >= engine.BoardSize {
		return 0, newError(CodeInvalidCell, "index must be between 0 and 8")
	}
	return index, nil
}

func normalizeRoomID(id string) (string, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if !room.ValidID(id) {
		return "", newError(CodeInvalidRoomID, "roomId must be 6 letters or digits")
	}
	return id, nil
}
