package service

import (
	"errors"

	"github.com/wricardo/tictactoe-rooms/game/engine"
	"github.com/wricardo/tictactoe-rooms/game/room"
)

// Code is a machine-readable error code sent to clients.
type Code string

const (
	CodeRoomNotFound   Code = "ROOM_NOT_FOUND"
	CodeWrongPasskey   Code = "WRONG_PASSKEY"
	CodeRoomFull       Code = "ROOM_FULL"
	CodeNotYourTurn    Code = "NOT_YOUR_TURN"
	CodeCellTaken      Code = "CELL_TAKEN"
	CodeGameNotStarted Code = "GAME_NOT_STARTED"
	CodeInvalidPasskey Code = "INVALID_PASSKEY"
	CodeInvalidRoomID  Code = "INVALID_ROOM_ID"
	CodeInvalidCell    Code = "INVALID_CELL"
	CodeNotInRoom      Code = "NOT_IN_ROOM"
	CodeGameNotEnded   Code = "GAME_NOT_ENDED"
	CodeAlreadyVoted   Code = "ALREADY_VOTED"
	CodeInvalidEvent   Code = "INVALID_EVENT"
	CodeInternal       Code = "INTERNAL_ERROR"
)

// Error is a failure addressed to the connection that caused it.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var errInternal = newError(CodeInternal, "internal error")

var errorCodes = []struct {
	err     error
	code    Code
	message string
}{
	{room.ErrRoomNotFound, CodeRoomNotFound, "room not found"},
	{room.ErrWrongPasskey, CodeWrongPasskey, "wrong pass key"},
	{room.ErrRoomFull, CodeRoomFull, "room is full"},
	{room.ErrNotInRoom, CodeNotInRoom, "you are not in this room"},
	{room.ErrGameNotEnded, CodeGameNotEnded, "game has not ended"},
	{room.ErrAlreadyVoted, CodeAlreadyVoted, "you already voted to replay"},
	{engine.ErrGameNotStarted, CodeGameNotStarted, "game is not in progress"},
	{engine.ErrNotYourTurn, CodeNotYourTurn, "not your turn"},
	{engine.ErrInvalidCell, CodeInvalidCell, "cell index must be between 0 and 8"},
	{engine.ErrCellTaken, CodeCellTaken, "cell is already taken"},
}

// toError maps a coordinator or engine error to its wire form. Unknown
// errors become INTERNAL_ERROR without leaking their text.
func toError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return newError(c.code, c.message)
		}
	}
	return errInternal
}
