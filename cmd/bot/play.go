package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wricardo/tictactoe-rooms/game/engine"
	"github.com/wricardo/tictactoe-rooms/game/service"
)

// ErrOpponentLeft is returned when the room drops back to waiting after at
// least one game was played.
var ErrOpponentLeft = errors.New("opponent left the room")

// Options controls a bot session.
type Options struct {
	// Games to play before leaving. Zero plays until the opponent leaves.
	Games        int
	PollInterval time.Duration
}

// Summary tallies finished games from the bot's side of the board.
type Summary struct {
	Wins, Losses, Draws int
}

func (s Summary) Games() int {
	return s.Wins + s.Losses + s.Draws
}

func (s *Summary) record(board engine.Board, me engine.Role) string {
	switch engine.Winner(board) {
	case me:
		s.Wins++
		return "won"
	case me.Other():
		s.Losses++
		return "lost"
	default:
		s.Draws++
		return "draw"
	}
}

// Play polls the room and moves whenever it is the bot's turn. The client
// must already be a member of roomID.
func Play(ctx context.Context, client *Client, roomID string, opts Options, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}

	var (
		summary Summary
		started bool
		voted   bool
	)

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		view, err := client.Room(ctx, roomID)
		if err != nil {
			return summary, err
		}
		if view.Role == nil {
			return summary, fmt.Errorf("not a member of room %s", roomID)
		}
		me := *view.Role

		switch view.Status {
		case engine.Waiting:
			if started {
				return summary, ErrOpponentLeft
			}

		case engine.Playing:
			started, voted = true, false
			if *view.Turn != me {
				break
			}
			index := BestMove(*view.Board, me)
			if index < 0 {
				break
			}
			logger.Debug("moving", "room_id", roomID, "role", me.String(), "index", index)
			if err := client.Move(ctx, roomID, index); err != nil {
				if !stale(err) {
					return summary, err
				}
				logger.Debug("room changed under us", "room_id", roomID, "error", err)
			}
			// Poll again right away; the opponent may already have replied.
			continue

		case engine.Ended:
			started = true
			if voted {
				break
			}
			result := summary.record(*view.Board, me)
			logger.Info("game over", "room_id", roomID, "role", me.String(), "result", result,
				"wins", summary.Wins, "losses", summary.Losses, "draws", summary.Draws)

			if opts.Games > 0 && summary.Games() >= opts.Games {
				if err := client.Leave(ctx, roomID); err != nil {
					return summary, err
				}
				return summary, nil
			}
			if err := client.Vote(ctx, roomID); err != nil && !stale(err) {
				return summary, err
			}
			voted = true
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		case <-ticker.C:
		}
	}
}

// stale reports whether err only means the opponent acted between our poll
// and our event; the next poll sees the new state.
func stale(err error) bool {
	var eventErr *EventError
	if !errors.As(err, &eventErr) {
		return false
	}
	return eventErr.Code == service.CodeGameNotStarted || eventErr.Code == service.CodeGameNotEnded
}
