// Command bot plays tic-tac-toe against a human (or another bot) through the
// REST API. It either opens a room and prints its id, or joins an existing
// room, then plays perfect games until told to stop.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Play tic-tac-toe rooms automatically",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "room", Usage: "Join this room instead of creating one"},
			&cli.StringFlag{Name: "secret", Usage: "Room pass key", Required: true},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "Games to play before leaving (0 = until the opponent leaves)"},
			&cli.DurationFlag{Name: "poll", Value: 500 * time.Millisecond, Usage: "How often to check the room"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: runBot,
	}
}

func runBot(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("v") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	serverURL := cmd.String("url")
	secret := cmd.String("secret")
	logger.Info("connecting to game server", "url", serverURL)
	client := NewClient(serverURL)

	roomID := cmd.String("room")
	if roomID == "" {
		var err error
		roomID, err = client.CreateRoom(ctx, secret)
		if err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		logger.Info("room created, waiting for an opponent", "room_id", roomID)
	} else {
		if err := client.JoinRoom(ctx, roomID, secret); err != nil {
			return fmt.Errorf("join room: %w", err)
		}
		logger.Info("joined room", "room_id", roomID)
	}

	summary, err := Play(ctx, client, roomID, Options{
		Games:        cmd.Int("games"),
		PollInterval: cmd.Duration("poll"),
	}, logger)

	logger.Info("finished", "room_id", roomID, "games", summary.Games(),
		"wins", summary.Wins, "losses", summary.Losses, "draws", summary.Draws)

	switch {
	case errors.Is(err, ErrOpponentLeft), errors.Is(err, context.Canceled):
		// Leave quietly; the room may already be gone.
		leaveCtx := context.WithoutCancel(ctx)
		if leaveErr := client.Leave(leaveCtx, roomID); leaveErr != nil {
			logger.Debug("leave failed", "error", leaveErr)
		}
		return nil
	default:
		return err
	}
}
