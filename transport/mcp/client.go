package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/tictactoe-rooms/game/service"
)

// Client is a thin MCP client that proxies to the REST API. It plays as a
// single connection whose id is fixed for the client's lifetime.
type Client struct {
	baseURL      string
	connectionID string
	httpClient   *http.Client
	mcpServer    *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		connectionID: uuid.NewString(),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tic-Tac-Toe Rooms",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tic-Tac-Toe Rooms - MCP Interface

This is a thin client that proxies all requests to the REST API server.
Two players share a room protected by a secret and take turns on a 3x3 board.

AVAILABLE TOOLS:
- create_room: Open a room with a secret; you play X
- join_room: Join a room by id and secret
- make_move: Mark a cell (0-8, row by row)
- replay_vote: Vote to play again once a game has ended
- leave_room: Leave a room
- room_state: Look at a room's board and whose turn it is
- game_instructions: Rules and a walkthrough

Each MCP session plays as one connection. Pass connection_id to act as a
different player.`),
	)

	// Register all tools
	c.registerTools()
}

func connectionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Act as this connection instead of the client's own (optional)",
	}
}

func roomIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Six character room id, e.g. K3Q9ZB",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Rooms
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a room protected by a secret. You take the X seat and wait for an opponent.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"secret": map[string]interface{}{
					"type":        "string",
					"description": "Pass key the opponent must supply (4-20 characters)",
				},
				"connection_id": connectionIDProperty(),
			},
			Required: []string{"secret"},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_room",
		Description: "Join a room by id and secret. The game starts when the second player joins.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": roomIDProperty(),
				"secret": map[string]interface{}{
					"type":        "string",
					"description": "The room's pass key",
				},
				"connection_id": connectionIDProperty(),
			},
			Required: []string{"room_id", "secret"},
		},
	}, c.handleJoinRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_room",
		Description: "Leave a room. The current game is abandoned and the opponent waits for a new partner.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id":       roomIDProperty(),
				"connection_id": connectionIDProperty(),
			},
			Required: []string{"room_id"},
		},
	}, c.handleLeaveRoom)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "make_move",
		Description: "Place your mark on a cell. Cells are numbered 0-8 left to right, top to bottom.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": roomIDProperty(),
				"index": map[string]interface{}{
					"type":        "integer",
					"minimum":     0,
					"maximum":     8,
					"description": "Cell to mark",
				},
				"connection_id": connectionIDProperty(),
			},
			Required: []string{"room_id", "index"},
		},
	}, c.handleMakeMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "replay_vote",
		Description: "Vote to play again after a game ends. A new game starts when both players vote; the other player opens.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id":       roomIDProperty(),
				"connection_id": connectionIDProperty(),
			},
			Required: []string{"room_id"},
		},
	}, c.handleReplayVote)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_state",
		Description: "Show a room's board, status and whose turn it is. Use this to see your opponent's moves.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id":       roomIDProperty(),
				"connection_id": connectionIDProperty(),
			},
			Required: []string{"room_id"},
		},
	}, c.handleRoomState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules and a walkthrough of a full game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ConnectionID is the id this client plays as.
func (c *Client) ConnectionID() string {
	return c.connectionID
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	target := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			if code := errResp["code"]; code != "" {
				return fmt.Errorf("%s: %s", code, msg)
			}
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Wire views decoded from the REST API.

type wireMessage struct {
	Type    service.MessageType `json:"type"`
	Payload json.RawMessage     `json:"payload"`
}

type eventResponse struct {
	ConnectionID string        `json:"connectionId"`
	Messages     []wireMessage `json:"messages"`
}

type gameStateView struct {
	RoomID string    `json:"roomId"`
	Board  [9]string `json:"board"`
	Turn   string    `json:"turn"`
	Role   string    `json:"role"`
	Status string    `json:"status"`
}

type moveView struct {
	Board   [9]string `json:"board"`
	Turn    string    `json:"turn"`
	Outcome *string   `json:"outcome"`
}

type roomView struct {
	RoomID    string     `json:"roomId"`
	Status    string     `json:"status"`
	Members   int        `json:"members"`
	Board     *[9]string `json:"board"`
	Turn      *string    `json:"turn"`
	Role      *string    `json:"role"`
	VoteCount *int       `json:"voteCount"`
}

// sendEvent posts one event and returns the messages addressed to us. A
// game error in the reply is returned as an error.
func (c *Client) sendEvent(ctx context.Context, connID string, typ service.EventType, payload interface{}) ([]wireMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var resp eventResponse
	err = c.apiCall(ctx, "POST", "/api/events", map[string]interface{}{
		"connectionId": connID,
		"type":         typ,
		"payload":      json.RawMessage(raw),
	}, &resp)
	if err != nil {
		return nil, err
	}

	for _, msg := range resp.Messages {
		if msg.Type != service.MessageError {
			continue
		}
		var e service.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			return nil, fmt.Errorf("decode error message: %w", err)
		}
		return nil, fmt.Errorf("%s: %s", e.Code, e.Message)
	}
	return resp.Messages, nil
}

func findMessage(msgs []wireMessage, typ service.MessageType, v interface{}) bool {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == typ {
			return json.Unmarshal(msgs[i].Payload, v) == nil
		}
	}
	return false
}

// arguments returns the call's arguments and the connection to act as.
func (c *Client) arguments(request mcp.CallToolRequest) (map[string]interface{}, string) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	connID, _ := args["connection_id"].(string)
	if connID == "" {
		connID = c.connectionID
	}
	return args, connID
}

// Tool handlers

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, connID := c.arguments(request)
	secret, _ := args["secret"].(string)

	msgs, err := c.sendEvent(ctx, connID, service.EventCreateRoom, map[string]interface{}{"secret": secret})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var created service.RoomCreatedPayload
	if !findMessage(msgs, service.MessageRoomCreated, &created) {
		return mcp.NewToolResultError("server did not confirm the room"), nil
	}

	result := fmt.Sprintf("Created room: %s\nYou play X. Share the room id and secret with your opponent, then check room_state until the game starts.\n", created.RoomID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleJoinRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, connID := c.arguments(request)
	roomID, _ := args["room_id"].(string)
	secret, _ := args["secret"].(string)

	msgs, err := c.sendEvent(ctx, connID, service.EventJoinRoom, map[string]interface{}{
		"roomId": roomID,
		"secret": secret,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state gameStateView
	if !findMessage(msgs, service.MessageGameState, &state) {
		return mcp.NewToolResultError("server did not send the game state"), nil
	}

	return mcp.NewToolResultText("Joined room " + state.RoomID + "\n\n" + formatGameState(&state)), nil
}

func (c *Client) handleMakeMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, connID := c.arguments(request)
	roomID, _ := args["room_id"].(string)

	// JSON numbers arrive as float64; send them back as the integer the
	// server expects.
	var index interface{} = args["index"]
	if f, ok := index.(float64); ok && f == float64(int(f)) {
		index = int(f)
	}

	msgs, err := c.sendEvent(ctx, connID, service.EventMakeMove, map[string]interface{}{
		"roomId": roomID,
		"index":  index,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var move moveView
	if !findMessage(msgs, service.MessageMoveApplied, &move) {
		return mcp.NewToolResultError("server did not confirm the move"), nil
	}

	return mcp.NewToolResultText(formatMove(&move)), nil
}

func (c *Client) handleReplayVote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, connID := c.arguments(request)
	roomID, _ := args["room_id"].(string)

	msgs, err := c.sendEvent(ctx, connID, service.EventReplayVote, map[string]interface{}{"roomId": roomID})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state gameStateView
	if findMessage(msgs, service.MessageGameState, &state) {
		return mcp.NewToolResultText("Both players voted. New game!\n\n" + formatGameState(&state)), nil
	}

	var votes service.ReplayVotesPayload
	findMessage(msgs, service.MessageReplayVotes, &votes)
	return mcp.NewToolResultText(fmt.Sprintf("Vote recorded (%d/2). Waiting for your opponent to vote.\n", votes.VoteCount)), nil
}

func (c *Client) handleLeaveRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, connID := c.arguments(request)
	roomID, _ := args["room_id"].(string)

	if _, err := c.sendEvent(ctx, connID, service.EventLeaveRoom, map[string]interface{}{"roomId": roomID}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Left room %s\n", strings.ToUpper(strings.TrimSpace(roomID)))), nil
}

func (c *Client) handleRoomState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, connID := c.arguments(request)
	roomID, _ := args["room_id"].(string)

	var view roomView
	path := fmt.Sprintf("/api/rooms/%s?connectionId=%s", url.PathEscape(strings.TrimSpace(roomID)), url.QueryEscape(connID))
	if err := c.apiCall(ctx, "GET", path, nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomView(&view)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

const gameInstructions = `TIC-TAC-TOE ROOMS

RULES
- Two players, X and O, share a 3x3 board.
- X moves first in the first game of a room.
- Players alternate marking one empty cell per turn.
- Three of your marks in a row, column or diagonal wins.
- A full board with no line is a draw.

BOARD
Cells are numbered row by row:

   0 | 1 | 2
  ---+---+---
   3 | 4 | 5
  ---+---+---
   6 | 7 | 8

ROOMS
- create_room opens a room with a secret (4-20 characters). You are X.
- Your opponent joins with join_room using the room id and the same secret.
- The game starts as soon as the second player joins.
- If a player leaves, the game is abandoned and the room waits for a new
  opponent. The last player to leave closes the room.

REPLAYS
- After a win or draw, both players call replay_vote.
- The new game starts on the second vote, and the player who moved second
  last game opens this one.

ERRORS
NOT_YOUR_TURN, CELL_TAKEN, GAME_NOT_STARTED, ROOM_FULL, WRONG_PASSKEY and
the other codes are returned as tool errors. Nothing changes on an error;
fix the input and try again.

TIPS
- Call room_state to see your opponent's latest move.
- The centre (4) and corners (0, 2, 6, 8) take part in the most lines.`

// Formatting helpers

func formatBoard(board [9]string) string {
	var b strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			b.WriteString("  ---+---+---\n")
		}
		cells := make([]string, 3)
		for col := 0; col < 3; col++ {
			i := row*3 + col
			cells[col] = board[i]
			if cells[col] == "" {
				cells[col] = fmt.Sprintf("%d", i)
			}
		}
		fmt.Fprintf(&b, "   %s | %s | %s\n", cells[0], cells[1], cells[2])
	}
	return b.String()
}

func formatTurn(turn, role string) string {
	if role != "" && turn == role {
		return fmt.Sprintf("Turn: %s (you)", turn)
	}
	return fmt.Sprintf("Turn: %s", turn)
}

func formatGameState(state *gameStateView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s\n", state.RoomID)
	fmt.Fprintf(&b, "You play: %s\n", state.Role)
	fmt.Fprintf(&b, "Status: %s\n", state.Status)
	if state.Status == "playing" {
		b.WriteString(formatTurn(state.Turn, state.Role) + "\n")
	}
	b.WriteString("\n" + formatBoard(state.Board))
	return b.String()
}

func formatMove(move *moveView) string {
	var b strings.Builder
	b.WriteString("✓ Move applied\n\n")
	b.WriteString(formatBoard(move.Board))
	b.WriteString("\n")

	switch {
	case move.Outcome == nil:
		fmt.Fprintf(&b, "Turn: %s\n", move.Turn)
	case *move.Outcome == "draw":
		b.WriteString("🤝 DRAW! Use replay_vote to play again.\n")
	default:
		fmt.Fprintf(&b, "🎉 %s WINS! Use replay_vote to play again.\n", *move.Outcome)
	}
	return b.String()
}

func formatRoomView(view *roomView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s\n", view.RoomID)
	fmt.Fprintf(&b, "Status: %s\n", view.Status)
	fmt.Fprintf(&b, "Players: %d/2\n", view.Members)

	if view.Role == nil {
		b.WriteString("\nYou are not in this room.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "You play: %s\n", *view.Role)
	switch {
	case view.Status == "playing" && view.Turn != nil:
		b.WriteString(formatTurn(*view.Turn, *view.Role) + "\n")
	case view.Status == "ended" && view.VoteCount != nil:
		fmt.Fprintf(&b, "Replay votes: %d/2\n", *view.VoteCount)
	case view.Status == "waiting":
		b.WriteString("Waiting for an opponent to join.\n")
	}
	if view.Board != nil {
		b.WriteString("\n" + formatBoard(*view.Board))
	}
	return b.String()
}
