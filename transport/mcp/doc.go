// Package mcp exposes the room game to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API (POST /api/events or GET /api/rooms/{id}), so an agent plays through
// exactly the same coordinator as browser clients.
//
// MCP Tools:
//   - create_room: Open a room with a secret and take the X seat
//   - join_room: Join a room by id and secret
//   - make_move: Mark a cell 0-8
//   - replay_vote: Vote to play again after a game ends
//   - leave_room: Leave a room
//   - room_state: Board, status and turn for a room
//   - game_instructions: Rules and a walkthrough
//
// Connections:
//
// Each Client plays as one connection id, generated when the client is
// built. Tools accept an optional connection_id to act as someone else,
// which lets two agents share the HTTP /mcp endpoint.
//
// Usage:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
