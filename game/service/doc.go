// Package service provides the event boundary for the room server.
//
// The service package implements:
//   - The inbound event taxonomy (create_room, join_room, make_move,
//     replay_vote, leave_room) and its enumerated dispatch
//   - Input validation for secrets, room ids and cell indexes
//   - Mapping of coordinator and engine errors to wire error codes
//   - Outbound fan-out through a Transport
//   - Disconnect handling for connections that go away
//
// Core Interfaces:
//
// GameService is the main service interface. Transports hand it events
// tagged with a connection id and a Transport to answer through.
// Transport is the delivery side: send to one connection, broadcast to a
// room, and track room subscriptions. RoomManager is the coordinator the
// service drives; *room.Manager implements it.
//
// Architecture:
//
// The service layer sits between the transports (WebSocket, HTTP, MCP) and
// the room coordinator. Malformed input is rejected here and never reaches
// the coordinator. Errors go to the originating connection only; successful
// moves and votes are broadcast to the room. A panic while handling an event
// is recovered and reported as INTERNAL_ERROR.
//
// Usage:
//
//	rooms := room.NewManager(room.NewBcryptHasher(0), logger)
//	svc := service.NewGameService(rooms, logger)
//
//	svc.Handle(ctx, hub, connID, service.Event{
//		Type:    service.EventCreateRoom,
//		Payload: json.RawMessage(`{"secret":"abcd"}`),
//	})
package service
