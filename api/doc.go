// Package api provides HTTP handlers for the tic-tac-toe room server.
//
// The api package implements:
//   - An HTTP entry point for the same events the WebSocket carries
//   - Room lookups for members and for everyone else
//   - Explicit disconnect for HTTP clients
//   - WebSocket upgrade routing
//   - Health reporting
//
// Endpoints:
//
//   - GET /api/health - Server status, live rooms and sockets
//   - POST /api/events - Dispatch one event as a connection
//   - GET /api/rooms/{id}?connectionId= - Room view
//   - GET /api/connections/{id}/rooms - Rooms a connection is in
//   - DELETE /api/connections/{id} - Leave every room
//   - GET /ws - WebSocket upgrade
//
// Events:
//
// POST /api/events takes the WebSocket envelope plus the caller's id:
//
//	{
//	  "connectionId": "3f1c...",   // omitted on the first call
//	  "type": "make_move",
//	  "payload": {"roomId": "K3Q9ZB", "index": 4}
//	}
//
// and answers with the id to reuse and every message addressed to the
// caller, including room broadcasts:
//
//	{
//	  "connectionId": "3f1c...",
//	  "messages": [{"type": "move_applied", "payload": {...}}]
//	}
//
// Messages for other members are forwarded to the WebSocket hub. HTTP
// clients do not receive pushes and poll GET /api/rooms/{id} instead.
//
// Usage:
//
//	apiServer := api.NewServer(gameService, hub, logger)
//	http.ListenAndServe(":8080", apiServer)
//
// Error Handling:
//
// Game errors travel inside the messages list as {"type":"error"}. Request
// level failures return an HTTP status with a JSON body:
//
//	{
//	  "error": "room not found",
//	  "code": "ROOM_NOT_FOUND"
//	}
package api
