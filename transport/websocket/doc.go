// Package websocket provides WebSocket transport for the room server.
//
// The websocket package implements:
//   - Connection upgrade and per-connection ids
//   - Event intake: each text frame is one JSON event handed to the service
//   - Room subscriptions and fan-out (service.Transport)
//   - Keepalive with ping/pong and read deadlines
//   - Disconnect notification to the service when a socket goes away
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub owns every
// connection and every room subscription. Hub state lives in the Run
// goroutine and is reached only through channels. Each client has a read
// pump that feeds the service and a write pump that drains its send queue.
//
// Message Protocol:
//
// Frames are JSON envelopes of the form {"type": ..., "payload": {...}}.
//   - Incoming: {"type":"make_move","payload":{"roomId":"K3Q9ZB","index":4}}
//   - Outgoing: {"type":"move_applied","payload":{"board":[...],"turn":"O","outcome":null}}
//
// The first frame on every connection is {"type":"connected"} carrying the
// connection id the server assigned.
//
// Usage:
//
//	hub := websocket.NewHub(gameService, cfg.WebSocket, logger)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Connection Lifecycle:
//
// 1. Client connects and is registered with the hub
// 2. The hub announces the connection id
// 3. Client sends events, receives room messages
// 4. A client that falls behind on its send queue is dropped
// 5. Disconnection removes the connection from every room it was in
package websocket
