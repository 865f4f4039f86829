// Package config provides server configuration for the tic-tac-toe room server.
//
// The config package handles:
//   - Loading settings from environment variables
//   - Defaults for every setting
//   - Validation before the server starts
//
// Environment:
//
//	HOST, PORT             listen address (localhost:8080)
//	LOG_FORMAT             text or json
//	DEBUG                  debug logging
//	BCRYPT_COST            pass-key hashing cost
//	SHUTDOWN_TIMEOUT       graceful shutdown deadline
//	ROOM_IDLE_TIMEOUT      empty rooms unchanged this long (0 keeps them)
//	MCP_API_URL            server the stdio MCP mode tries first
//	WS_WRITE_WAIT          websocket write deadline
//	WS_PONG_WAIT           websocket read deadline between pongs
//	WS_MAX_MESSAGE_SIZE    largest inbound websocket frame
//	WS_SEND_BUFFER         per-connection outbound queue
//	NGROK_ENABLED          start a public tunnel
//	NGROK_AUTHTOKEN        tunnel credentials
//	NGROK_DOMAIN           custom tunnel domain
//
// A .env file, if present, is loaded by main before Load runs. Command-line
// flags override the loaded values.
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config
