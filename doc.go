// Package bedrocknet provides a WebSocket broker between a Minecraft Bedrock game client and
// local programs.
//
// The game client connects to the broker with the in-game `/connect ws://host:port` command.
// The broker then issues commands to the game client and receives the events it subscribed to,
// over the single connection.
//
// # Architecture
//
// The broker is made of four parts:
//
//   - The connection manager owns the listening socket and the one active connection.
//     A second game client is rejected while another one is connected.
//   - The request correlator tags each command with a UUID and matches the game client's
//     response to the caller waiting for it. Responses may arrive in any order.
//   - The event dispatcher keeps the handler registry and the game client's subscriptions
//     in sync. Subscriptions are sent again on every new connection.
//   - The message router classifies inbound frames by header.messagePurpose.
//
// # Quick Start
//
//	import (
//	    "github.com/luciancaetano/bedrocknet/events"
//	    "github.com/luciancaetano/bedrocknet/ws"
//	)
//
//	cfg, err := ws.NewConfig("localhost:8000", ws.WithCommandTimeout(30*time.Second))
//	if err != nil {
//	    return err
//	}
//	broker := ws.New(cfg)
//
//	broker.Register(ctx, "player_message", func(ctx context.Context, ev events.Event) {
//	    msg := ev.(*events.Message)
//	    if msg.Message == "ping" {
//	        broker.IssueCommand(ctx, "say pong")
//	    }
//	})
//
//	if err := broker.Start(ctx); err != nil {
//	    return err
//	}
//	defer broker.Stop(ctx)
//
// # Protocol Format
//
// Every frame is a JSON text message with a header and a body:
//
//	{
//	  "header": {"version": 1, "requestId": "<uuid>", "messageType": "commandRequest", "messagePurpose": "commandRequest"},
//	  "body":   {"version": 1, "origin": {"type": "player"}, "commandLine": "say hello", "overworld": "default"}
//	}
//
// Subscribe and unsubscribe requests carry {"eventName": "PlayerMessage"} as body. The game
// client answers commands with messagePurpose "commandResponse" (or "error") and the same
// requestId, and pushes events with messagePurpose "event".
//
// Maximum frame size: 10MB in both directions.
//
// # Rate Limiting
//
// Inbound frames go through a token bucket. When it is empty the receive loop waits instead of
// dropping frames or closing the connection:
//
//	// Default: 100 frames/second, burst 200
//	cfg, _ := ws.NewConfig(addr)
//
//	// Custom: 50 frames/second, burst 100
//	cfg, _ := ws.NewConfig(addr, ws.WithRateLimit(50, 100))
//
//	// Disabled
//	cfg, _ := ws.NewConfig(addr, ws.WithRateLimitConfig(ws.NoRateLimit()))
//
// # Keepalive
//
//   - Read timeout: 60s, reset on every frame and pong
//   - Write timeout: 10s
//   - Ping every 54 seconds
//   - 256-frame send buffer
//
// # Important
//
//   - Event handlers execute in goroutines (no execution order guarantee)
//   - Lifecycle listeners run synchronously and must not block
//   - The game client sends no Origin header; a custom CheckOriginFn must allow that
package bedrocknet
