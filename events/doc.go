// Package events describes the game events a Bedrock client can push over the connection.
//
// It provides three things the broker consumes:
//
//   - the fixed set of supported wire event names (Valid, Names)
//   - the translation between handler casing ("player_message") and wire casing
//     ("PlayerMessage") (WireName, HandlerName)
//   - the decoder turning a raw event body into a typed Event (Decode)
//
// Event is a closed set of types. Known event names decode to a specific type and
// everything else decodes to *Generic, which keeps the raw body:
//
//	switch ev := ev.(type) {
//	case *events.Message:
//	    fmt.Println(ev.Sender, ev.Message)
//	case *events.BlockEvent:
//	    fmt.Println(ev.Player.Name, ev.Block.ID)
//	case *events.Generic:
//	    fmt.Println(ev.Body.Raw)
//	}
package events
