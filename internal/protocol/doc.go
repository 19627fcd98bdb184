// Package protocol implements the control-protocol engine.
//
// An Engine owns one transport for its whole life. Connect starts the
// transport and a router goroutine, then performs the initialize handshake.
// The router sorts inbound frames: control responses complete pending
// requests in the correlator, control requests are answered by the dispatcher
// on their own goroutine, cancel requests abort an in-flight handler, and
// everything else is delivered in order on Messages.
//
// Example usage:
//
//	engine := protocol.NewEngine(log, &config.Options{
//		Command: &config.Command{Path: "agent", Args: []string{"--stream"}},
//	})
//	if err := engine.Connect(ctx); err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	_, err := engine.SendControlCommand(ctx, "interrupt", nil)
package protocol
