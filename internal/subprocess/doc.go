// Package subprocess provides the process-backed transport.
//
// Pump spawns the child and runs three loops under one errgroup: stdout is
// scanned into decoded frames, a single writer drains the outbound queue into
// stdin, and stderr lines are forwarded to a sink while the most recent output
// is kept for exit diagnostics. Cancelling the group context is the only
// shutdown signal the loops observe.
package subprocess
