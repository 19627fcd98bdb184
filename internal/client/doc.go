// Package client implements the interactive Client for multi-turn sessions
// with a child process.
//
// A Client wraps a protocol.Engine and adds:
//   - message iterators that stop at the end of a turn or of the stream
//   - typed control commands (interrupt, set_model, set_permission_mode,
//     rewind_files, get_mcp_status)
//   - streaming of prompts from an iterator
//
// The caller's context bounds only the handshake. The read loop runs in an
// errgroup until Close.
package client
