// Package frame implements the line-delimited JSON framing used on the child
// process's stdin and stdout.
//
// Every line is one JSON object with a top-level "type" discriminant. Decode
// and Encode are pure functions; the control envelopes nested inside
// control_request and control_response frames are parsed on demand with
// AsControlRequest and AsControlResponse.
package frame
