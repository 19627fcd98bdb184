package frame

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/wagiedev/agentpipe/internal/errors"
)

// Wire-level frame types.
const (
	TypeUser            = "user"
	TypeAssistant       = "assistant"
	TypeResult          = "result"
	TypeSystem          = "system"
	TypeControlRequest  = "control_request"
	TypeControlResponse = "control_response"
	TypeControlCancel   = "control_cancel_request"
)

// Control response subtypes.
const (
	SubtypeSuccess = "success"
	SubtypeError   = "error"
)

// Kind classifies a frame for routing.
type Kind int

const (
	// KindUnknown is a frame without a string "type" field.
	KindUnknown Kind = iota
	// KindContent is any conversational frame (user, assistant, result, ...).
	KindContent
	// KindSystem is a system frame.
	KindSystem
	// KindControlRequest is a control_request frame.
	KindControlRequest
	// KindControlResponse is a control_response frame.
	KindControlResponse
	// KindControlCancel is a control_cancel_request frame.
	KindControlCancel
)

func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindSystem:
		return "system"
	case KindControlRequest:
		return "control_request"
	case KindControlResponse:
		return "control_response"
	case KindControlCancel:
		return "control_cancel"
	default:
		return "unknown"
	}
}

// Frame is one decoded line of the protocol.
// Frames are treated as immutable once decoded or built.
type Frame map[string]any

// Type returns the top-level "type" field, or "" when it is absent.
func (f Frame) Type() string {
	t, _ := f["type"].(string)

	return t
}

// Kind classifies the frame by its type field.
func (f Frame) Kind() Kind {
	switch t := f.Type(); t {
	case "":
		return KindUnknown
	case TypeSystem:
		return KindSystem
	case TypeControlRequest:
		return KindControlRequest
	case TypeControlResponse:
		return KindControlResponse
	case TypeControlCancel:
		return KindControlCancel
	default:
		return KindContent
	}
}

// Subtype returns the top-level "subtype" field, if any.
func (f Frame) Subtype() string {
	s, _ := f["subtype"].(string)

	return s
}

// IsResult reports whether the frame terminates a turn.
func (f Frame) IsResult() bool {
	return f.Type() == TypeResult
}

// Clone returns a shallow copy of the frame.
func (f Frame) Clone() Frame {
	return maps.Clone(f)
}

// Decode parses a single line into a Frame.
//
// Returns a *errors.DecodeError if the line is not a JSON object.
func Decode(line []byte) (Frame, error) {
	line = bytes.TrimSpace(line)

	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, &errors.DecodeError{Line: string(line), Err: err}
	}

	if f == nil {
		return nil, &errors.DecodeError{
			Line: string(line),
			Err:  fmt.Errorf("expected JSON object"),
		}
	}

	return f, nil
}

// Encode serializes a frame to a single newline-terminated JSON line.
func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Type(), err)
	}

	return append(data, '\n'), nil
}
