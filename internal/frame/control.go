package frame

import (
	"fmt"
	"maps"

	"github.com/wagiedev/agentpipe/internal/errors"
)

// ControlRequest is the envelope nested in a control_request frame.
//
// Wire format:
//
//	{
//	  "type": "control_request",
//	  "request_id": "01J...",
//	  "request": {"subtype": "can_use_tool", "tool_name": "Bash", ...}
//	}
type ControlRequest struct {
	RequestID string
	Subtype   string
	// Payload holds the request fields other than subtype.
	Payload map[string]any
}

// String returns the payload field as a string, or "" when absent or not a string.
func (r *ControlRequest) String(key string) string {
	s, _ := r.Payload[key].(string)

	return s
}

// Object returns the payload field as an object, or nil.
func (r *ControlRequest) Object(key string) map[string]any {
	m, _ := r.Payload[key].(map[string]any)

	return m
}

// ControlResponse is the envelope nested in a control_response frame.
//
// Wire format for success:
//
//	{"type": "control_response", "response": {"subtype": "success", "request_id": "...", "response": {...}}}
//
// Wire format for error:
//
//	{"type": "control_response", "response": {"subtype": "error", "request_id": "...", "error": "..."}}
type ControlResponse struct {
	RequestID string
	Subtype   string
	Body      map[string]any
	Error     string
}

// IsError reports whether the response carries an error.
func (r *ControlResponse) IsError() bool {
	return r.Subtype == SubtypeError
}

// AsControlRequest extracts the control envelope from a control_request frame.
func AsControlRequest(f Frame) (*ControlRequest, error) {
	if f.Kind() != KindControlRequest {
		return nil, &errors.ControlProtocolError{Message: fmt.Sprintf("not a control request: %q", f.Type())}
	}

	requestID, ok := f["request_id"].(string)
	if !ok || requestID == "" {
		return nil, &errors.ControlProtocolError{Message: "control request missing request_id"}
	}

	data, ok := f["request"].(map[string]any)
	if !ok {
		return &ControlRequest{RequestID: requestID}, &errors.ControlProtocolError{
			Message: "control request missing 'request' field",
		}
	}

	subtype, _ := data["subtype"].(string)

	payload := maps.Clone(data)
	delete(payload, "subtype")

	return &ControlRequest{
		RequestID: requestID,
		Subtype:   subtype,
		Payload:   payload,
	}, nil
}

// AsControlResponse extracts the control envelope from a control_response frame.
func AsControlResponse(f Frame) (*ControlResponse, error) {
	if f.Kind() != KindControlResponse {
		return nil, &errors.ControlProtocolError{Message: fmt.Sprintf("not a control response: %q", f.Type())}
	}

	data, ok := f["response"].(map[string]any)
	if !ok {
		return nil, &errors.ControlProtocolError{Message: "control response missing 'response' field"}
	}

	requestID, ok := data["request_id"].(string)
	if !ok || requestID == "" {
		return nil, &errors.ControlProtocolError{Message: "control response missing request_id"}
	}

	resp := &ControlResponse{RequestID: requestID}
	resp.Subtype, _ = data["subtype"].(string)
	resp.Body, _ = data["response"].(map[string]any)
	resp.Error, _ = data["error"].(string)

	return resp, nil
}

// NewUserMessage builds an outbound content frame carrying a prompt.
// An empty sessionID is encoded as null.
func NewUserMessage(prompt, sessionID string) Frame {
	var sid any
	if sessionID != "" {
		sid = sessionID
	}

	return Frame{
		"type":       TypeUser,
		"message":    map[string]any{"role": "user", "content": prompt},
		"session_id": sid,
	}
}

// NewControlRequest builds an outbound control_request frame.
// The params are merged next to the subtype inside the nested request object.
func NewControlRequest(requestID, subtype string, params map[string]any) Frame {
	request := make(map[string]any, len(params)+1)
	maps.Copy(request, params)
	request["subtype"] = subtype

	return Frame{
		"type":       TypeControlRequest,
		"request_id": requestID,
		"request":    request,
	}
}

// NewControlResponse builds the control_response frame for a response envelope.
func NewControlResponse(resp *ControlResponse) Frame {
	inner := map[string]any{
		"subtype":    resp.Subtype,
		"request_id": resp.RequestID,
	}

	if resp.IsError() {
		inner["error"] = resp.Error
	} else {
		body := resp.Body
		if body == nil {
			body = map[string]any{}
		}

		inner["response"] = body
	}

	return Frame{
		"type":     TypeControlResponse,
		"response": inner,
	}
}

// Success builds a success response envelope.
func Success(requestID string, body map[string]any) *ControlResponse {
	return &ControlResponse{RequestID: requestID, Subtype: SubtypeSuccess, Body: body}
}

// Failure builds an error response envelope.
func Failure(requestID, message string) *ControlResponse {
	return &ControlResponse{RequestID: requestID, Subtype: SubtypeError, Error: message}
}
