package hook

import (
	"fmt"
	"strconv"
	"strings"
)

const callbackIDPrefix = "hook_"

// Registry is the ordered list of hook definitions for one session.
//
// The index of a definition is encoded in its wire callback id (hook_<index>),
// so the registry is frozen at construction and never reordered.
type Registry struct {
	defs []*Definition
}

// NewRegistry creates a registry from definitions in registration order.
// Nil definitions and definitions without a callback are dropped before
// indices are assigned.
func NewRegistry(defs ...*Definition) *Registry {
	kept := make([]*Definition, 0, len(defs))

	for _, d := range defs {
		if d == nil || d.Callback == nil {
			continue
		}

		kept = append(kept, d)
	}

	return &Registry{defs: kept}
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.defs)
}

// CallbackID returns the wire callback id for index i.
func CallbackID(i int) string {
	return callbackIDPrefix + strconv.Itoa(i)
}

// Lookup resolves a wire callback id to its definition.
func (r *Registry) Lookup(callbackID string) (*Definition, bool) {
	if r == nil {
		return nil, false
	}

	rest, ok := strings.CutPrefix(callbackID, callbackIDPrefix)
	if !ok {
		return nil, false
	}

	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 || i >= len(r.defs) {
		return nil, false
	}

	return r.defs[i], true
}

// InitConfig renders the hooks section of the initialize request:
// event name -> list of {matcher, hookCallbackIds, timeout}.
func (r *Registry) InitConfig() map[string]any {
	cfg := make(map[string]any, 6)
	if r == nil {
		return cfg
	}

	for i, d := range r.defs {
		matcher := map[string]any{
			"matcher":         nil,
			"hookCallbackIds": []string{CallbackID(i)},
		}

		if d.Matcher != "" {
			matcher["matcher"] = d.Matcher
		}

		if d.Timeout > 0 {
			matcher["timeout"] = d.Timeout.Seconds()
		}

		existing, _ := cfg[string(d.Event)].([]map[string]any)
		cfg[string(d.Event)] = append(existing, matcher)
	}

	return cfg
}

// String implements fmt.Stringer for debug logging.
func (r *Registry) String() string {
	return fmt.Sprintf("hook.Registry(%d)", r.Len())
}
