package config

import "github.com/wagiedev/agentpipe/internal/permission"

// NormalizePermissionMode maps legacy permission mode names to current values.
//
// Legacy mappings:
//   - "acceptAll" -> "bypassPermissions"
//   - "prompt" -> "default"
func NormalizePermissionMode(mode string) string {
	switch mode {
	case "acceptAll":
		return string(permission.ModeBypassPermissions)
	case "prompt":
		return string(permission.ModeDefault)
	default:
		return mode
	}
}

// IsPermissionMode reports whether mode, after normalization, is a known mode.
func IsPermissionMode(mode string) bool {
	switch permission.Mode(NormalizePermissionMode(mode)) {
	case permission.ModeDefault, permission.ModeAcceptEdits, permission.ModePlan, permission.ModeBypassPermissions:
		return true
	default:
		return false
	}
}
