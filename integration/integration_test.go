//go:build integration

// Package integration runs agentpipe against a real child process.
//
// Set AGENTPIPE_CHILD to the child command line and run with the integration
// build tag:
//
//	AGENTPIPE_CHILD="/usr/local/bin/agent --stdio" go test -tags integration ./integration/...
package integration

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/wagiedev/agentpipe"
)

// childOptions returns the command option for the configured child, skipping
// the test when none is configured.
func childOptions(t *testing.T, opts ...agentpipe.Option) []agentpipe.Option {
	t.Helper()

	fields := strings.Fields(os.Getenv("AGENTPIPE_CHILD"))
	if len(fields) == 0 {
		t.Skip("AGENTPIPE_CHILD not set")
	}

	return append([]agentpipe.Option{
		agentpipe.WithCommand(fields[0], fields[1:]...),
		agentpipe.WithPermissionMode("acceptAll"),
	}, opts...)
}

// skipIfSpawnFailed skips the test if the child could not be started.
func skipIfSpawnFailed(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*agentpipe.SpawnError](err); ok {
		t.Skipf("child not runnable: %v", err)
	}
}

// contains42 checks if a string contains "42" in various formats.
func contains42(s string) bool {
	lower := strings.ToLower(s)

	return strings.Contains(lower, "42") ||
		strings.Contains(lower, "forty-two") ||
		strings.Contains(lower, "forty two")
}

// resultText returns the result field of a result frame.
func resultText(f agentpipe.Frame) string {
	s, _ := f["result"].(string)

	return s
}
