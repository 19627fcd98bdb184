package agentpipe_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// echoScript answers every control request with success and every user
// message with one assistant frame and one result frame.
const echoScript = `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    *'"type":"control_request"'*)
      id=$(printf '%s\n' "$line" | sed -n 's/.*"request_id":"\([^"]*\)".*/\1/p')
      printf '{"type":"control_response","response":{"subtype":"success","request_id":"%s","response":{"child":"sh"}}}\n' "$id"
      ;;
    *'"type":"user"'*)
      echo '{"type":"assistant","message":{"role":"assistant","content":"pong"}}'
      echo '{"type":"result","subtype":"success","result":"pong"}'
      ;;
  esac
done
`

// echoChild writes echoScript to a temp dir and returns its path.
func echoChild(t *testing.T) string {
	t.Helper()

	return writeScript(t, echoScript)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "child.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))

	return path
}
