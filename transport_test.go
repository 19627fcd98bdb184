package agentpipe_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/agentpipe"
)

func TestNewProcessTransport(t *testing.T) {
	const script = `#!/bin/sh
echo 'starting' >&2
while IFS= read -r line; do
  case "$line" in
    *'"type":"control_request"'*)
      id=$(printf '%s\n' "$line" | sed -n 's/.*"request_id":"\([^"]*\)".*/\1/p')
      printf '{"type":"control_response","response":{"subtype":"success","request_id":"%s","response":{}}}\n' "$id"
      ;;
    *'"type":"user"'*)
      echo '{"type":"result","subtype":"success","result":"ok"}'
      ;;
  esac
done
`

	var (
		mu    sync.Mutex
		lines []string
	)

	transport := agentpipe.NewProcessTransport(nil, &agentpipe.Command{Path: writeScript(t, script)}, func(line string) {
		mu.Lock()
		defer mu.Unlock()

		lines = append(lines, line)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var results int

	for f, err := range agentpipe.Query(ctx, "ping", agentpipe.WithTransport(transport)) {
		require.NoError(t, err)

		if f.IsResult() {
			results++
		}
	}

	require.Equal(t, 1, results)

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []string{"starting"}, lines)
}
