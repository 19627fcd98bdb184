package subprocess

import (
	"strings"
	"sync"
)

// tailBuffer keeps the most recent bytes of line-oriented output.
type tailBuffer struct {
	mu   sync.Mutex
	max  int
	buf  []byte
	drop bool
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{max: limit}
}

// WriteLine appends a line, discarding the oldest output beyond the limit.
func (t *tailBuffer) WriteLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')

	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
		t.drop = true
	}
}

// String returns the retained output without the trailing newline. When
// output was dropped, the partial first line is removed.
func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := string(t.buf)
	if t.drop {
		if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
			s = s[i+1:]
		}
	}

	return strings.TrimSpace(s)
}
