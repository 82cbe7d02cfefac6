package observers

import (
	"strings"
	"sync"
)

// Recorder captures the last usable assistant content produced during a turn.
// When a turn is cancelled mid-flight, the runner answers with this partial
// instead of dropping the round entirely.
type Recorder struct {
	mu   sync.Mutex
	last string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Observe remembers content if it is non-empty after trimming.
func (r *Recorder) Observe(content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	r.mu.Lock()
	r.last = content
	r.mu.Unlock()
}

// Best returns the most recent usable content, or "" when nothing was seen.
func (r *Recorder) Best() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
