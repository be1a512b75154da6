package web

import "sync"

// MaxPendingKeys bounds the keys waiting for the booth loop; later keys
// are dropped until the loop drains the queue.
const MaxPendingKeys = 10

// KeyEvent is sent by the kiosk page over the websocket.
type KeyEvent struct {
	Type string `json:"type"` // "keyup"
	Key  string `json:"key"`  // "Space", "q", "Escape"
}

// KeyQueue collects key releases from HTTP goroutines for the booth loop.
// It implements booth.Keys.
type KeyQueue struct {
	mu   sync.Mutex
	keys []string
}

// NewKeyQueue creates an empty queue.
func NewKeyQueue() *KeyQueue {
	return &KeyQueue{}
}

// Push records a released key. It reports false when the key was dropped.
func (q *KeyQueue) Push(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.keys) >= MaxPendingKeys {
		return false
	}
	q.keys = append(q.keys, key)
	return true
}

// Released drains the queue.
func (q *KeyQueue) Released() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	keys := q.keys
	q.keys = nil
	return keys
}
