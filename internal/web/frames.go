package web

import "sync"

// FrameHub keeps the latest display frame and fans it out to MJPEG
// viewers. It implements display.FrameSink.
type FrameHub struct {
	mu      sync.Mutex
	latest  []byte
	clients map[chan []byte]struct{}
}

// NewFrameHub creates an empty hub.
func NewFrameHub() *FrameHub {
	return &FrameHub{clients: make(map[chan []byte]struct{})}
}

// PublishFrame stores frame and offers it to every viewer. A viewer still
// busy with the previous frame skips this one.
func (h *FrameHub) PublishFrame(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = frame
	for ch := range h.clients {
		select {
		case ch <- frame:
		default:
		}
	}
}

// Latest returns the last published frame, nil before the first one.
func (h *FrameHub) Latest() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Subscribe registers a viewer. The latest frame, if any, is queued first.
func (h *FrameHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)
	h.mu.Lock()
	if h.latest != nil {
		ch <- h.latest
	}
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
		})
	}
}
