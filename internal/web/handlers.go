package web

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/gorilla/websocket"
)

const (
	// frameBoundary separates JPEG parts in the MJPEG stream.
	frameBoundary = "photoboothframe"

	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

// triggerKey is what POST /trigger injects.
const triggerKey = "Space"

// upgrader keeps gorilla's same-origin check: only pages served by this
// server may send keys.
var upgrader = websocket.Upgrader{}

// DisplayConfig is what the kiosk page needs to size its viewport.
type DisplayConfig struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Fullscreen bool `json:"fullscreen"`
	FPS        int  `json:"fps"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Frames      *FrameHub
	Keys        *KeyQueue
	Display     DisplayConfig
	staticFS    fs.FS
	log         *debug.Logger
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, frames *FrameHub, keys *KeyQueue, display DisplayConfig, staticFS fs.FS, log *debug.Logger) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Frames:      frames,
		Keys:        keys,
		Display:     display,
		staticFS:    staticFS,
		log:         log,
	}
}

// HandleConfig returns the display settings as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Display)
}

// ServeIndex serves the kiosk page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleTrigger handles POST /trigger, a remote press of the button.
func (h *Handlers) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	if !h.Keys.Push(triggerKey) {
		http.Error(w, "too many pending inputs", http.StatusTooManyRequests)
		return
	}
	h.log.Live("Remote trigger from %s", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "triggered"})
}

// HandleFrame serves the latest frame as a single JPEG.
func (h *Handlers) HandleFrame(w http.ResponseWriter, r *http.Request) {
	frame := h.Frames.Latest()
	if frame == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(frame)
}

// HandleStream handles GET /stream, the display as MJPEG.
func (h *Handlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+frameBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsub := h.Frames.Subscribe()
	defer unsub()

	for {
		select {
		case frame := <-ch:
			_, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", frameBoundary, len(frame))
			if err == nil {
				_, err = w.Write(frame)
			}
			if err == nil {
				_, err = w.Write([]byte("\r\n"))
			}
			if err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// HandleWebSocket handles GET /ws. The page sends KeyEvent messages; keyup
// events are queued for the booth loop.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	h.log.Verbose("Kiosk connected from %s", r.RemoteAddr)

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		var evt KeyEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Errorf("websocket read: %v", err)
			}
			return
		}
		if evt.Type != "keyup" || evt.Key == "" {
			continue
		}
		h.log.Trace("Key released: %s", evt.Key)
		if !h.Keys.Push(evt.Key) {
			h.log.Verbose("Key %s dropped, queue full", evt.Key)
		}
	}
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
