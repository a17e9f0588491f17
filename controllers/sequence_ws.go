package controller

import (
	"sync"

	"github.com/gofiber/websocket/v2"

	"mailpilot/engine"
)

// ProgressHub fans sequence tick events out to connected websocket clients,
// keyed by user. The engine pushes events through Notify; slow clients drop
// events rather than blocking the tick loop.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[uint]map[chan engine.TickEvent]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[uint]map[chan engine.TickEvent]struct{})}
}

// Notify implements the engine's notifier callback.
func (h *ProgressHub) Notify(ev engine.TickEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.UserID] {
		select {
		case ch <- ev:
		default: // drop rather than block the tick
		}
	}
}

func (h *ProgressHub) subscribe(userID uint) chan engine.TickEvent {
	ch := make(chan engine.TickEvent, 16)
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan engine.TickEvent]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *ProgressHub) unsubscribe(userID uint, ch chan engine.TickEvent) {
	h.mu.Lock()
	delete(h.subs[userID], ch)
	if len(h.subs[userID]) == 0 {
		delete(h.subs, userID)
	}
	h.mu.Unlock()
	close(ch)
}

// HandleSequenceProgressWS streams per-enrollment outcomes to the client as
// the scheduler processes their sequences.
func (h *ProgressHub) HandleSequenceProgressWS(c *websocket.Conn) {
	defer c.Close()

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return
	}

	ch := h.subscribe(userID)
	defer h.unsubscribe(userID, ch)

	// Reader goroutine: we only care about the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, open := <-ch:
			if !open {
				return
			}
			if err := c.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
