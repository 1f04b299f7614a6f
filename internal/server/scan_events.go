package server

import (
	"sync"
	"time"

	"lms/internal/events"
	applog "lms/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	scanFeedSendBuffer   = 16
	scanFeedWriteTimeout = 10 * time.Second
	scanFeedPingInterval = 30 * time.Second
)

// scanFeed fans scanner lifecycle events out to every connected
// websocket client. It subscribes to the event bus once; per-client
// channels are registered and dropped as connections come and go, and
// a client that can't keep up loses events rather than stalling the
// bus fanout.
type scanFeed struct {
	log applog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan events.Event
}

func newScanFeed(bus *events.EventBus) *scanFeed {
	f := &scanFeed{
		log:     applog.New("server").File("scan_events"),
		clients: map[*websocket.Conn]chan events.Event{},
	}
	if err := bus.Subscribe(events.SCAN_CHANNEL, f.broadcast); err != nil {
		f.log.Er("failed to subscribe to scan channel", err)
	}
	return f
}

func (f *scanFeed) broadcast(event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.clients {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (f *scanFeed) add(conn *websocket.Conn) chan events.Event {
	ch := make(chan events.Event, scanFeedSendBuffer)
	f.mu.Lock()
	f.clients[conn] = ch
	f.mu.Unlock()
	return ch
}

func (f *scanFeed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	delete(f.clients, conn)
	f.mu.Unlock()
}

// registerScanEventsRoute mounts the /ws/scan feed: every event the
// scanner publishes on events.SCAN_CHANNEL reaches each connected
// client as one JSON frame, with periodic pings to hold idle
// connections open across proxies.
func registerScanEventsRoute(app *fiber.App, bus *events.EventBus) {
	feed := newScanFeed(bus)

	app.Use("/ws/scan", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/scan", websocket.New(func(conn *websocket.Conn) {
		ch := feed.add(conn)
		defer feed.remove(conn)
		defer conn.Close()

		// The feed is write-only; the read loop exists to notice the
		// close handshake (and absorb client pings).
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(scanFeedPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-closed:
				return
			case event := <-ch:
				_ = conn.SetWriteDeadline(time.Now().Add(scanFeedWriteTimeout))
				if err := conn.WriteJSON(event); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(scanFeedWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}))
}
