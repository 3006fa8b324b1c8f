// Package stream consumes the Mission Control WebSocket event stream
// and feeds each envelope to the reconciler. All frames are decoded and
// applied on the consumer's single goroutine, so events for the same
// task keep their arrival order; nothing downstream may block the loop.
package stream

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shabbark/pocketpaw/internal/event"
	"github.com/shabbark/pocketpaw/internal/logging"
	"github.com/shabbark/pocketpaw/internal/reconcile"
)

// Reconnect backoff bounds.
const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Consumer maintains the WebSocket connection to the service's event
// stream, reconnecting with capped exponential backoff when it drops.
type Consumer struct {
	url        string
	reconciler *reconcile.Reconciler
	bus        *event.Bus
	log        *logging.Logger
	dialer     *websocket.Dialer
}

// NewConsumer creates a Consumer for the given ws:// or wss:// URL.
func NewConsumer(url string, reconciler *reconcile.Reconciler, bus *event.Bus, log *logging.Logger) *Consumer {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Consumer{
		url:        url,
		reconciler: reconciler,
		bus:        bus,
		log:        log,
		dialer:     websocket.DefaultDialer,
	}
}

// StreamURL derives the event stream endpoint from an HTTP base URL
// when no explicit stream URL is configured.
func StreamURL(baseURL string) string {
	ws := baseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimRight(ws, "/") + "/ws/events"
}

// Run connects and consumes until the context is canceled. Connection
// failures are retried; the loop only returns on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.log.Warn("event stream dial failed", "url", c.url, "error", err)
			c.bus.Publish(event.NewStreamStateEvent(false, err.Error()))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff
		c.log.Info("event stream connected", "url", c.url)
		c.bus.Publish(event.NewStreamStateEvent(true, ""))

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		c.bus.Publish(event.NewStreamStateEvent(false, errMsg))
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
	}
}

// consume reads frames until the connection breaks or the context is
// canceled. A malformed frame is logged and skipped; only read errors
// end the loop.
func (c *Consumer) consume(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadMessage when the context is canceled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("event stream read error", "error", err)
			}
			return err
		}

		env, err := reconcile.ParseEnvelope(frame)
		if err != nil {
			c.log.Warn("skipping malformed frame", "error", err)
			continue
		}
		c.reconciler.Apply(env)
	}
}

// sleepCtx waits for d or until the context is canceled. Returns false
// on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
