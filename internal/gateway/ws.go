package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mohammedelhaj98-star/tekken-league-bot/internal/obslog"
)

// Handler consumes inbound events. It must not block the read loop for
// long; slow work belongs on the dispatcher's goroutines.
type Handler func(ctx context.Context, ev Event)

// Socket maintains the event stream from the chat gateway, reconnecting
// with linear backoff until the context ends.
type Socket struct {
	url     string
	token   string
	handler Handler

	reconnectDelay time.Duration
	pingInterval   time.Duration
}

func NewSocket(url, token string, handler Handler) *Socket {
	return &Socket{
		url:            url,
		token:          token,
		handler:        handler,
		reconnectDelay: 3 * time.Second,
		pingInterval:   30 * time.Second,
	}
}

// Run blocks until ctx is cancelled, reconnecting after every failure.
func (s *Socket) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.runOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			attempt++
			obslog.L().Warn("gateway socket disconnected",
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		delay := time.Duration(attempt) * s.reconnectDelay
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
	}
}

func (s *Socket) runOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bot "+s.token)
	}
	conn, _, err := websocket.Dial(dialCtx, s.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      header,
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")
	obslog.L().Info("gateway socket connected")

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go s.pingLoop(pingCtx, conn)

	for {
		var ev Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return err
		}
		s.handler(ctx, ev)
	}
}

func (s *Socket) pingLoop(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
