package relay

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const (
	backoffInitial = 250 * time.Millisecond
	backoffMax     = 8 * time.Second
	dialTimeout    = 10 * time.Second
)

// nextBackoff doubles the delay up to the cap.
func nextBackoff(cur time.Duration) time.Duration {
	if cur <= 0 {
		return backoffInitial
	}
	next := cur * 2
	if next > backoffMax {
		return backoffMax
	}
	return next
}

// dialUpstream keeps dialing with exponential backoff until it connects or
// ctx is cancelled.
func (h *Handler) dialUpstream(ctx context.Context) (*websocket.Conn, error) {
	var delay time.Duration
	for {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, h.upstreamURL, nil)
		cancel()
		if err == nil {
			return conn, nil
		}

		delay = nextBackoff(delay)
		h.log.Warn().Err(err).Dur("retry_in", delay).Str("url", h.upstreamURL).Msg("upstream dial failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// proxy relays the capture connection to the configured upstream verbatim,
// one pump per direction. The session stays untouched in this mode; the
// remote provider owns the conversation.
func (h *Handler) proxy(ctx context.Context, client *websocket.Conn) {
	defer client.Close()

	upstream, err := h.dialUpstream(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("giving up on upstream")
		return
	}
	defer upstream.Close()
	h.log.Info().Str("url", h.upstreamURL).Msg("upstream connected")

	errc := make(chan error, 2)
	go pump(client, upstream, errc)
	go pump(upstream, client, errc)

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			h.log.Warn().Err(err).Msg("proxy pump ended")
		}
	}
}

func pump(src, dst *websocket.Conn, errc chan<- error) {
	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		_ = dst.SetWriteDeadline(time.Now().Add(writeWait))
		if err := dst.WriteMessage(msgType, data); err != nil {
			errc <- err
			return
		}
	}
}
