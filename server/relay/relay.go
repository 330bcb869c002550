package relay

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/frankfika/pokersight-gto/server/session"
	"github.com/frankfika/pokersight-gto/server/vision"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 20 // raw frames are large
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The overlay and the capture client run on localhost.
		return true
	},
}

// AdviseFunc runs one model round over a JPEG screenshot, streaming the
// growing reply prefix through onChunk, and returns the final text.
type AdviseFunc func(ctx context.Context, jpeg []byte, onChunk func(string)) (string, error)

// Handler serves the two websocket endpoints: the capture ingress that
// feeds the session, and the overlay feed that mirrors its updates.
type Handler struct {
	sess        *session.Session
	advise      AdviseFunc
	upstreamURL string
	log         zerolog.Logger
}

func NewHandler(sess *session.Session, advise AdviseFunc, upstreamURL string, logger zerolog.Logger) *Handler {
	return &Handler{
		sess:        sess,
		advise:      advise,
		upstreamURL: upstreamURL,
		log:         logger.With().Str("component", "relay").Logger(),
	}
}

// captureControl is the JSON side of the capture protocol. Raw frames come
// as binary messages instead: 4-byte big-endian width, 4-byte height, then
// RGBA pixel data.
type captureControl struct {
	Type    string `json:"type"` // "advise" | "reset"
	JPEGB64 string `json:"jpeg_b64,omitempty"`
}

// ServeCapture upgrades the capture client connection. With an upstream
// configured the connection is proxied verbatim; otherwise frames drive the
// local detector and "advise" messages trigger a model round.
func (h *Handler) ServeCapture(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("capture upgrade failed")
		return
	}
	h.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("capture connected")

	if h.upstreamURL != "" {
		h.proxy(r.Context(), conn)
		return
	}
	h.readCapture(r.Context(), conn)
}

func (h *Handler) readCapture(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
		h.log.Info().Msg("capture disconnected")
	}()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go h.pingLoop(ctx, conn)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("capture read error")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if f, ok := decodeFrame(data); ok {
				h.sess.OfferFrame(f)
			} else {
				h.log.Warn().Int("bytes", len(data)).Msg("malformed frame message")
			}
		case websocket.TextMessage:
			h.handleControl(ctx, data)
		}
	}
}

func (h *Handler) handleControl(ctx context.Context, data []byte) {
	var ctl captureControl
	if err := json.Unmarshal(data, &ctl); err != nil {
		h.log.Warn().Err(err).Msg("malformed control message")
		return
	}
	switch ctl.Type {
	case "reset":
		h.sess.Reset()
	case "advise":
		jpeg, err := base64.StdEncoding.DecodeString(ctl.JPEGB64)
		if err != nil {
			h.log.Warn().Err(err).Msg("malformed advise payload")
			return
		}
		// One model round per message; chunks stream into the session
		// as they arrive so partial verdicts can surface early.
		go func() {
			text, err := h.advise(ctx, jpeg, h.sess.OfferChunk)
			if err != nil {
				h.log.Error().Err(err).Msg("advise round failed")
				return
			}
			h.sess.Complete(text)
		}()
	default:
		h.log.Warn().Str("type", ctl.Type).Msg("unknown control message")
	}
}

// decodeFrame unpacks the binary frame layout. Frames whose pixel payload
// does not match the header are rejected.
func decodeFrame(data []byte) (vision.Frame, bool) {
	if len(data) < 8 {
		return vision.Frame{}, false
	}
	w := int(binary.BigEndian.Uint32(data[0:4]))
	h := int(binary.BigEndian.Uint32(data[4:8]))
	pix := data[8:]
	if w <= 0 || h <= 0 || len(pix) != w*h*4 {
		return vision.Frame{}, false
	}
	return vision.Frame{Width: w, Height: h, Pix: pix}, true
}

// encodeFrame is the inverse of decodeFrame, used by the capture client and
// the tests.
func encodeFrame(f vision.Frame) []byte {
	buf := make([]byte, 8+len(f.Pix))
	binary.BigEndian.PutUint32(buf[0:4], uint32(f.Width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(f.Height))
	copy(buf[8:], f.Pix)
	return buf
}

// ServeFeed upgrades an overlay connection and pushes every session update
// to it as JSON until either side goes away.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("feed upgrade failed")
		return
	}
	h.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("feed connected")

	updates, cancel := h.sess.Subscribe()
	defer cancel()
	defer conn.Close()

	// The overlay sends nothing; the read loop only services pongs and
	// notices the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Current state first, so a reconnecting overlay paints immediately.
	if err := writeJSON(conn, h.sess.State()); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := writeJSON(conn, u); err != nil {
				h.log.Warn().Err(err).Msg("feed write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
