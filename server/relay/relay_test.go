package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/frankfika/pokersight-gto/server/advisor"
	"github.com/frankfika/pokersight-gto/server/session"
	"github.com/frankfika/pokersight-gto/server/vision"
)

const raiseText = "ACTION: RAISE 120\nPOT: 80\nRATIONALE: top pair strong kicker"

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	s := session.New(advisor.DefaultConfig(), vision.DefaultThresholds(), nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func buttonFrame() vision.Frame {
	w, h := 320, 240
	f := vision.Frame{Width: w, Height: h, Pix: make([]byte, w*h*4)}
	for y := 190; y < 235; y++ {
		for x := 10; x < 150; x++ {
			i := (y*w + x) * 4
			f.Pix[i] = 220
			f.Pix[i+1] = 40
			f.Pix[i+2] = 40
			f.Pix[i+3] = 255
		}
	}
	return f
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func nextUpdate(t *testing.T, ch <-chan session.Update) session.Update {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return session.Update{}
	}
}

func TestFrameCodecRoundTrip(t *testing.T) {
	f := buttonFrame()
	got, ok := decodeFrame(encodeFrame(f))
	require.True(t, ok)
	require.Equal(t, f.Width, got.Width)
	require.Equal(t, f.Height, got.Height)
	require.Equal(t, f.Pix, got.Pix)

	_, ok = decodeFrame([]byte{1, 2, 3})
	require.False(t, ok)
	_, ok = decodeFrame(encodeFrame(f)[:100])
	require.False(t, ok, "truncated pixel payload must be rejected")
}

func TestCapturePipelineDrivesSession(t *testing.T) {
	sess := newTestSession(t)
	advise := func(ctx context.Context, jpeg []byte, onChunk func(string)) (string, error) {
		onChunk("ACTION: RAISE 120")
		onChunk(raiseText)
		return raiseText, nil
	}
	h := NewHandler(sess, advise, "", zerolog.Nop())

	ts := httptest.NewServer(http.HandlerFunc(h.ServeCapture))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	updates, cancel := sess.Subscribe()
	defer cancel()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, encodeFrame(buttonFrame())))

	ctl, _ := json.Marshal(map[string]string{
		"type":     "advise",
		"jpeg_b64": base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8}),
	})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, ctl))

	u := nextUpdate(t, updates)
	require.Equal(t, advisor.PhaseActing, u.State.Phase)
	require.Equal(t, "Raise 120", u.State.Display)
}

func TestCaptureResetControl(t *testing.T) {
	sess := newTestSession(t)
	h := NewHandler(sess, nil, "", zerolog.Nop())

	ts := httptest.NewServer(http.HandlerFunc(h.ServeCapture))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	updates, cancel := sess.Subscribe()
	defer cancel()

	// Drive the session into Acting directly, then reset over the wire.
	sess.OfferFrame(buttonFrame())
	sess.Complete(raiseText)
	nextUpdate(t, updates)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"reset"}`)))
	u := nextUpdate(t, updates)
	require.Equal(t, advisor.PhaseWaiting, u.State.Phase)
	require.Empty(t, u.State.PinnedFields)
}

func TestFeedSendsCurrentStateThenUpdates(t *testing.T) {
	sess := newTestSession(t)
	h := NewHandler(sess, nil, "", zerolog.Nop())

	ts := httptest.NewServer(http.HandlerFunc(h.ServeFeed))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	var first session.Update
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, advisor.PhaseWaiting, first.State.Phase)

	sess.OfferFrame(buttonFrame())
	sess.Complete(raiseText)

	var second session.Update
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&second))
	require.Equal(t, advisor.PhaseActing, second.State.Phase)
	require.Equal(t, "Raise 120", second.State.Display)
}

func TestNextBackoffDoublesToCap(t *testing.T) {
	var d time.Duration
	want := []time.Duration{
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second,
	}
	for i, w := range want {
		d = nextBackoff(d)
		require.Equal(t, w, d, "step %d", i)
	}
}

func TestProxyRelaysBothWays(t *testing.T) {
	// Upstream echoes with a prefix so direction is observable.
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, append([]byte("up:"), data...)); err != nil {
				return
			}
		}
	}))
	defer up.Close()

	sess := newTestSession(t)
	h := NewHandler(sess, nil, wsURL(up.URL), zerolog.Nop())
	ts := httptest.NewServer(http.HandlerFunc(h.ServeCapture))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "up:ping", string(data))
}
