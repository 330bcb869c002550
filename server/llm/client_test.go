package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestAdviseFrameStreamsGrowingPrefix(t *testing.T) {
	deltas := []string{"ACTION: ", "RAISE 120\n", "RATIONALE: top pair"}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		var payload struct {
			Stream   bool `json:"stream"`
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if !payload.Stream {
			t.Error("expected stream: true")
		}
		if len(payload.Messages) != 2 {
			t.Errorf("expected system+user messages, got %d", len(payload.Messages))
		} else if !strings.Contains(string(payload.Messages[1].Content), "data:image/jpeg;base64,") {
			t.Error("user message missing the image data URL part")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			b, _ := json.Marshal(d)
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%s}}]}\n\n", b)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer ts.Close()

	t.Setenv("OPENAI_API_BASE", ts.URL)
	t.Setenv("OPENAI_API_KEY", "test-key")

	var prefixes []string
	c := NewClient("gpt-4o-mini", zerolog.Nop())
	text, err := c.AdviseFrame(context.Background(), []byte{0xff, 0xd8}, func(p string) {
		prefixes = append(prefixes, p)
	})
	if err != nil {
		t.Fatalf("AdviseFrame returned error: %v", err)
	}

	want := "ACTION: RAISE 120\nRATIONALE: top pair"
	if text != want {
		t.Fatalf("unexpected final text: %q", text)
	}
	if len(prefixes) != len(deltas) {
		t.Fatalf("expected %d chunk callbacks, got %d", len(deltas), len(prefixes))
	}
	for i := range prefixes {
		if !strings.HasPrefix(want, prefixes[i]) && prefixes[i] != want {
			t.Fatalf("prefix %d is not a prefix of the final text: %q", i, prefixes[i])
		}
		if i > 0 && !strings.HasPrefix(prefixes[i], prefixes[i-1]) {
			t.Fatalf("prefixes must be monotonically growing, got %q then %q", prefixes[i-1], prefixes[i])
		}
	}
}

func TestAdviseFrameSkipsMalformedEvents(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: not json at all\n\n")
		fmt.Fprint(w, ": keepalive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"STATUS: WAITING\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer ts.Close()

	t.Setenv("OPENAI_API_BASE", ts.URL)
	t.Setenv("OPENAI_API_KEY", "test-key")

	c := NewClient("gpt-4o-mini", zerolog.Nop())
	text, err := c.AdviseFrame(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("AdviseFrame returned error: %v", err)
	}
	if text != "STATUS: WAITING" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestAdviseFrameHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	t.Setenv("OPENAI_API_BASE", ts.URL)
	t.Setenv("OPENAI_API_KEY", "test-key")

	c := NewClient("gpt-4o-mini", zerolog.Nop())
	if _, err := c.AdviseFrame(context.Background(), nil, nil); err == nil {
		t.Fatal("expected an error on HTTP 429")
	}
}
