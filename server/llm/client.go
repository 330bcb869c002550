package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ChunkFunc receives the growing response prefix after each streamed delta.
type ChunkFunc func(prefix string)

// Client talks to an OpenAI-compatible chat/completions endpoint with a
// vision-capable model. Provider, key and base URL resolve from the
// environment per request, so rotating a key needs no restart.
type Client struct {
	model string
	httpc *http.Client
	log   zerolog.Logger
}

func NewClient(model string, logger zerolog.Logger) *Client {
	return &Client{
		model: model,
		httpc: &http.Client{Timeout: 90 * time.Second},
		log:   logger.With().Str("component", "llm").Logger(),
	}
}

// AdviseFrame sends one table screenshot (JPEG bytes) plus the advisor
// prompt and streams the reply. onChunk, when non-nil, is called with the
// full text received so far after every delta. Returns the complete text.
func (c *Client) AdviseFrame(ctx context.Context, jpeg []byte, onChunk ChunkFunc) (string, error) {
	cfg, err := resolveAPIConfig(c.model)
	if err != nil {
		return "", err
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
	payload := map[string]any{
		"model":  cfg.Model,
		"stream": true,
		"messages": []map[string]any{
			{"role": "system", "content": advisorSystemPrompt},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": advisorUserPrompt},
				{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
			}},
		},
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(cfg.HeaderName, cfg.HeaderPrefix+cfg.APIKey)
	if cfg.Organization != "" {
		req.Header.Set("OpenAI-Organization", cfg.Organization)
	}
	for name, value := range cfg.ExtraHeaders {
		setHeaderPreserveCase(req.Header, name, value)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return "", fmt.Errorf("llm http %d: %s", resp.StatusCode, truncate(buf.String(), 800))
	}

	text, err := readStream(resp.Body, onChunk)
	if err != nil {
		return text, err
	}
	c.log.Debug().Int("bytes", len(text)).Msg("response complete")
	return text, nil
}

// readStream consumes an SSE body, concatenating delta content. Events it
// does not understand are skipped rather than failing the whole response.
func readStream(body io.Reader, onChunk ChunkFunc) (string, error) {
	var sb strings.Builder
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var ev struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		if len(ev.Choices) == 0 {
			continue
		}
		piece := ev.Choices[0].Delta.Content
		if piece == "" {
			piece = ev.Choices[0].Message.Content
		}
		if piece == "" {
			continue
		}
		sb.WriteString(piece)
		if onChunk != nil {
			onChunk(sb.String())
		}
	}
	if err := sc.Err(); err != nil {
		return sb.String(), err
	}
	if sb.Len() == 0 {
		return "", errors.New("empty stream")
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
