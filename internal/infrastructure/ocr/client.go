// Package ocr is the HTTP client for the text-recognition engine. The
// engine streams newline-delimited JSON progress events followed by the
// final result.
package ocr

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kyc-verification/internal/core/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type recognizeRequest struct {
	Image    string `json:"image"`
	Language string `json:"language"`
}

// event is one NDJSON line from the engine. Progress-only lines carry
// progress in [0,100]; the terminal line carries text and confidence.
type event struct {
	Progress   *float64 `json:"progress,omitempty"`
	Text       *string  `json:"text,omitempty"`
	Confidence int      `json:"confidence"`
	Error      string   `json:"error,omitempty"`
}

func (c *Client) Recognize(ctx context.Context, imageData []byte, language string, onProgress func(float64)) (domain.OCRText, error) {
	body, err := json.Marshal(recognizeRequest{
		Image:    base64.StdEncoding.EncodeToString(imageData),
		Language: language,
	})
	if err != nil {
		return domain.OCRText{}, fmt.Errorf("marshal recognize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", bytes.NewReader(body))
	if err != nil {
		return domain.OCRText{}, fmt.Errorf("create recognize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OCRText{}, fmt.Errorf("ocr recognize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.OCRText{}, fmt.Errorf("ocr recognize status: %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue // tolerate noise between events
		}
		if ev.Error != "" {
			return domain.OCRText{}, fmt.Errorf("ocr engine: %s", ev.Error)
		}
		if ev.Text != nil {
			return domain.OCRText{
				Text:       *ev.Text,
				Confidence: clamp(ev.Confidence),
			}, nil
		}
		if ev.Progress != nil && onProgress != nil {
			onProgress(*ev.Progress / 100)
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.OCRText{}, fmt.Errorf("read recognize stream: %w", err)
	}
	return domain.OCRText{}, fmt.Errorf("ocr recognize stream ended without result")
}

func clamp(confidence int) int {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}
