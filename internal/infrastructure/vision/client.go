// Package vision talks to an OpenAI-compatible vision model for document
// field extraction and selfie/document face comparison. Responses are
// treated as untrusted and defensively parsed.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/imaging"
	"kyc-verification/internal/infrastructure/resilience"
	"kyc-verification/internal/observability/metrics"
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
	metrics    *metrics.Metrics
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
	Metrics  *metrics.Metrics
}

func New(baseURL, apiKey, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
		metrics:    options.Metrics,
	}
}

// ExtractDocument runs the two-pass extraction: a generic pass determines
// the document type, then a type-specific prompt re-reads the card for
// better field accuracy. Unparseable responses degrade to unknown.
func (c *Client) ExtractDocument(ctx context.Context, imageData []byte) (domain.DocumentExtraction, error) {
	payload := imaging.OptimizeForUpload(imageData)

	generic, err := c.askForDocument(ctx, payload, genericPrompt)
	if err != nil {
		return domain.DocumentExtraction{DocType: domain.DocTypeUnknown}, err
	}

	result := generic
	switch generic.DocType {
	case domain.DocTypeAadhaar:
		if specific, err := c.askForDocument(ctx, payload, aadhaarPrompt); err == nil {
			specific.DocType = domain.DocTypeAadhaar
			result = specific
		}
	case domain.DocTypePAN:
		if specific, err := c.askForDocument(ctx, payload, panPrompt); err == nil {
			specific.DocType = domain.DocTypePAN
			result = specific
		}
	}

	result.Confidence = estimateConfidence(result)
	return result, nil
}

// CompareFaces asks the model whether the selfie shows the same person as
// the photo on the document.
func (c *Client) CompareFaces(ctx context.Context, selfieData, documentData []byte) (domain.FaceMatchResult, error) {
	raw, err := c.complete(ctx, "compare_faces", facePrompt,
		imaging.OptimizeForUpload(selfieData),
		imaging.OptimizeForUpload(documentData),
	)
	if err != nil {
		return domain.FaceMatchResult{}, err
	}
	return parseFaceMatch(raw), nil
}

func (c *Client) askForDocument(ctx context.Context, imageData []byte, prompt string) (domain.DocumentExtraction, error) {
	raw, err := c.complete(ctx, "extract_document", prompt, imageData)
	if err != nil {
		return domain.DocumentExtraction{}, err
	}
	return parseDocument(raw), nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, operation, prompt string, images ...[]byte) (string, error) {
	content := []contentPart{{Type: "text", Text: prompt}}
	for _, img := range images {
		content = append(content, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
				Detail: "high",
			},
		})
	}

	request := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: content}},
		MaxTokens:   500,
		Temperature: 0,
	}

	var raw string
	call := func(callCtx context.Context) error {
		text, err := c.postChat(callCtx, request, operation)
		if err != nil {
			return err
		}
		raw = text
		return nil
	}

	start := time.Now()
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "vision."+operation, classifyVisionError, call)
	} else {
		err = call(ctx)
	}
	if c.metrics != nil {
		c.metrics.ObserveVisionCall(operation, err, time.Since(start))
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	return raw, nil
}

func (c *Client) postChat(ctx context.Context, request chatRequest, operation string) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(payload)),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode %s response: %w", operation, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("vision %s response: no choices", operation)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// estimateConfidence scales a base score by the fraction of expected
// fields actually populated, capped at 95. Unknown documents score zero.
func estimateConfidence(extraction domain.DocumentExtraction) int {
	var expected []string
	switch extraction.DocType {
	case domain.DocTypeAadhaar:
		expected = []string{extraction.Name, extraction.IDNumber, extraction.DOB, extraction.Gender}
	case domain.DocTypePAN:
		expected = []string{extraction.Name, extraction.IDNumber, extraction.DOB}
	default:
		return 0
	}

	filled := 0
	for _, field := range expected {
		if field != "" {
			filled++
		}
	}
	score := 60 + int(float64(filled)/float64(len(expected))*35)
	if score > 95 {
		score = 95
	}
	return score
}
