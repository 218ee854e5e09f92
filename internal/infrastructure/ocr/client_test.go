package ocr

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRecognizeStreamsProgressAndResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recognize" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprintln(w, `{"progress":10}`)
		fmt.Fprintln(w, `{"progress":55}`)
		fmt.Fprintln(w, `not-json noise`)
		fmt.Fprintln(w, `{"text":"GOVT. OF INDIA\nABCDE1234F","confidence":87}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)

	var progress []float64
	result, err := client.Recognize(context.Background(), []byte{1, 2}, "eng", func(p float64) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.Confidence != 87 {
		t.Fatalf("confidence = %d", result.Confidence)
	}
	if len(progress) != 2 || progress[0] != 0.10 || progress[1] != 0.55 {
		t.Fatalf("progress = %v", progress)
	}
}

func TestRecognizeEngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"error":"image too small"}`)
	}))
	defer server.Close()

	if _, err := New(server.URL, time.Second).Recognize(context.Background(), nil, "eng", nil); err == nil {
		t.Fatal("expected engine error")
	}
}

func TestRecognizeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := New(server.URL, time.Second).Recognize(context.Background(), nil, "eng", nil); err == nil {
		t.Fatal("expected status error")
	}
}

func TestRecognizeTruncatedStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"progress":40}`)
	}))
	defer server.Close()

	if _, err := New(server.URL, time.Second).Recognize(context.Background(), nil, "eng", nil); err == nil {
		t.Fatal("expected error for stream without result")
	}
}
