package ollama

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medassist/claim-processor/internal/core/domain"
	"github.com/medassist/claim-processor/internal/infrastructure/resilience"
)

var testLogger = slog.New(slog.DiscardHandler)

func testRunner() *resilience.Runner {
	return resilience.NewRunner(resilience.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2,
		BreakerEnabled: false,
	}, testLogger)
}

func newTestClient(url string) *Client {
	return New(url, "llama3", 5*time.Second, testRunner(), testLogger)
}

func TestGenerateReturnsTrimmedResponse(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "  hospital_bill,0.95\n"})
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Generate(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "hospital_bill,0.95" {
		t.Errorf("response = %q", got)
	}
	if gotBody["model"] != "llama3" || gotBody["prompt"] != "classify this" {
		t.Errorf("request body = %v", gotBody)
	}
	if _, ok := gotBody["format"]; ok {
		t.Error("plain generate must not force a format")
	}
}

func TestGenerateJSONRequestsJSONFormat(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"response": `{"patient_name": "Asha Rao"}`})
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).GenerateJSON(context.Background(), "extract")
	if err != nil {
		t.Fatalf("generate json: %v", err)
	}
	if got != `{"patient_name": "Asha Rao"}` {
		t.Errorf("response = %q", got)
	}
	if gotBody["format"] != "json" {
		t.Errorf("format = %v, want json", gotBody["format"])
	}
}

func TestRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls, want ok after 3", got, calls)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Errorf("err = %v, a 404 is not temporary", err)
	}
}

func TestUnreachableBackendWrapsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), "hi")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Errorf("err = %v, want wrapped ErrTemporary", err)
	}
}
