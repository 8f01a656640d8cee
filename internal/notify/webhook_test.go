package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendMonitorStoppedWebhook(t *testing.T) {
	var got WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body) //nolint:errcheck
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad payload: %v", err)
		}
	}))
	defer srv.Close()

	if err := SendMonitorStoppedWebhook(srv.URL, "AudioMixer_Virtual", "exit status 1"); err != nil {
		t.Fatalf("webhook failed: %v", err)
	}

	if got.Event != "monitor_stopped" || got.Sink != "AudioMixer_Virtual" {
		t.Errorf("unexpected payload: %+v", got)
	}
	if got.Error != "exit status 1" {
		t.Errorf("expected error detail, got %q", got.Error)
	}
	if got.Timestamp == "" {
		t.Error("expected a timestamp")
	}
}

func TestSendWebhookSkipsWhenUnconfigured(t *testing.T) {
	if err := SendMonitorStoppedWebhook("", "AudioMixer_Virtual", ""); err != nil {
		t.Errorf("unconfigured webhook should be a silent no-op, got %v", err)
	}
}

func TestSendTestWebhookRequiresURL(t *testing.T) {
	if err := SendTestWebhook(""); err == nil {
		t.Error("expected an error for a missing URL")
	}
}

func TestSendWebhookRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := SendTestWebhook(srv.URL); err == nil {
		t.Error("expected an error for a 500 response")
	}
}
