package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/ims-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/rs/zerolog"
)

func TestSendPostsJSONWithBearer(t *testing.T) {
	var got Message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(config.MailerConfig{WebhookURL: srv.URL, APIKey: "secret", Timeout: time.Second}, nil)
	msg := Message{To: "a@example.com", Subject: "Hi", HTMLBody: "<p>x</p>", TextBody: "x"}
	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got != msg {
		t.Fatalf("unexpected payload %+v", got)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth %q", auth)
	}
}

func TestSendWrapsRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(config.MailerConfig{WebhookURL: srv.URL}, nil, WithHTTPClient(srv.Client()))
	err := client.Send(context.Background(), Message{To: "a@example.com"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if cause := pkgerrors.As(err).Unwrap(); cause == nil || !strings.Contains(cause.Error(), "429") {
		t.Fatalf("expected status in cause, got %v", cause)
	}
}

func TestSendWithoutWebhookLogs(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})
	client := NewClient(config.MailerConfig{}, logg)

	if err := client.Send(context.Background(), Message{To: "a@example.com", Subject: "Reset"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "mailer.webhook_disabled") || !strings.Contains(buf.String(), "a@example.com") {
		t.Fatalf("expected log entry, got %s", buf.String())
	}
}

func TestSendRequiresRecipient(t *testing.T) {
	client := NewClient(config.MailerConfig{}, nil)
	if err := client.Send(context.Background(), Message{}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
