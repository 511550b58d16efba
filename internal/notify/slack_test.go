package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func downMessage() Message {
	return Message{
		Title: "Stream DOWN: P_live_a",
		Fields: []Field{
			{Name: "project", Value: "P"},
			{Name: "url", Value: "https://cdn.example.com/live/a.flv"},
		},
	}
}

func TestSlack_PostsAttachment(t *testing.T) {
	var got slackPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if s == nil {
		t.Fatal("expected slack client")
	}
	s.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	if err := s.Send(context.Background(), downMessage()); err != nil {
		t.Fatalf("send err: %v", err)
	}

	if got.Username != "flvexporter" || len(got.Attachments) != 1 {
		t.Fatalf("payload not as expected: %+v", got)
	}
	att := got.Attachments[0]
	if att.Color != "danger" || att.Title != "Stream DOWN: P_live_a" || att.Ts != 1_700_000_000 {
		t.Fatalf("attachment not as expected: %+v", att)
	}
	if len(att.Fields) != 2 || !att.Fields[0].Short || att.Fields[1].Short {
		t.Fatalf("fields not as expected: %+v", att.Fields)
	}
}

func TestSlack_RecoveryIsGreen(t *testing.T) {
	s := NewSlack("http://unused")
	msg := downMessage()
	msg.Healthy = true
	if c := s.payload(msg).Attachments[0].Color; c != "good" {
		t.Fatalf("color = %q", c)
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_, _ = w.Write([]byte("invalid_payload"))
	}))
	defer ts.Close()

	err := NewSlack(ts.URL).Send(context.Background(), downMessage())
	if err == nil || !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "invalid_payload") {
		t.Fatalf("expected error on non-2xx, got %v", err)
	}
}

func TestSlack_Disabled(t *testing.T) {
	s := NewSlack("")
	if s != nil {
		t.Fatal("empty webhook should disable slack")
	}
	if err := s.Send(context.Background(), downMessage()); !errors.Is(err, ErrDisabled) {
		t.Fatalf("want ErrDisabled, got %v", err)
	}
}

func TestLog_WritesTransition(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	if err := (Log{Logger: zap.New(core)}).Send(context.Background(), downMessage()); err != nil {
		t.Fatalf("send err: %v", err)
	}
	entries := logs.FilterMessage("stream_transition").All()
	if len(entries) != 1 || entries[0].Level != zap.WarnLevel {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if got := entries[0].ContextMap()["project"]; got != "P" {
		t.Fatalf("project field = %v", got)
	}
}

type failing struct{ err error }

func (f failing) Send(ctx context.Context, msg Message) error { return f.err }

func TestMulti_CombinesErrors(t *testing.T) {
	e1, e2 := errors.New("one"), errors.New("two")
	err := Multi{failing{e1}, nil, failing{nil}, failing{e2}}.Send(context.Background(), downMessage())
	if errs := multierr.Errors(err); len(errs) != 2 {
		t.Fatalf("want 2 errors, got %v", errs)
	}
}
