package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrDisabled = errors.New("slack disabled")

// Slack posts messages to an incoming webhook as a colored attachment.
type Slack struct {
	Webhook  string
	Username string
	Client   *http.Client
	now      func() time.Time
}

// NewSlack returns nil when webhook is empty.
func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook:  webhook,
		Username: "flvexporter",
		Client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Fallback string       `json:"fallback"`
	Color    string       `json:"color"`
	Title    string       `json:"title"`
	Fields   []slackField `json:"fields"`
	Ts       int64        `json:"ts"`
}

type slackPayload struct {
	Username    string            `json:"username,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

func (s *Slack) payload(msg Message) slackPayload {
	color := "danger"
	if msg.Healthy {
		color = "good"
	}
	att := slackAttachment{
		Fallback: msg.Title,
		Color:    color,
		Title:    msg.Title,
		Ts:       s.now().Unix(),
	}
	for _, f := range msg.Fields {
		// URLs are long; everything else fits two per row
		att.Fields = append(att.Fields, slackField{Title: f.Name, Value: f.Value, Short: f.Name != "url"})
	}
	return slackPayload{Username: s.Username, Attachments: []slackAttachment{att}}
}

func (s *Slack) Send(ctx context.Context, msg Message) error {
	if s == nil || s.Webhook == "" {
		return ErrDisabled
	}
	body, err := json.Marshal(s.payload(msg))
	if err != nil {
		return fmt.Errorf("slack: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("slack: webhook returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}
	return nil
}
