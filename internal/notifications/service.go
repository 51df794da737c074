package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"bidsprep/internal/config"
)

const userAgent = "bidsprep/0.1"

// Service is the notification surface used by the CLI.
type Service interface {
	NotifyScanCompleted(ctx context.Context, root string, loaded, ready, failed int) error
	NotifyGroupAssembled(ctx context.Context, folder, manifest string, jobs int) error
	NotifyError(ctx context.Context, err error, action string) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil || cfg.Notifications.NtfyTopic == "" {
		return noopService{}
	}
	seconds := max(cfg.Notifications.RequestTimeout, 1)
	return &ntfy{
		topic:  cfg.Notifications.NtfyTopic,
		client: &http.Client{Timeout: time.Duration(seconds) * time.Second},
	}
}

// message is one ntfy publish. Urgent messages go out at high priority.
type message struct {
	title  string
	body   string
	tags   []string
	urgent bool
}

func (m message) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Title", "bidsprep - "+m.title)
	h.Set("Tags", strings.Join(append([]string{"bidsprep"}, m.tags...), ","))
	if m.urgent {
		h.Set("Priority", "high")
	}
	return h
}

type ntfy struct {
	topic  string
	client *http.Client
}

func (n *ntfy) NotifyScanCompleted(ctx context.Context, root string, loaded, ready, failed int) error {
	msg := message{
		title: "Scan Complete",
		body:  fmt.Sprintf("%s: %d folder(s) loaded, %d ready", root, loaded, ready),
		tags:  []string{"scan"},
	}
	if failed > 0 {
		msg.body = fmt.Sprintf("%s, %d failed", msg.body, failed)
		msg.tags = append(msg.tags, "warning")
		msg.urgent = true
	}
	return n.publish(ctx, msg)
}

func (n *ntfy) NotifyGroupAssembled(ctx context.Context, folder, manifest string, jobs int) error {
	return n.publish(ctx, message{
		title: "Assembled",
		body:  fmt.Sprintf("%s: %d recording(s)\n%s", filepath.Base(folder), jobs, manifest),
		tags:  []string{"assemble", "completed"},
	})
}

func (n *ntfy) NotifyError(ctx context.Context, err error, action string) error {
	if err == nil {
		return nil
	}
	body := err.Error()
	if action = strings.TrimSpace(action); action != "" {
		body = action + ": " + body
	}
	return n.publish(ctx, message{title: "Error", body: body, tags: []string{"error"}, urgent: true})
}

func (n *ntfy) publish(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topic, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("ntfy request: %w", err)
	}
	req.Header = msg.header()

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy publish: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy publish: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyScanCompleted(context.Context, string, int, int, int) error { return nil }
func (noopService) NotifyGroupAssembled(context.Context, string, string, int) error  { return nil }
func (noopService) NotifyError(context.Context, error, string) error                 { return nil }
