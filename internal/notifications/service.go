package notifications

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"wildcam/internal/config"
	"wildcam/internal/services"
)

const userAgent = "wildcam/0.1.0"

// AttachmentName is the filename ntfy shows for the detection image.
const AttachmentName = "detection.jpg"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyAnimalDetected(ctx context.Context, label string, confidence float64, framePath string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	endpoint := cfg.NtfyEndpoint()
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: endpoint,
		priority: strings.TrimSpace(cfg.Notifications.Priority),
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc actually delivers notifications.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

type payload struct {
	title      string
	message    string
	tags       []string
	priority   string
	attachment []byte
	filename   string
}

type ntfyService struct {
	endpoint string
	priority string
	client   *http.Client
}

// NotifyAnimalDetected pushes the detection with the still frame attached.
// When the frame cannot be read the message is sent without it.
func (n *ntfyService) NotifyAnimalDetected(ctx context.Context, label string, confidence float64, framePath string) error {
	label = strings.TrimSpace(label)
	data := payload{
		title:    "Animal Detected: " + label,
		message:  FormatConfidence(confidence),
		tags:     []string{"camera", "wildlife", strings.ToLower(label)},
		priority: n.priority,
	}
	if framePath != "" {
		if image, err := os.ReadFile(framePath); err == nil {
			data.attachment = image
			data.filename = AttachmentName
		}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "wildcam - Test",
		message:  "Notification system test",
		tags:     []string{"camera", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// FormatConfidence renders a 0..1 confidence as the notification message.
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("Confidence: %.1f%%", confidence*100)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	var (
		body        io.Reader
		contentType string
	)
	if len(data.attachment) > 0 {
		body = bytes.NewReader(data.attachment)
		contentType = "image/jpeg"
	} else {
		body = strings.NewReader(data.message)
		contentType = "text/plain; charset=utf-8"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, body)
	if err != nil {
		return services.Wrap(services.ErrNotifyFailed, "notify", "build request", "", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType)
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.attachment) > 0 {
		req.Header.Set("Message", data.message)
		req.Header.Set("Filename", data.filename)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrNotifyFailed, "notify", "send", "ntfy request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrNotifyFailed, "notify", "send",
			fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyAnimalDetected(context.Context, string, float64, string) error { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
