package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"wildcam/internal/services"
)

// HTTPBackend posts the frame to a detection service at <Endpoint>/predict as
// a multipart form upload and reads a detections document in reply.
type HTTPBackend struct {
	Endpoint string
	Client   *http.Client
}

// Detect uploads framePath to the detection service.
func (b HTTPBackend) Detect(ctx context.Context, framePath string) ([]Detection, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(b.Endpoint), "/")
	if endpoint == "" {
		return nil, services.Wrap(services.ErrConfiguration, "classify", "detect", "detection endpoint not configured", nil)
	}

	image, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(framePath)))
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/predict", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "classify", "detect", "detection request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, services.Wrap(services.ErrExternalTool, "classify", "detect",
			fmt.Sprintf("bad status: %s: %s", resp.Status, strings.TrimSpace(string(body))), nil)
	}

	detections, err := decodeDetections(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "classify", "detect", "parse detection response", err)
	}
	return detections, nil
}
