package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"wildcam/internal/services"
)

// CommandBackend runs a detector executable once per frame:
//
//	<binary> --model <model> --image <frame>
//
// and reads a detections document from its stdout.
type CommandBackend struct {
	Binary    string
	ModelPath string
}

// Detect runs the detector against framePath.
func (b CommandBackend) Detect(ctx context.Context, framePath string) ([]Detection, error) {
	if strings.TrimSpace(b.Binary) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "classify", "detect", "detector command not configured", nil)
	}
	args := []string{"--model", b.ModelPath, "--image", framePath}
	cmd := exec.CommandContext(ctx, b.Binary, args...) //nolint:gosec

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "classify", "detect", b.Binary+" timed out", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "classify", "detect",
			fmt.Sprintf("%s failed: %s", b.Binary, strings.TrimSpace(stderr.String())), err)
	}

	detections, err := decodeDetections(&stdout)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "classify", "detect", "parse detector output", err)
	}
	return detections, nil
}
