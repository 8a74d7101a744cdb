package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"wildcam/internal/capturelog"
	"wildcam/internal/classifier"
	"wildcam/internal/services"
)

type fakeMedia struct {
	dir        string
	captureErr error
	extractErr error
	// onCapture runs while the clip is "recording".
	onCapture func()

	mu       sync.Mutex
	captures []string
	extracts []string
}

func (m *fakeMedia) CaptureVideo(_ context.Context, runID string, _ int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captures = append(m.captures, runID)
	if m.onCapture != nil {
		m.onCapture()
	}
	if m.captureErr != nil {
		return "", m.captureErr
	}
	return filepath.Join(m.dir, "vid_"+runID+".mp4"), nil
}

func (m *fakeMedia) ExtractStillFrame(_ context.Context, runID, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extracts = append(m.extracts, runID)
	if m.extractErr != nil {
		return "", m.extractErr
	}
	return filepath.Join(m.dir, "frame_"+runID+".jpg"), nil
}

type fakeClassifier struct {
	result classifier.Result
	calls  int
}

func (c *fakeClassifier) Classify(context.Context, string) classifier.Result {
	c.calls++
	return c.result
}

type fakeStore struct {
	err    error
	events []capturelog.Event
}

func (s *fakeStore) Insert(_ context.Context, evt capturelog.Event) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.events = append(s.events, evt)
	return int64(len(s.events)), nil
}

type notification struct {
	label      string
	confidence float64
	frame      string
}

type fakeNotifier struct {
	err  error
	sent []notification
}

func (n *fakeNotifier) NotifyAnimalDetected(_ context.Context, label string, confidence float64, framePath string) error {
	n.sent = append(n.sent, notification{label: label, confidence: confidence, frame: framePath})
	return n.err
}

var errCamera = services.Wrap(services.ErrCaptureFailed, "capture", "record video", "camera busy", errors.New("exit status 1"))
