package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMQTT()
	c.normalizeCapture()
	if err := c.normalizeClassifier(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeDashboard()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CaptureDir) == "" {
		c.Paths.CaptureDir = defaultCaptureDir
	}
	if c.Paths.CaptureDir, err = expandPath(c.Paths.CaptureDir); err != nil {
		return fmt.Errorf("paths.capture_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = defaultDatabasePath
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMQTT() {
	c.MQTT.Broker = strings.TrimSpace(c.MQTT.Broker)
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = defaultMQTTBroker
	}
	if c.MQTT.Port <= 0 {
		c.MQTT.Port = defaultMQTTPort
	}
	c.MQTT.ClientID = strings.TrimSpace(c.MQTT.ClientID)
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = defaultMQTTClientID
	}
	c.MQTT.TriggerTopic = strings.TrimSpace(c.MQTT.TriggerTopic)
	if c.MQTT.KeepAliveSeconds <= 0 {
		c.MQTT.KeepAliveSeconds = defaultMQTTKeepAlive
	}
	if c.MQTT.ConnectTimeoutSeconds <= 0 {
		c.MQTT.ConnectTimeoutSeconds = defaultMQTTConnectTimeout
	}
}

func (c *Config) normalizeCapture() {
	c.Capture.RecorderBinary = strings.TrimSpace(c.Capture.RecorderBinary)
	if c.Capture.RecorderBinary == "" {
		c.Capture.RecorderBinary = defaultRecorderBinary
	}
	c.Capture.FFmpegBinary = strings.TrimSpace(c.Capture.FFmpegBinary)
	if c.Capture.FFmpegBinary == "" {
		c.Capture.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultVideoWidth
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultVideoHeight
	}
	if c.Capture.GraceSeconds <= 0 {
		c.Capture.GraceSeconds = defaultCaptureGraceSeconds
	}
	if c.Capture.FFmpegTimeoutSeconds <= 0 {
		c.Capture.FFmpegTimeoutSeconds = defaultFFmpegTimeoutSeconds
	}
}

func (c *Config) normalizeClassifier() error {
	c.Classifier.Backend = strings.ToLower(strings.TrimSpace(c.Classifier.Backend))
	if c.Classifier.Backend == "" {
		c.Classifier.Backend = defaultClassifierBackend
	}
	c.Classifier.Command = strings.TrimSpace(c.Classifier.Command)
	c.Classifier.Endpoint = strings.TrimRight(strings.TrimSpace(c.Classifier.Endpoint), "/")
	if strings.TrimSpace(c.Classifier.ModelPath) != "" {
		var err error
		if c.Classifier.ModelPath, err = expandPath(c.Classifier.ModelPath); err != nil {
			return fmt.Errorf("classifier.model_path: %w", err)
		}
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		c.Classifier.TimeoutSeconds = defaultClassifierTimeout
	}

	labels := make([]string, 0, len(c.Classifier.AnimalLabels))
	seen := make(map[string]struct{}, len(c.Classifier.AnimalLabels))
	for _, label := range c.Classifier.AnimalLabels {
		normalized := strings.ToLower(strings.TrimSpace(label))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		labels = append(labels, normalized)
	}
	c.Classifier.AnimalLabels = labels
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.BaseURL = strings.TrimRight(strings.TrimSpace(c.Notifications.BaseURL), "/")
	if c.Notifications.BaseURL == "" {
		c.Notifications.BaseURL = defaultNtfyBaseURL
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
	c.Notifications.Priority = strings.ToLower(strings.TrimSpace(c.Notifications.Priority))
}

func (c *Config) normalizeDashboard() {
	c.Dashboard.Bind = strings.TrimSpace(c.Dashboard.Bind)
	if c.Dashboard.Bind == "" {
		c.Dashboard.Bind = defaultDashboardBind
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
