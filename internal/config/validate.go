package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMQTT(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMQTT() error {
	if c.MQTT.TriggerTopic == "" {
		return errors.New("mqtt.trigger_topic must be set")
	}
	if c.MQTT.Port > 65535 {
		return fmt.Errorf("mqtt.port %d is out of range", c.MQTT.Port)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errors.New("mqtt.qos must be 0, 1, or 2")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.DurationMS <= 0 {
		return errors.New("capture.duration_ms must be positive")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	switch c.Classifier.Backend {
	case ClassifierBackendCommand:
		if c.Classifier.Command == "" {
			return errors.New("classifier.command must be set when classifier.backend is \"command\"")
		}
		if c.Classifier.ModelPath == "" {
			return errors.New("classifier.model_path must be set when classifier.backend is \"command\"")
		}
	case ClassifierBackendHTTP:
		if c.Classifier.Endpoint == "" {
			return errors.New("classifier.endpoint must be set when classifier.backend is \"http\"")
		}
	default:
		return fmt.Errorf("classifier.backend: unsupported value %q (expected command or http)", c.Classifier.Backend)
	}
	if len(c.Classifier.AnimalLabels) == 0 {
		return errors.New("classifier.animal_labels must list at least one label")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.CooldownSeconds < 0 {
		return errors.New("pipeline.cooldown_seconds must not be negative")
	}
	if c.Pipeline.StoreTimeoutSeconds <= 0 {
		return errors.New("pipeline.store_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	switch c.Notifications.Priority {
	case "", "min", "low", "default", "high", "max", "urgent":
	default:
		return fmt.Errorf("notifications.priority: unsupported value %q", c.Notifications.Priority)
	}
	base := c.Notifications.BaseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("notifications.base_url must be an http(s) URL, got %q", base)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
