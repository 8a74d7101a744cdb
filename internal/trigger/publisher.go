package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"wildcam/internal/config"
	"wildcam/internal/logging"
)

// Publish sends one trigger message to cfg.MQTT.TriggerTopic and waits for
// the broker to accept it. It uses its own short-lived client so it can run
// beside a daemon holding the configured client id.
func Publish(ctx context.Context, cfg *config.Config, payload Payload, logger *slog.Logger) error {
	body, err := Encode(payload)
	if err != nil {
		return err
	}
	routePahoLogs(logger)

	clientID := cfg.MQTT.ClientID + "-cli-" + uuid.NewString()[:8]
	client := mqtt.NewClient(clientOptions(cfg, clientID))
	timeout := connectTimeout(cfg)

	token := client.Connect()
	if err := waitToken(ctx, token, timeout); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", cfg.BrokerURL(), err)
	}
	defer client.Disconnect(250)

	token = client.Publish(cfg.MQTT.TriggerTopic, byte(cfg.MQTT.QoS), false, body)
	if err := waitToken(ctx, token, timeout); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	logging.NewComponentLogger(logger, "trigger").Info("trigger published",
		logging.String("topic", cfg.MQTT.TriggerTopic),
		logging.String("payload", string(body)),
	)
	return nil
}

type waiter interface {
	Done() <-chan struct{}
	Error() error
}

func waitToken(ctx context.Context, token waiter, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errors.New("timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}
