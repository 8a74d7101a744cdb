package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"wildcam/internal/config"
	"wildcam/internal/logging"
)

// MessageHandler receives the raw body of every trigger message.
type MessageHandler func(ctx context.Context, raw []byte)

// Subscriber listens on the trigger topic and forwards each message to a
// MessageHandler. The client reconnects on its own and re-subscribes after
// every connect.
type Subscriber struct {
	cfg     *config.Config
	handle  MessageHandler
	logger  *slog.Logger
	topic   string
	qos     byte
	timeout time.Duration

	mu        sync.Mutex
	client    mqtt.Client
	ctx       context.Context
	connected atomic.Bool
	messages  atomic.Uint64
}

// NewSubscriber constructs a subscriber for cfg.MQTT.TriggerTopic.
func NewSubscriber(cfg *config.Config, handle MessageHandler, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		cfg:     cfg,
		handle:  handle,
		logger:  logging.NewComponentLogger(logger, "trigger"),
		topic:   cfg.MQTT.TriggerTopic,
		qos:     byte(cfg.MQTT.QoS),
		timeout: connectTimeout(cfg),
		ctx:     context.Background(),
	}
}

// Start connects to the broker. When the broker is unreachable within the
// connect timeout, Start logs a warning and returns nil; the client keeps
// retrying in the background.
func (s *Subscriber) Start(ctx context.Context) error {
	if s.handle == nil {
		return errors.New("trigger subscriber: message handler is nil")
	}
	routePahoLogs(s.logger)

	opts := clientOptions(s.cfg, s.cfg.MQTT.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOrderMatters(false)
	opts.OnConnect = s.onConnect
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.connected.Store(false)
		logging.WarnWithContext(s.logger, "mqtt connection lost, will auto-reconnect", "mqtt_connection_lost",
			logging.Error(err),
			logging.String("broker", s.cfg.BrokerURL()),
			logging.String(logging.FieldErrorHint, "check the broker and network"),
			logging.String(logging.FieldImpact, "triggers sent while disconnected are lost"),
		)
	}

	client := mqtt.NewClient(opts)
	s.mu.Lock()
	s.client = client
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Info("connecting to mqtt broker",
		logging.String("broker", s.cfg.BrokerURL()),
		logging.String("client_id", s.cfg.MQTT.ClientID),
		logging.String("topic", s.topic),
	)
	token := client.Connect()
	if !token.WaitTimeout(s.timeout) {
		logging.WarnWithContext(s.logger, "mqtt broker not reachable yet; retrying in background", "mqtt_connect_pending",
			logging.String("broker", s.cfg.BrokerURL()),
			logging.Duration("waited", s.timeout),
			logging.String(logging.FieldErrorHint, "verify mqtt.broker and mqtt.port"),
			logging.String(logging.FieldImpact, "no triggers are received until the broker connects"),
		)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (s *Subscriber) onConnect(client mqtt.Client) {
	s.connected.Store(true)
	token := client.Subscribe(s.topic, s.qos, s.onMessage)
	if !token.WaitTimeout(s.timeout) {
		logging.ErrorWithContext(s.logger, "mqtt subscribe timed out", "mqtt_subscribe_failed",
			logging.String("topic", s.topic),
			logging.String(logging.FieldErrorHint, "check broker load and ACLs"),
		)
		return
	}
	if err := token.Error(); err != nil {
		logging.ErrorWithContext(s.logger, "mqtt subscribe failed", "mqtt_subscribe_failed",
			logging.Error(err),
			logging.String("topic", s.topic),
			logging.String(logging.FieldErrorHint, "check broker ACLs for the trigger topic"),
		)
		return
	}
	s.logger.Info("subscribed to trigger topic",
		logging.String("topic", s.topic),
		logging.Int("qos", int(s.qos)),
	)
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	s.messages.Add(1)
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	s.logger.Debug("trigger message received",
		logging.String("topic", msg.Topic()),
		logging.Int("bytes", len(msg.Payload())),
	)
	s.handle(ctx, msg.Payload())
}

// Connected reports whether the client currently holds a broker connection.
func (s *Subscriber) Connected() bool {
	return s.connected.Load()
}

// Messages returns the number of trigger messages delivered so far.
func (s *Subscriber) Messages() uint64 {
	return s.messages.Load()
}

// Stop unsubscribes and disconnects.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return
	}
	if client.IsConnectionOpen() {
		token := client.Unsubscribe(s.topic)
		token.WaitTimeout(2 * time.Second)
	}
	client.Disconnect(250)
	s.connected.Store(false)
	s.logger.Info("mqtt disconnected")
}
