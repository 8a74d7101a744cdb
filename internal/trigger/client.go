package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"wildcam/internal/config"
	"wildcam/internal/logging"
)

var pahoLoggerOnce sync.Once

// routePahoLogs sends paho's internal error and warning output through slog.
func routePahoLogs(logger *slog.Logger) {
	pahoLoggerOnce.Do(func() {
		base := logging.NewComponentLogger(logger, "mqtt")
		mqtt.ERROR = pahoLogger{logger: base, level: slog.LevelError}
		mqtt.CRITICAL = pahoLogger{logger: base, level: slog.LevelError}
		mqtt.WARN = pahoLogger{logger: base, level: slog.LevelWarn}
	})
}

type pahoLogger struct {
	logger *slog.Logger
	level  slog.Level
}

func (p pahoLogger) Println(v ...any) {
	p.logger.Log(context.Background(), p.level, strings.TrimSpace(fmt.Sprintln(v...)))
}

func (p pahoLogger) Printf(format string, v ...any) {
	p.logger.Log(context.Background(), p.level, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func clientOptions(cfg *config.Config, clientID string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetClientID(clientID)
	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	keepAlive := time.Duration(cfg.MQTT.KeepAliveSeconds) * time.Second
	if keepAlive <= 0 {
		keepAlive = 60 * time.Second
	}
	opts.SetKeepAlive(keepAlive)
	opts.SetConnectTimeout(connectTimeout(cfg))
	opts.SetCleanSession(true)
	return opts
}

func connectTimeout(cfg *config.Config) time.Duration {
	timeout := time.Duration(cfg.MQTT.ConnectTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return timeout
}
