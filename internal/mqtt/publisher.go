package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"seattle-events/internal/config"
)

const publishTimeout = 5 * time.Second

type Publisher struct {
	*conn
}

// NewPublisher uses "<MQTT_CLIENT_ID>-publisher" so it can run next to a
// subscribing server without taking over its session.
func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	return &Publisher{conn: newConn(cfg, cfg.MQTTClientID+"-publisher", logger, nil)}
}

func (p *Publisher) Connect(ctx context.Context) error {
	return p.connect(ctx)
}

// Publish sends payload to the configured topic and waits for the broker ack.
func (p *Publisher) Publish(payload []byte) error {
	if !p.isConnected() {
		return errors.New("mqtt client not connected")
	}
	topic := p.cfg.MQTTTopic
	token := p.client.Publish(topic, qos, false, payload)
	if err := wait(token, publishTimeout, "publish to "+topic); err != nil {
		p.logger.Error("failed to publish", "topic", topic, "error", err)
		return err
	}
	p.logger.Debug("published", "topic", topic, "size", len(payload))
	return nil
}

// Disconnect is idempotent.
func (p *Publisher) Disconnect() {
	p.disconnect(nil)
	p.logger.Info("mqtt publisher disconnected")
}
