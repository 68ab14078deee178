package mqtt

import (
	"context"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"seattle-events/internal/config"
)

// MessageHandler processes one raw payload.
type MessageHandler func(ctx context.Context, payload []byte) error

type Subscriber struct {
	*conn
	handler MessageHandler
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) *Subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscriber{ctx: ctx, cancel: cancel}
	// Subscribing from the connect callback restores the subscription after
	// a reconnect with a clean session.
	s.conn = newConn(cfg, cfg.MQTTClientID, logger, func() {
		if err := s.subscribe(); err != nil {
			s.logger.Error("mqtt subscribe failed", "topic", cfg.MQTTTopic, "error", err)
		}
	})
	return s
}

// SetMessageHandler must be called before Connect.
func (s *Subscriber) SetMessageHandler(handler MessageHandler) {
	s.handler = handler
}

func (s *Subscriber) Connect(ctx context.Context) error {
	return s.connect(ctx)
}

func (s *Subscriber) IsConnected() bool {
	return s.isConnected()
}

func (s *Subscriber) subscribe() error {
	topic := s.cfg.MQTTTopic
	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if err := wait(token, 5*time.Second, "subscribe to "+topic); err != nil {
		return err
	}
	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))
	if s.handler == nil {
		s.logger.Warn("no mqtt message handler set, dropping message", "topic", topic)
		return
	}
	// Errors are logged by the handler. MQTT offers no negative ack, so the
	// message is done either way.
	if err := s.handler(s.ctx, payload); err != nil {
		s.logger.Debug("mqtt message not stored", "topic", topic, "error", err)
	}
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.cancel()
	s.disconnect(func() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	})
	s.logger.Info("mqtt subscriber disconnected")
}
