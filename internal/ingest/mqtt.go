package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/edgepulse/edgepulse/internal/pipeline"
	"github.com/edgepulse/edgepulse/internal/store"
)

// Consumer subscribes to the configured topics and feeds every message
// through the pipeline.
type Consumer struct {
	client mqtt.Client
	pipe   *pipeline.Pipeline
	topics []string
	qos    byte
}

// Options configures a Consumer.
type Options struct {
	Broker   string
	ClientID string
	Topics   []string
	QoS      byte
	Username string
	Password string
}

// NewConsumer builds a Consumer. Subscriptions are (re)established on every
// successful connect, so they survive broker restarts.
func NewConsumer(opts Options, pipe *pipeline.Pipeline) *Consumer {
	c := &Consumer{pipe: pipe, topics: opts.Topics, qos: opts.QoS}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}
	clientOpts.SetOnConnectHandler(func(client mqtt.Client) {
		for _, topic := range c.topics {
			token := client.Subscribe(topic, c.qos, c.onMessage)
			go func(topic string) {
				if token.Wait(); token.Error() != nil {
					slog.Error("ingest: subscribe failed", "topic", topic, "err", token.Error())
				} else {
					slog.Info("ingest: subscribed", "topic", topic)
				}
			}(topic)
		}
	})
	clientOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("ingest: broker connection lost", "err", err)
	})

	c.client = mqtt.NewClient(clientOpts)
	return c
}

// Start connects to the broker and disconnects when ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	token := c.client.Connect()
	if token.Wait(); token.Error() != nil {
		return fmt.Errorf("ingest: connect to broker: %w", token.Error())
	}
	go func() {
		<-ctx.Done()
		c.client.Disconnect(250)
	}()
	return nil
}

func (c *Consumer) onMessage(_ mqtt.Client, msg mqtt.Message) {
	HandleMessage(context.Background(), c.pipe, msg.Topic(), msg.Payload())
}

// HandleMessage runs one bus message through the pipeline. The bus topic
// fills in for a payload that carries none of its own. Errors are logged
// and the message is dropped; there are no negative-ack semantics here,
// and the pipeline's idempotence keeps broker redelivery harmless.
func HandleMessage(ctx context.Context, pipe *pipeline.Pipeline, topic string, payload []byte) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		slog.Warn("ingest: dropping undecodable message", "topic", topic, "err", err)
		return
	}
	if _, ok := raw["topic"]; !ok {
		raw["topic"] = topic
	}

	res, err := pipe.Ingest(ctx, raw)
	if err != nil {
		slog.Warn("ingest: dropping message", "topic", topic, "err", err)
		return
	}
	if res.Outcome == store.Inserted {
		slog.Debug("ingest: stored message",
			"device", res.Record.DeviceKey, "health", res.Record.Health)
	}
}
