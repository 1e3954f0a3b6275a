package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
)

const (
	ReconnectInterval = 5 * time.Second
	CommandQoS        = 1
	SubscribeQoS      = 1

	defaultTimeout = 10 * time.Second
	clientIDPrefix = "tracker_"
)

var ErrNotConnected = errors.New("mqtt: not connected")

// Client is the broker connection. It reconnects on its own at a fixed
// interval and restores subscriptions after every (re)connect.
type Client struct {
	client   pahomqtt.Client
	mu       sync.Mutex
	topics   []string
	handler  func(topic string, payload []byte)
	onStatus func(connected bool)
	timeout  time.Duration
}

func NewClient(cfg common.MQTTConfig, onStatus func(connected bool)) *Client {
	c := &Client{onStatus: onStatus, timeout: defaultTimeout}
	c.client = pahomqtt.NewClient(c.options(cfg))
	return c
}

func newClientWith(client pahomqtt.Client, onStatus func(connected bool)) *Client {
	return &Client{client: client, onStatus: onStatus, timeout: defaultTimeout}
}

func ClientID(cfg common.MQTTConfig) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return clientIDPrefix + uuid.NewString()[:8]
}

func (c *Client) options(cfg common.MQTTConfig) *pahomqtt.ClientOptions {
	logger := common.GetLoggerWith(common.LoggerNameTransport)

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(ClientID(cfg))

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(ReconnectInterval)
	opts.SetMaxReconnectInterval(ReconnectInterval)
	// handlers run one at a time in arrival order
	opts.SetOrderMatters(true)

	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(c.handleConnectionLost)
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		logger.Info("Reconnecting to broker", zap.String("broker", cfg.Broker))
	})
	return opts
}

// Connect starts connecting. When the broker is not reachable before ctx is
// done, it keeps retrying in the background and Connect returns nil.
func (c *Client) Connect(ctx context.Context) error {
	logger := common.GetLoggerWith(common.LoggerNameTransport)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Warn("Broker not reachable yet, retrying in background", zap.Error(ctx.Err()))
		return nil
	}
}

func (c *Client) Disconnect() {
	c.client.Disconnect(250)
	c.setStatus(false)
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Subscribe records the subscription and applies it now if connected, or on
// the next connect otherwise.
func (c *Client) Subscribe(topics []string, handler func(topic string, payload []byte)) error {
	c.mu.Lock()
	c.topics = append([]string(nil), topics...)
	c.handler = handler
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return nil
	}
	return c.subscribe()
}

func (c *Client) Publish(topic string, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, CommandQoS, false, payload)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) subscribe() error {
	c.mu.Lock()
	topics := c.topics
	c.mu.Unlock()

	if len(topics) == 0 {
		return nil
	}

	filters := make(map[string]byte, len(topics))
	for _, topic := range topics {
		filters[topic] = SubscribeQoS
	}

	token := c.client.SubscribeMultiple(filters, c.route)
	if !token.WaitTimeout(c.timeout) {
		return errors.New("subscribe: timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	common.GetLoggerWith(common.LoggerNameTransport).Info("Subscribed", zap.Strings("topics", topics))
	return nil
}

func (c *Client) route(_ pahomqtt.Client, msg pahomqtt.Message) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()

	if handler != nil {
		handler(msg.Topic(), msg.Payload())
	}
}

func (c *Client) handleConnect(_ pahomqtt.Client) {
	logger := common.GetLoggerWith(common.LoggerNameTransport)
	logger.Info("Connected to broker")

	c.setStatus(true)
	if err := c.subscribe(); err != nil {
		logger.Error("Failed to restore subscriptions", zap.Error(err))
	}
}

func (c *Client) handleConnectionLost(_ pahomqtt.Client, err error) {
	common.GetLoggerWith(common.LoggerNameTransport).Warn("Lost broker connection", zap.Error(err))
	c.setStatus(false)
}

func (c *Client) setStatus(connected bool) {
	if c.onStatus != nil {
		c.onStatus(connected)
	}
}
