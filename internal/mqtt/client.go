package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/secretengineer/GreenOS/internal/models"
	"github.com/secretengineer/GreenOS/internal/safety"
)

// ClientConfig holds MQTT client configuration. Topic patterns may
// contain a {greenhouse_id} placeholder.
type ClientConfig struct {
	Broker       string
	ClientID     string
	Username     string
	Password     string
	GreenhouseID string

	TelemetryTopic string
	AlertsTopic    string
	StatusTopic    string
	CommandsTopic  string
	ReadingsTopic  string
	ConfigTopic    string
}

// CommandMessage is a remote actuator command received from the cloud.
type CommandMessage struct {
	Actuator string `json:"actuator"`
	State    string `json:"state"`
}

// AlertMessage is the payload published for every classified anomaly.
type AlertMessage struct {
	GreenhouseID   string          `json:"greenhouse_id"`
	Classification string          `json:"classification"`
	Detail         string          `json:"detail"`
	Snapshot       models.Snapshot `json:"snapshot"`
	SentAt         time.Time       `json:"sent_at"`
}

// StatusMessage carries the actuator record set and recent command log.
type StatusMessage struct {
	GreenhouseID string                   `json:"greenhouse_id"`
	Actuators    []safety.Record          `json:"actuators"`
	Commands     []safety.CommandLogEntry `json:"commands"`
	SentAt       time.Time                `json:"sent_at"`
}

// Handlers contains callbacks for inbound messages. OnConfig receives
// the raw payload of a threshold-config update; parsing stays with the
// caller so a malformed document is rejected in one place.
type Handlers struct {
	OnCommand  func(id safety.ActuatorID, desired safety.State)
	OnReadings func(raw models.RawInputs)
	OnConfig   func(payload []byte)
}

// Client is the cloud channel: it publishes telemetry, alerts and
// status, and receives remote commands and raw readings from field
// nodes. Broker loss never stalls the control loop; publishes fail
// fast and reconnection is automatic.
type Client struct {
	client   mqtt.Client
	cfg      ClientConfig
	handlers Handlers
	logger   *slog.Logger

	mu      sync.Mutex
	lastRaw *models.RawInputs
}

// NewClient connects to the broker and returns a ready client.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("connected to MQTT broker", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}

	return &Client{client: client, cfg: cfg, logger: logger}, nil
}

// SetHandlers sets the inbound message callbacks.
func (c *Client) SetHandlers(h Handlers) {
	c.handlers = h
}

// Subscribe attaches to the command and readings topics.
func (c *Client) Subscribe() error {
	if topic := c.topic(c.cfg.CommandsTopic); topic != "" {
		if err := c.subscribe(topic, c.handleCommand); err != nil {
			return fmt.Errorf("subscribe to commands topic: %w", err)
		}
		c.logger.Info("subscribed", "topic", topic)
	}
	if topic := c.topic(c.cfg.ReadingsTopic); topic != "" {
		if err := c.subscribe(topic, c.handleReadings); err != nil {
			return fmt.Errorf("subscribe to readings topic: %w", err)
		}
		c.logger.Info("subscribed", "topic", topic)
	}
	if topic := c.topic(c.cfg.ConfigTopic); topic != "" {
		if err := c.subscribe(topic, c.handleConfig); err != nil {
			return fmt.Errorf("subscribe to config topic: %w", err)
		}
		c.logger.Info("subscribed", "topic", topic)
	}
	return nil
}

func (c *Client) subscribe(topic string, handler mqtt.MessageHandler) error {
	token := c.client.Subscribe(topic, 1, handler)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (c *Client) handleCommand(_ mqtt.Client, msg mqtt.Message) {
	var cmd CommandMessage
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		c.logger.Warn("malformed command payload", "topic", msg.Topic(), "error", err)
		return
	}
	if c.handlers.OnCommand != nil {
		c.handlers.OnCommand(safety.ActuatorID(cmd.Actuator), safety.State(cmd.State))
	}
}

func (c *Client) handleReadings(_ mqtt.Client, msg mqtt.Message) {
	var raw models.RawInputs
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		c.logger.Warn("malformed readings payload", "topic", msg.Topic(), "error", err)
		return
	}
	c.mu.Lock()
	c.lastRaw = &raw
	c.mu.Unlock()
	if c.handlers.OnReadings != nil {
		c.handlers.OnReadings(raw)
	}
}

func (c *Client) handleConfig(_ mqtt.Client, msg mqtt.Message) {
	if c.handlers.OnConfig != nil {
		c.handlers.OnConfig(msg.Payload())
	}
}

// Poll returns the most recent raw readings received from the field
// nodes, restamped with the caller's tick. Implements the sensor
// transport over the MQTT feed. The error is non-nil until the first
// reading arrives.
func (c *Client) Poll(nowMs int64) (models.RawInputs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRaw == nil {
		return models.RawInputs{TickMs: nowMs}, fmt.Errorf("no readings received yet")
	}
	raw := *c.lastRaw
	raw.TickMs = nowMs
	return raw, nil
}

// PublishTelemetry sends the latest snapshot.
func (c *Client) PublishTelemetry(snap models.Snapshot) error {
	return c.publishJSON(c.topic(c.cfg.TelemetryTopic), snap)
}

// PublishAlert sends an anomaly alert.
func (c *Client) PublishAlert(classification, detail string, snap models.Snapshot) error {
	return c.publishJSON(c.topic(c.cfg.AlertsTopic), AlertMessage{
		GreenhouseID:   c.cfg.GreenhouseID,
		Classification: classification,
		Detail:         detail,
		Snapshot:       snap,
		SentAt:         time.Now().UTC(),
	})
}

// PublishStatus sends the actuator records and recent command log.
func (c *Client) PublishStatus(records []safety.Record, commands []safety.CommandLogEntry) error {
	return c.publishJSON(c.topic(c.cfg.StatusTopic), StatusMessage{
		GreenhouseID: c.cfg.GreenhouseID,
		Actuators:    records,
		Commands:     commands,
		SentAt:       time.Now().UTC(),
	})
}

func (c *Client) publishJSON(topic string, v any) error {
	if topic == "" {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", topic, err)
	}
	token := c.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish to %s: %w", topic, token.Error())
	}
	return nil
}

func (c *Client) topic(pattern string) string {
	return strings.ReplaceAll(pattern, "{greenhouse_id}", c.cfg.GreenhouseID)
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Info("MQTT client disconnected")
}
