// Package mqtt publishes decoded CAN messages to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"canscope/pkg/can"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/womat/debug"
)

// quiesce is the specified number of milliseconds to wait for existing work to be completed.
const (
	quiesce        = 250
	connectTimeout = 10 * time.Second
	clientID       = "canscope"
)

// Config is the broker connection and publishing configuration.
type Config struct {
	Connection string `yaml:"connection"`
	// Topic is the topic prefix; each message goes to <Topic>/<identifier>.
	Topic    string `yaml:"topic"`
	Qos      byte   `yaml:"qos"`
	Retained bool   `yaml:"retained"`
}

// Handler contains the handler of the mqtt broker.
type Handler struct {
	client mqttlib.Client
	config Config
	// C is the channel to service decoded messages;
	// sending a message to channel C publishes it.
	C chan can.Message
}

// New generates a new mqtt broker client.
func New(config Config) *Handler {
	return &Handler{
		config: config,
		C:      make(chan can.Message, 64),
	}
}

// Connect connects to the mqtt broker.
// If no broker is defined, no message is sent.
func (m *Handler) Connect() error {
	if m.config.Connection == "" {
		return nil
	}

	opts := mqttlib.NewClientOptions().
		AddBroker(m.config.Connection).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)
	m.client = mqttlib.NewClient(opts)
	return m.ReConnect()
}

// ReConnect reconnects to the defined mqtt broker.
func (m *Handler) ReConnect() error {
	t := m.client.Connect()
	<-t.Done()
	return t.Error()
}

// Disconnect will end the connection to the broker.
func (m *Handler) Disconnect() error {
	if m.client == nil {
		return nil
	}

	m.client.Disconnect(quiesce)
	return nil
}

// Topic returns the topic of a message.
func Topic(prefix string, msg can.Message) string {
	prefix = strings.TrimRight(prefix, "/")
	if msg.Extended {
		return fmt.Sprintf("%s/%08X", prefix, msg.ID)
	}
	return fmt.Sprintf("%s/%03X", prefix, msg.ID)
}

// Service listens to messages on channel C and publishes them until C is closed.
// If no client or topic is defined, the messages are dropped.
func (m *Handler) Service() {
	for msg := range m.C {
		if m.client == nil || m.config.Topic == "" {
			continue
		}

		payload, err := json.Marshal(msg)
		if err != nil {
			debug.ErrorLog.Printf("encoding message %v: %v", msg, err)
			continue
		}
		m.publish(Topic(m.config.Topic, msg), payload)
	}
}

func (m *Handler) publish(topic string, payload []byte) {
	if !m.client.IsConnected() {
		debug.DebugLog.Printf("mqtt broker isn't connected, reconnect it")

		if err := m.ReConnect(); err != nil {
			debug.ErrorLog.Printf("can't reconnect to mqtt broker %v", err)
			return
		}
	}

	debug.TraceLog.Printf("publishing %v bytes to topic %v", len(payload), topic)
	t := m.client.Publish(topic, m.config.Qos, m.config.Retained, payload)

	go func() {
		<-t.Done()
		if err := t.Error(); err != nil {
			debug.ErrorLog.Printf("publishing topic %v: %v", topic, err)
		}
	}()
}
