package notify

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultDisconnectQuiesce = 250
)

// mqttClient is the part of pahomqtt.Client used for publishing.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

type mqttImpl struct {
	client mqttClient
	prefix string
	qos    byte
}

type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	QoS            byte
	ConnectTimeout time.Duration
}

// NewMQTT connects to an external broker and publishes each event on
// <TopicPrefix>/<event name>.
func NewMQTT(cfg *MQTTConfig) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Broker == "" {
		return nil, fmt.Errorf("broker is empty")
	}

	if cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid qos %d", cfg.QoS)
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		}).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connecting to %s: timeout after %v", cfg.Broker, timeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, err)
	}

	return newMQTT(client, cfg.TopicPrefix, cfg.QoS), nil
}

func newMQTT(client mqttClient, prefix string, qos byte) *mqttImpl {
	return &mqttImpl{
		client: client,
		prefix: prefix,
		qos:    qos,
	}
}

func (m *mqttImpl) Publish(ev Event) {
	payload, err := ev.JSON()
	if err != nil {
		log.Error().Err(err).Str("event", ev.Name).Msg("encoding notification")
		return
	}

	t := topic(m.prefix, ev.Name)
	token := m.client.Publish(t, m.qos, false, payload)

	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", t).Msg("publishing notification")
		}
	}()
}

func (m *mqttImpl) Close() error {
	m.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}
