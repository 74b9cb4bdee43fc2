package notify

import (
	"fmt"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/rs/zerolog/log"
)

type brokerImpl struct {
	server *mochi.Server
	prefix string
}

type BrokerConfig struct {
	// Address the embedded broker listens on, e.g. ":1883".
	Address     string
	TopicPrefix string
}

// NewBroker runs an MQTT broker in process and publishes through its inline
// client, so dashboards can subscribe without any external infrastructure.
func NewBroker(cfg *BrokerConfig) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("address is empty")
	}

	server := mochi.New(&mochi.Options{
		InlineClient: true,
	})

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, err
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "notify", Address: cfg.Address})
	if err := server.AddListener(tcp); err != nil {
		return nil, err
	}

	if err := server.Serve(); err != nil {
		return nil, err
	}

	log.Info().Str("address", cfg.Address).Msg("embedded mqtt broker started")

	return &brokerImpl{
		server: server,
		prefix: cfg.TopicPrefix,
	}, nil
}

func (b *brokerImpl) Publish(ev Event) {
	payload, err := ev.JSON()
	if err != nil {
		log.Error().Err(err).Str("event", ev.Name).Msg("encoding notification")
		return
	}

	t := topic(b.prefix, ev.Name)
	if err := b.server.Publish(t, payload, false, 0); err != nil {
		log.Warn().Err(err).Str("topic", t).Msg("publishing notification")
	}
}

func (b *brokerImpl) Close() error {
	return b.server.Close()
}
