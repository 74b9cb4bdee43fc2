package notify

import "github.com/rs/zerolog/log"

type logImpl struct{}

// NewLog returns a publisher that only writes events to the log.
func NewLog() Interface {
	return logImpl{}
}

func (logImpl) Publish(ev Event) {
	payload, _ := ev.JSON()

	log.Info().Str("event", ev.Name).RawJSON("payload", payload).Msg("notification")
}

func (logImpl) Close() error {
	return nil
}
