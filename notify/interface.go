package notify

// Interface publishes events to whoever is watching the assistant (the
// dashboard, other automations). Delivery is best effort: Publish never
// blocks on the subscriber side and never reports failure to the caller.
type Interface interface {
	Publish(ev Event)
	Close() error
}
