package websocket

// EventPublisher delivers loan events to the owner's subscribers and to admin subscribers
type EventPublisher interface {
	Publish(event Event)
}

var _ EventPublisher = (*Hub)(nil)

// NoOpPublisher discards events. Used when streaming is disabled.
type NoOpPublisher struct{}

// Publish does nothing
func (NoOpPublisher) Publish(Event) {}
