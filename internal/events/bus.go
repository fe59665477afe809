package events

// Handler observes a published event.
type Handler func(Event)

// Publisher accepts events for dispatch.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(Event) {})

// Bus routes events synchronously to handlers registered for their kind.
// Subscriptions are made while wiring the application; subscribing while
// another goroutine publishes is not supported.
type Bus struct {
	handlers map[Kind][]Handler
	all      []Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// Subscribe registers h for events of kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	if h == nil {
		return
	}
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers h for every kind. Such handlers run after the
// kind-specific ones, in the order they were added.
func (b *Bus) SubscribeAll(h Handler) {
	if h == nil {
		return
	}
	b.all = append(b.all, h)
}

// Publish invokes every matching handler once, in subscription order, before returning.
func (b *Bus) Publish(e Event) {
	if e == nil {
		return
	}
	for _, h := range b.handlers[e.Kind()] {
		h(e)
	}
	for _, h := range b.all {
		h(e)
	}
}

// PublishAll publishes events in order.
func PublishAll(p Publisher, batch []Event) {
	if p == nil {
		return
	}
	for _, e := range batch {
		p.Publish(e)
	}
}
