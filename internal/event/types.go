package event

import "time"

// Event is one notification sitting in, or delivered from, a queue
type Event struct {
	// Queue is the key the event was published under. Set by Publish.
	Queue string
	// Type names what happened, by convention "noun.verb" (e.g. "entry.added").
	Type    string
	Payload map[string]any
	At      time.Time
}

// New returns an event of type name stamped with the current time
func New(name string, payload map[string]any) Event {
	return Event{
		Type:    name,
		Payload: payload,
		At:      time.Now(),
	}
}

// PayloadString returns a value from the payload, or "" when absent or not a string
func (e Event) PayloadString(key string) string {
	s, _ := e.Payload[key].(string)
	return s
}

// Handler receives delivered events
type Handler func(Event)

type subscription struct {
	id      string
	key     string
	handler Handler
}
