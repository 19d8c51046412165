package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who produced the event: "customer", "system" or an operator subject.
type ActorRef struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
