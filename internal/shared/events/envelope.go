package events

import (
	"encoding/json"
	"time"
)

// Envelope is the canonical cross-module event shape carried on the bus and
// persisted in module outboxes. Data holds the already-encoded event payload
// so relays never re-marshal domain types.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}
