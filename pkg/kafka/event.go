package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types exchanged by the catalog service.
const (
	EventCatalogSearched = "catalog.searched"
	EventProductCreated  = "product.created"
	EventProductUpdated  = "product.updated"
	EventProductDeleted  = "product.deleted"
)

// TopicPrefix namespaces every topic this service reads or writes.
const TopicPrefix = "prspares"

// Topic returns the fully-qualified topic for an event type,
// e.g. "prspares.catalog.searched".
func Topic(eventType string) string {
	return TopicPrefix + "." + eventType
}

// Event is the JSON envelope carried in every message value.
type Event struct {
	ID            string          `json:"event_id"`
	Type          string          `json:"event_type"`
	Key           string          `json:"key"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent builds an envelope around data. key selects the partition, so all
// events for one product land in order.
func NewEvent(eventType, key, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Key:       key,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals a message value into an Event. Values without an event
// type are rejected.
func Decode(value []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(value, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("decode event: missing event_type")
	}
	return &e, nil
}

func encode(e *Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.Type, err)
	}
	return b, nil
}

// DecodeData unmarshals the payload into target.
func (e *Event) DecodeData(target any) error {
	return json.Unmarshal(e.Data, target)
}

// SearchedData is the payload of catalog.searched.
type SearchedData struct {
	Search     string `json:"search,omitempty"`
	Model      string `json:"model,omitempty"`
	Page       int    `json:"page,omitempty"`
	TotalCount int    `json:"total_count"`
	UserID     string `json:"user_id,omitempty"`
}

// ProductChangedData is the payload of the product.* events. Only the id is
// needed; consumers reload from the database.
type ProductChangedData struct {
	ProductID string `json:"product_id"`
}
