package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of domain event.
type EventType string

const (
	EventFormCreated      EventType = "FORM_CREATED"
	EventFormUpdated      EventType = "FORM_UPDATED"
	EventFormPublished    EventType = "FORM_PUBLISHED"
	EventFormForked       EventType = "FORM_FORKED"
	EventFormArchived     EventType = "FORM_ARCHIVED"
	EventFormDeleted      EventType = "FORM_DELETED"
	EventFormSyncDegraded EventType = "FORM_SYNC_DEGRADED"
	EventFormResynced     EventType = "FORM_RESYNCED"
)

// AllFormEvents lists every event type raised by the form services.
var AllFormEvents = []EventType{
	EventFormCreated,
	EventFormUpdated,
	EventFormPublished,
	EventFormForked,
	EventFormArchived,
	EventFormDeleted,
	EventFormSyncDegraded,
	EventFormResynced,
}

const AggregateForm = "form"

// DomainEvent is an immutable record of something that happened to a form.
// Events are dispatched after the transaction that produced them commits.
type DomainEvent struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	Payload       []byte    `json:"payload"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// FormEventPayload is the payload of every form event. Only the fields that
// apply to the event type are set.
type FormEventPayload struct {
	FormID      int64   `json:"form_id"`
	Code        string  `json:"code,omitempty"`
	Status      string  `json:"status,omitempty"`
	SourceID    int64   `json:"source_id,omitempty"`
	ArchivedIDs []int64 `json:"archived_ids,omitempty"`
	SoftDeleted bool    `json:"soft_deleted,omitempty"`
	Operation   string  `json:"operation,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// NewFormEvent builds a form event with a time-ordered id.
func NewFormEvent(eventType EventType, actor string, payload FormEventPayload) (*DomainEvent, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &DomainEvent{
		EventID:       id.String(),
		EventType:     eventType,
		AggregateType: AggregateForm,
		AggregateID:   strconv.FormatInt(payload.FormID, 10),
		Payload:       data,
		CreatedBy:     actor,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// FormPayload decodes the event payload.
func (e *DomainEvent) FormPayload() (FormEventPayload, error) {
	var p FormEventPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return p, nil
}
