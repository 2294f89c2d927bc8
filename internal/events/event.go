// Package events publishes domain events about users and menu items and
// reacts to events published by other instances.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "college-portal-service"
	EventVersion = "1.0"
)

type EventType string

const (
	UserCreated EventType = "user.created"
	UserUpdated EventType = "user.updated"
	UserDeleted EventType = "user.deleted"
	MenuChanged EventType = "menu.changed"
)

// Event is the envelope written to the events topic.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

func NewEvent(eventType EventType, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// UserEventData identifies the user an event refers to.
type UserEventData struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// MenuEventData describes a menu mutation.
type MenuEventData struct {
	Action string `json:"action"`
	ItemID string `json:"itemId,omitempty"`
	Count  int    `json:"count,omitempty"`
}

func decodeEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("invalid event payload: missing type")
	}
	return &ev, nil
}
