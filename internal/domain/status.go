package domain

import (
	"database/sql/driver"
	"fmt"
)

type MessageStatus string

const (
	StatusScheduled  MessageStatus = "scheduled"
	StatusQueued     MessageStatus = "queued"
	StatusProcessing MessageStatus = "processing"
	StatusSent       MessageStatus = "sent"
	StatusFailed     MessageStatus = "failed"
	StatusCancelled  MessageStatus = "cancelled"
)

func (s MessageStatus) String() string {
	return string(s)
}

func (s MessageStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusQueued, StatusProcessing,
		StatusSent, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible from s.
func (s MessageStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed || s == StatusCancelled
}

// IsCancellable reports whether a user cancel is honored in s.
func (s MessageStatus) IsCancellable() bool {
	return s == StatusQueued || s == StatusScheduled
}

// CanTransitionTo encodes the dispatch lifecycle. processing -> queued is the
// stuck-message recovery reset; queued -> failed is used when a message can
// never be sent (invalid recipient, exhausted retries).
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	switch s {
	case StatusScheduled:
		return next == StatusQueued || next == StatusCancelled
	case StatusQueued:
		return next == StatusProcessing || next == StatusCancelled || next == StatusFailed
	case StatusProcessing:
		return next == StatusSent || next == StatusFailed || next == StatusQueued
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for MessageStatus
func (s *MessageStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = MessageStatus(v)
	case []byte:
		*s = MessageStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MessageStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MessageStatus
func (s MessageStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid MessageStatus: %s", s)
	}
	return string(s), nil
}

func ParseStatus(raw string) (MessageStatus, error) {
	s := MessageStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}
