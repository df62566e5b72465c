package domain

import "time"

// Event types pushed to desktop clients.
const (
	EventFileCreated      = "file.created"
	EventFileModified     = "file.modified"
	EventFileDeleted      = "file.deleted"
	EventCommandCompleted = "command.completed"
)

// Event is a notification fanned out to connected desktop clients.
type Event struct {
	Type string    `json:"type"`
	Path string    `json:"path,omitempty"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}
