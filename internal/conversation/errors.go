// ABOUTME: Errors returned by the conversation store and message exchange
// ABOUTME: OpError wraps list, load and delete failures with display text

package conversation

import (
	"errors"
	"fmt"
)

// Exchange errors
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrSendInFlight = errors.New("a message is already being sent")
)

// ErrSuperseded is returned by Select when its result arrived after the
// active conversation had moved on.
var ErrSuperseded = errors.New("conversation load superseded")

// Store operations
const (
	OpList   = "list"
	OpLoad   = "load"
	OpDelete = "delete"
)

// OpError is a failed list, load or delete. The store is unchanged.
type OpError struct {
	Op  string
	ID  ID
	Err error
}

func (e *OpError) Error() string {
	switch e.Op {
	case OpList:
		return fmt.Sprintf("listing conversations: %v", e.Err)
	case OpLoad:
		return fmt.Sprintf("loading conversation %s: %v", e.ID, e.Err)
	case OpDelete:
		return fmt.Sprintf("deleting conversation %s: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("%s conversation %s: %v", e.Op, e.ID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Message returns text for display.
func (e *OpError) Message() string {
	switch e.Op {
	case OpLoad:
		return "Error loading chat. Please try again."
	case OpDelete:
		return "Error deleting chat. Please try again."
	}
	return "Error loading chats. Please try again."
}
