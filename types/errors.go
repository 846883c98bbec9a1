package types

import "fmt"

// Error taxonomy. All of these are local to a single message or command,
// none is fatal to the session.

// ProtocolError marks a malformed or unrecognized inbound payload. The
// offending message is dropped, the stream continues.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// UnknownRoomError marks an event or command referencing a room the store
// does not know, typically an ordering violation (an event arrived before
// the room's enter message). No phantom room is created.
type UnknownRoomError struct {
	RoomId string
}

func (e *UnknownRoomError) Error() string {
	return fmt.Sprintf("unknown room %q", e.RoomId)
}

// ValidationError rejects invalid local command input before anything is
// sent over the wire.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// NoRoomSelectedError rejects a command that requires a current room while
// none is selected.
type NoRoomSelectedError struct{}

func (e *NoRoomSelectedError) Error() string {
	return "no room selected"
}
