package types

// Inbound event types, exactly one variant per wire message.
const (
	EventTypeText        = 1
	EventTypeRoomEnter   = 2
	EventTypeRoomDelete  = 3
	EventTypeRoomRename  = 4
	EventTypeUserAdded   = 5
	EventTypeUserRemoved = 6
)

type Event interface {
	GetEventType() int
	GetRoomId() string
}

type EventBase struct {
	EventType int
	RoomId    string
}

func (e *EventBase) GetEventType() int {
	return e.EventType
}

func (e *EventBase) GetRoomId() string {
	return e.RoomId
}

// EventText appends a chat message to a known room's log.
type EventText struct {
	*EventBase
	*Message
}

// EventRoomEnter announces visibility of a room, with its current roster.
// Re-delivery after a reconnect is expected and reconciled idempotently.
type EventRoomEnter struct {
	*EventBase
	RoomName string
	Roster   []RosterEntry
}

type EventRoomDelete struct {
	*EventBase
}

type EventRoomRename struct {
	*EventBase
	NewName string
}

type EventUserAdded struct {
	*EventBase
	User RosterEntry
}

type EventUserRemoved struct {
	*EventBase
	UserId string
}

func NewTextEvent(message Message) *EventText {
	return &EventText{
		EventBase: &EventBase{EventType: EventTypeText, RoomId: message.RoomId},
		Message:   &message,
	}
}

func NewRoomEnterEvent(roomId, roomName string, roster []RosterEntry) *EventRoomEnter {
	return &EventRoomEnter{
		EventBase: &EventBase{EventType: EventTypeRoomEnter, RoomId: roomId},
		RoomName:  roomName,
		Roster:    roster,
	}
}

func NewRoomDeleteEvent(roomId string) *EventRoomDelete {
	return &EventRoomDelete{
		EventBase: &EventBase{EventType: EventTypeRoomDelete, RoomId: roomId},
	}
}

func NewRoomRenameEvent(roomId, newName string) *EventRoomRename {
	return &EventRoomRename{
		EventBase: &EventBase{EventType: EventTypeRoomRename, RoomId: roomId},
		NewName:   newName,
	}
}

func NewUserAddedEvent(roomId string, user RosterEntry) *EventUserAdded {
	return &EventUserAdded{
		EventBase: &EventBase{EventType: EventTypeUserAdded, RoomId: roomId},
		User:      user,
	}
}

func NewUserRemovedEvent(roomId, userId string) *EventUserRemoved {
	return &EventUserRemoved{
		EventBase: &EventBase{EventType: EventTypeUserRemoved, RoomId: roomId},
		UserId:    userId,
	}
}
