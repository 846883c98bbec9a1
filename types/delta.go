package types

// Delta types emitted by the synchronization engine towards the projection.
// DeltaTypeSelectionChanged is the only full-rebuild signal, everything else
// is incremental. The projection must never have to infer append vs rebuild
// on its own.
const (
	DeltaTypeRoomAdded = iota + 1
	DeltaTypeRoomRemoved
	DeltaTypeRoomRenamed
	DeltaTypeMessageAppended
	DeltaTypeRosterChanged
	DeltaTypeSelectionChanged
	DeltaTypeCurrentRoomArchived
)

type Delta interface {
	GetDeltaType() int
	GetRoomId() string
}

type DeltaBase struct {
	DeltaType int
	RoomId    string
}

func (d *DeltaBase) GetDeltaType() int {
	return d.DeltaType
}

func (d *DeltaBase) GetRoomId() string {
	return d.RoomId
}

type DeltaRoomAdded struct {
	*DeltaBase
	Name   string
	Roster []RosterEntry
}

type DeltaRoomRemoved struct {
	*DeltaBase
}

type DeltaRoomRenamed struct {
	*DeltaBase
	NewName string
}

// DeltaMessageAppended is an incremental append. Notify is set when a
// configured notification filter matched the message.
type DeltaMessageAppended struct {
	*DeltaBase
	Message Message
	Notify  bool
}

type DeltaRosterChanged struct {
	*DeltaBase
	Roster []RosterEntry
}

// DeltaSelectionChanged carries the full log of the newly selected room, the
// projection rebuilds its message view from it instead of appending.
type DeltaSelectionChanged struct {
	*DeltaBase
	Name string
	Log  []Message
}

// DeltaCurrentRoomArchived follows DeltaRoomRemoved when the archived room
// is the current selection, the room stays readable as history.
type DeltaCurrentRoomArchived struct {
	*DeltaBase
}

func NewRoomAddedDelta(room *Room) *DeltaRoomAdded {
	return &DeltaRoomAdded{
		DeltaBase: &DeltaBase{DeltaType: DeltaTypeRoomAdded, RoomId: room.Id},
		Name:      room.Name,
		Roster:    room.Roster.Entries(),
	}
}

func NewRoomRemovedDelta(roomId string) *DeltaRoomRemoved {
	return &DeltaRoomRemoved{
		DeltaBase: &DeltaBase{DeltaType: DeltaTypeRoomRemoved, RoomId: roomId},
	}
}

func NewRoomRenamedDelta(roomId, newName string) *DeltaRoomRenamed {
	return &DeltaRoomRenamed{
		DeltaBase: &DeltaBase{DeltaType: DeltaTypeRoomRenamed, RoomId: roomId},
		NewName:   newName,
	}
}

func NewMessageAppendedDelta(message Message) *DeltaMessageAppended {
	return &DeltaMessageAppended{
		DeltaBase: &DeltaBase{DeltaType: DeltaTypeMessageAppended, RoomId: message.RoomId},
		Message:   message,
	}
}

func NewRosterChangedDelta(room *Room) *DeltaRosterChanged {
	return &DeltaRosterChanged{
		DeltaBase: &DeltaBase{DeltaType: DeltaTypeRosterChanged, RoomId: room.Id},
		Roster:    room.Roster.Entries(),
	}
}

func NewSelectionChangedDelta(room *Room) *DeltaSelectionChanged {
	log := make([]Message, len(room.Log))
	copy(log, room.Log)
	return &DeltaSelectionChanged{
		DeltaBase: &DeltaBase{DeltaType: DeltaTypeSelectionChanged, RoomId: room.Id},
		Name:      room.Name,
		Log:       log,
	}
}

func NewCurrentRoomArchivedDelta(roomId string) *DeltaCurrentRoomArchived {
	return &DeltaCurrentRoomArchived{
		DeltaBase: &DeltaBase{DeltaType: DeltaTypeCurrentRoomArchived, RoomId: roomId},
	}
}
