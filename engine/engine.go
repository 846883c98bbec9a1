// Package engine implements the protocol state machine. The Engine is a
// pure dispatcher: one typed inbound event in, zero or more store mutations,
// one delta batch out. Bridging real asynchronous delivery onto the
// dispatcher is the session's job, which keeps the Engine deterministic and
// unit-testable without a live transport.
package engine

import (
	"strings"

	"github.com/tcriess/lightspeed-chat-client/store"
	"github.com/tcriess/lightspeed-chat-client/types"
)

type Engine struct {
	store *store.RoomStore

	// set after the first room enter of the session, which is auto-selected
	enterSeen bool
}

func New() *Engine {
	return &Engine{store: store.NewRoomStore()}
}

// Store exposes the room store for read access. Only the engine mutates it.
func (e *Engine) Store() *store.RoomStore {
	return e.store
}

// Apply processes one inbound event to completion and returns the resulting
// delta batch. On error the store is left untouched and the event is to be
// dropped, never buffered: there is no bound on how long a missing
// dependency (the room's enter event) might stay missing.
func (e *Engine) Apply(event types.Event) ([]types.Delta, error) {
	switch event.GetEventType() {
	case types.EventTypeText:
		textEvent := event.(*types.EventText)
		message := *textEvent.Message
		if err := e.store.AppendMessage(message.RoomId, message); err != nil {
			return nil, err
		}
		return []types.Delta{types.NewMessageAppendedDelta(message)}, nil

	case types.EventTypeRoomEnter:
		return e.applyRoomEnter(event.(*types.EventRoomEnter)), nil

	case types.EventTypeRoomDelete:
		return e.applyRoomDelete(event.(*types.EventRoomDelete)), nil

	case types.EventTypeRoomRename:
		renameEvent := event.(*types.EventRoomRename)
		if err := e.store.RenameRoom(renameEvent.RoomId, renameEvent.NewName); err != nil {
			return nil, err
		}
		return []types.Delta{types.NewRoomRenamedDelta(renameEvent.RoomId, renameEvent.NewName)}, nil

	case types.EventTypeUserAdded:
		addEvent := event.(*types.EventUserAdded)
		changed, err := e.store.UpsertRosterEntry(addEvent.RoomId, addEvent.User)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, nil
		}
		return []types.Delta{types.NewRosterChangedDelta(e.store.Get(addEvent.RoomId))}, nil

	case types.EventTypeUserRemoved:
		removeEvent := event.(*types.EventUserRemoved)
		changed, err := e.store.RemoveRosterEntry(removeEvent.RoomId, removeEvent.UserId)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, nil
		}
		return []types.Delta{types.NewRosterChangedDelta(e.store.Get(removeEvent.RoomId))}, nil
	}
	return nil, types.NewProtocolError("unknown event type %d", event.GetEventType())
}

// applyRoomEnter creates unknown rooms and treats re-entry (f.e. the replay
// after a reconnect) as an idempotent refresh: name and roster are
// reconciled to the provided state and only actual changes emit deltas. A
// locally archived room announced again is revived, the server is
// authoritative about visibility.
func (e *Engine) applyRoomEnter(enterEvent *types.EventRoomEnter) []types.Delta {
	deltas := make([]types.Delta, 0, 3)
	existing := e.store.Get(enterEvent.RoomId)
	room, created := e.store.UpsertRoom(enterEvent.RoomId, enterEvent.RoomName, enterEvent.Roster)
	if existing != nil {
		// refresh, silently for a revived room which is re-announced as a
		// whole anyway
		nameChanged := room.Name != enterEvent.RoomName
		if nameChanged {
			_ = e.store.RenameRoom(room.Id, enterEvent.RoomName)
		}
		rosterChanged, _ := e.store.ReconcileRoster(room.Id, enterEvent.Roster)
		if created {
			deltas = append(deltas, types.NewRoomAddedDelta(room))
		} else {
			if nameChanged {
				deltas = append(deltas, types.NewRoomRenamedDelta(room.Id, enterEvent.RoomName))
			}
			if rosterChanged {
				deltas = append(deltas, types.NewRosterChangedDelta(room))
			}
		}
	} else {
		deltas = append(deltas, types.NewRoomAddedDelta(room))
	}
	if !e.enterSeen {
		e.enterSeen = true
		_ = e.store.SetCurrentRoom(room.Id)
		deltas = append(deltas, types.NewSelectionChangedDelta(room))
	}
	return deltas
}

func (e *Engine) applyRoomDelete(deleteEvent *types.EventRoomDelete) []types.Delta {
	if !e.store.ArchiveRoom(deleteEvent.RoomId) {
		// unknown or already archived, idempotent
		return nil
	}
	deltas := []types.Delta{types.NewRoomRemovedDelta(deleteEvent.RoomId)}
	if e.store.CurrentRoomId() == deleteEvent.RoomId {
		deltas = append(deltas, types.NewCurrentRoomArchivedDelta(deleteEvent.RoomId))
	}
	return deltas
}

// SelectRoom is the local-action entry point for changing the current room.
// Selecting the current room again is a no-op, otherwise the emitted
// selection delta carries the full log of the new room so the projection
// rebuilds instead of appending.
func (e *Engine) SelectRoom(id string) ([]types.Delta, error) {
	room := e.store.Get(id)
	if room == nil {
		return nil, &types.UnknownRoomError{RoomId: id}
	}
	if e.store.CurrentRoomId() == id {
		return nil, nil
	}
	_ = e.store.SetCurrentRoom(id)
	return []types.Delta{types.NewSelectionChangedDelta(room)}, nil
}

// The command builder: local validation happens here, nothing invalid is
// ever handed to the transport.

func (e *Engine) BuildSendText(body string) (types.Command, error) {
	current := e.store.CurrentRoom()
	if current == nil {
		return nil, &types.NoRoomSelectedError{}
	}
	return types.NewSendTextCommand(current.Id, body), nil
}

func (e *Engine) BuildCreateRoom(name string, inviteUsers []string) (types.Command, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &types.ValidationError{Reason: "room name must not be empty"}
	}
	return types.NewCreateRoomCommand(name, inviteUsers), nil
}

func (e *Engine) BuildRenameRoom(roomId, newName string, inviteUsers, removeUsers []string) (types.Command, error) {
	room := e.store.Get(roomId)
	if room == nil {
		return nil, &types.UnknownRoomError{RoomId: roomId}
	}
	if room.Archived {
		return nil, &types.ValidationError{Reason: "room is archived"}
	}
	if strings.TrimSpace(newName) == "" {
		return nil, &types.ValidationError{Reason: "room name must not be empty"}
	}
	return types.NewRenameRoomCommand(roomId, newName, inviteUsers, removeUsers), nil
}

func (e *Engine) BuildDeleteRoom(roomId string) (types.Command, error) {
	room := e.store.Get(roomId)
	if room == nil {
		return nil, &types.UnknownRoomError{RoomId: roomId}
	}
	if room.Archived {
		return nil, &types.ValidationError{Reason: "room is archived"}
	}
	return types.NewDeleteRoomCommand(roomId), nil
}
