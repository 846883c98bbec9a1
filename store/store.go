// Package store holds the authoritative local view of all known chatrooms.
// The store is exclusively owned by the synchronization engine, every
// operation is a plain state transition without any I/O.
package store

import (
	"github.com/tcriess/lightspeed-chat-client/types"
)

// RoomStore maps room id to room plus the single current-room selection.
// Insertion order is kept for default display order only.
type RoomStore struct {
	rooms     map[string]*types.Room
	order     []string
	currentId string
	maxLogLen int
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*types.Room),
	}
}

// SetMaxLogLen bounds the in-memory log per room, oldest entries are
// dropped first. 0 means unbounded. The transcript persister is not
// affected, full history stays queryable there.
func (s *RoomStore) SetMaxLogLen(n int) {
	s.maxLogLen = n
}

// Get returns the room with the given id, nil if unknown.
func (s *RoomStore) Get(id string) *types.Room {
	return s.rooms[id]
}

// UpsertRoom creates the room if unknown and returns created=true. For a
// known room it refreshes nothing by itself, reconciliation of name and
// roster is the engine's job. A known archived room is revived, the server
// announcing it again means it is visible once more.
func (s *RoomStore) UpsertRoom(id, name string, roster []types.RosterEntry) (room *types.Room, created bool) {
	if room = s.rooms[id]; room != nil {
		if room.Archived {
			room.Archived = false
			created = true
		}
		return room, created
	}
	room = types.NewRoom(id, name, roster)
	s.rooms[id] = room
	s.order = append(s.order, id)
	return room, true
}

// ArchiveRoom marks the room deleted server-side. The room and its log stay
// readable for the rest of the session. Archiving an unknown or already
// archived room is a no-op.
func (s *RoomStore) ArchiveRoom(id string) (archived bool) {
	room := s.rooms[id]
	if room == nil || room.Archived {
		return false
	}
	room.Archived = true
	return true
}

func (s *RoomStore) RenameRoom(id, newName string) error {
	room := s.rooms[id]
	if room == nil {
		return &types.UnknownRoomError{RoomId: id}
	}
	room.Name = newName
	return nil
}

func (s *RoomStore) AppendMessage(roomId string, message types.Message) error {
	room := s.rooms[roomId]
	if room == nil {
		return &types.UnknownRoomError{RoomId: roomId}
	}
	room.Log = append(room.Log, message)
	if s.maxLogLen > 0 && len(room.Log) > s.maxLogLen {
		trimmed := make([]types.Message, s.maxLogLen)
		copy(trimmed, room.Log[len(room.Log)-s.maxLogLen:])
		room.Log = trimmed
	}
	return nil
}

// UpsertRosterEntry adds or renames a roster entry, changed reports whether
// anything was modified.
func (s *RoomStore) UpsertRosterEntry(roomId string, entry types.RosterEntry) (changed bool, err error) {
	room := s.rooms[roomId]
	if room == nil {
		return false, &types.UnknownRoomError{RoomId: roomId}
	}
	if name, ok := room.Roster[entry.Id]; ok && name == entry.Name {
		return false, nil
	}
	room.Roster[entry.Id] = entry.Name
	return true, nil
}

// ReconcileRoster replaces the room's roster with the provided set, used for
// idempotent re-entry after a reconnect. changed reports whether any entry
// was added, removed or renamed.
func (s *RoomStore) ReconcileRoster(roomId string, entries []types.RosterEntry) (changed bool, err error) {
	room := s.rooms[roomId]
	if room == nil {
		return false, &types.UnknownRoomError{RoomId: roomId}
	}
	next := make(types.RosterMap, len(entries))
	for _, entry := range entries {
		next[entry.Id] = entry.Name
	}
	if len(next) != len(room.Roster) {
		changed = true
	} else {
		for id, name := range next {
			if have, ok := room.Roster[id]; !ok || have != name {
				changed = true
				break
			}
		}
	}
	room.Roster = next
	return changed, nil
}

func (s *RoomStore) RemoveRosterEntry(roomId, userId string) (changed bool, err error) {
	room := s.rooms[roomId]
	if room == nil {
		return false, &types.UnknownRoomError{RoomId: roomId}
	}
	if _, ok := room.Roster[userId]; !ok {
		return false, nil
	}
	delete(room.Roster, userId)
	return true, nil
}

func (s *RoomStore) SetCurrentRoom(id string) error {
	if s.rooms[id] == nil {
		return &types.UnknownRoomError{RoomId: id}
	}
	s.currentId = id
	return nil
}

// CurrentRoomId returns the empty string before the first room arrived.
func (s *RoomStore) CurrentRoomId() string {
	return s.currentId
}

func (s *RoomStore) CurrentRoom() *types.Room {
	if s.currentId == "" {
		return nil
	}
	return s.rooms[s.currentId]
}

// Rooms returns all known rooms in insertion order, archived ones included.
func (s *RoomStore) Rooms() []*types.Room {
	rooms := make([]*types.Room, 0, len(s.order))
	for _, id := range s.order {
		rooms = append(rooms, s.rooms[id])
	}
	return rooms
}

// ActiveRooms returns the rooms not archived, in insertion order.
func (s *RoomStore) ActiveRooms() []*types.Room {
	rooms := make([]*types.Room, 0, len(s.order))
	for _, id := range s.order {
		if room := s.rooms[id]; !room.Archived {
			rooms = append(rooms, room)
		}
	}
	return rooms
}
