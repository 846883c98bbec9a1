package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tcriess/lightspeed-chat-client/types"
)

func enterMainChat(t *testing.T, e *Engine) {
	t.Helper()
	deltas, err := e.Apply(types.NewRoomEnterEvent(types.MainChatId, types.MainChatName, []types.RosterEntry{{Id: "u1", Name: "alice"}}))
	assert.NoError(t, err)
	assert.Len(t, deltas, 2)
}

func TestApplyTextEvent(t *testing.T) {
	e := New()
	enterMainChat(t, e)

	message := types.Message{RoomId: types.MainChatId, Nick: "alice", Timestamp: time.Now(), Body: "hello"}
	deltas, err := e.Apply(types.NewTextEvent(message))
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)
	appended, ok := deltas[0].(*types.DeltaMessageAppended)
	if !ok {
		t.Fatalf("expected message appended, got %T", deltas[0])
	}
	assert.Equal(t, "hello", appended.Message.Body)
	assert.False(t, appended.Notify)
	assert.Len(t, e.Store().Get(types.MainChatId).Log, 1)
}

func TestApplyTextEventUnknownRoom(t *testing.T) {
	e := New()
	enterMainChat(t, e)

	deltas, err := e.Apply(types.NewTextEvent(types.Message{RoomId: "missing", Body: "early"}))
	assert.Nil(t, deltas)
	unknownErr := &types.UnknownRoomError{}
	assert.ErrorAs(t, err, &unknownErr)
	// the event is dropped, nothing buffered, nothing created
	assert.Nil(t, e.Store().Get("missing"))
}

func TestFirstEnterSelectsRoom(t *testing.T) {
	e := New()
	deltas, err := e.Apply(types.NewRoomEnterEvent(types.MainChatId, types.MainChatName, nil))
	assert.NoError(t, err)
	assert.Len(t, deltas, 2)
	added, ok := deltas[0].(*types.DeltaRoomAdded)
	if !ok {
		t.Fatalf("expected room added, got %T", deltas[0])
	}
	assert.Equal(t, types.MainChatName, added.Name)
	selected, ok := deltas[1].(*types.DeltaSelectionChanged)
	if !ok {
		t.Fatalf("expected selection changed, got %T", deltas[1])
	}
	assert.Equal(t, types.MainChatId, selected.RoomId)
	assert.Equal(t, types.MainChatId, e.Store().CurrentRoomId())

	// a later enter adds the room without stealing the selection
	deltas, err = e.Apply(types.NewRoomEnterEvent("r2", "second", nil))
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)
	assert.Equal(t, types.DeltaTypeRoomAdded, deltas[0].GetDeltaType())
	assert.Equal(t, types.MainChatId, e.Store().CurrentRoomId())
}

func TestReEnterIsIdempotent(t *testing.T) {
	e := New()
	roster := []types.RosterEntry{{Id: "u1", Name: "alice"}, {Id: "u2", Name: "bob"}}
	_, err := e.Apply(types.NewRoomEnterEvent("r1", "first", roster))
	assert.NoError(t, err)

	// identical replay after a reconnect emits nothing
	deltas, err := e.Apply(types.NewRoomEnterEvent("r1", "first", roster))
	assert.NoError(t, err)
	assert.Len(t, deltas, 0)

	// renamed while offline
	deltas, err = e.Apply(types.NewRoomEnterEvent("r1", "renamed", roster))
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)
	renamed := deltas[0].(*types.DeltaRoomRenamed)
	assert.Equal(t, "renamed", renamed.NewName)

	// roster shrank while offline
	deltas, err = e.Apply(types.NewRoomEnterEvent("r1", "renamed", roster[:1]))
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)
	changed := deltas[0].(*types.DeltaRosterChanged)
	assert.Len(t, changed.Roster, 1)
	assert.Equal(t, "alice", changed.Roster[0].Name)
}

func TestReEnterRevivesArchivedRoom(t *testing.T) {
	e := New()
	enterMainChat(t, e)
	_, err := e.Apply(types.NewRoomEnterEvent("r2", "second", nil))
	assert.NoError(t, err)
	_, err = e.Apply(types.NewRoomDeleteEvent("r2"))
	assert.NoError(t, err)
	assert.True(t, e.Store().Get("r2").Archived)

	// announced again, visible again. One single room added delta, the
	// name and roster reconcile silently.
	deltas, err := e.Apply(types.NewRoomEnterEvent("r2", "reborn", []types.RosterEntry{{Id: "u9", Name: "zoe"}}))
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)
	added := deltas[0].(*types.DeltaRoomAdded)
	assert.Equal(t, "reborn", added.Name)
	assert.False(t, e.Store().Get("r2").Archived)
	assert.Equal(t, "reborn", e.Store().Get("r2").Name)
}

func TestApplyRoomDelete(t *testing.T) {
	e := New()
	enterMainChat(t, e)
	_, err := e.Apply(types.NewRoomEnterEvent("r2", "second", nil))
	assert.NoError(t, err)

	// deleting a non-current room
	deltas, err := e.Apply(types.NewRoomDeleteEvent("r2"))
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)
	assert.Equal(t, types.DeltaTypeRoomRemoved, deltas[0].GetDeltaType())

	// repeated delete is idempotent
	deltas, err = e.Apply(types.NewRoomDeleteEvent("r2"))
	assert.NoError(t, err)
	assert.Len(t, deltas, 0)

	// unknown room delete is also a no-op
	deltas, err = e.Apply(types.NewRoomDeleteEvent("missing"))
	assert.NoError(t, err)
	assert.Len(t, deltas, 0)

	// deleting the current room keeps the selection on the archived room
	deltas, err = e.Apply(types.NewRoomDeleteEvent(types.MainChatId))
	assert.NoError(t, err)
	assert.Len(t, deltas, 2)
	assert.Equal(t, types.DeltaTypeRoomRemoved, deltas[0].GetDeltaType())
	assert.Equal(t, types.DeltaTypeCurrentRoomArchived, deltas[1].GetDeltaType())
	assert.Equal(t, types.MainChatId, e.Store().CurrentRoomId())
}

func TestApplyRoomRename(t *testing.T) {
	e := New()
	enterMainChat(t, e)

	deltas, err := e.Apply(types.NewRoomRenameEvent(types.MainChatId, "lobby"))
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)
	renamed := deltas[0].(*types.DeltaRoomRenamed)
	assert.Equal(t, "lobby", renamed.NewName)
	assert.Equal(t, "lobby", e.Store().Get(types.MainChatId).Name)

	_, err = e.Apply(types.NewRoomRenameEvent("missing", "x"))
	assert.Error(t, err)
}

func TestApplyUserEvents(t *testing.T) {
	e := New()
	enterMainChat(t, e)

	deltas, err := e.Apply(types.NewUserAddedEvent(types.MainChatId, types.RosterEntry{Id: "u2", Name: "bob"}))
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)
	changed := deltas[0].(*types.DeltaRosterChanged)
	assert.Len(t, changed.Roster, 2)

	// duplicate add emits nothing
	deltas, err = e.Apply(types.NewUserAddedEvent(types.MainChatId, types.RosterEntry{Id: "u2", Name: "bob"}))
	assert.NoError(t, err)
	assert.Len(t, deltas, 0)

	deltas, err = e.Apply(types.NewUserRemovedEvent(types.MainChatId, "u2"))
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)

	// removing an absent user is silently ignored
	deltas, err = e.Apply(types.NewUserRemovedEvent(types.MainChatId, "u2"))
	assert.NoError(t, err)
	assert.Len(t, deltas, 0)

	_, err = e.Apply(types.NewUserAddedEvent("missing", types.RosterEntry{Id: "u1", Name: "alice"}))
	assert.Error(t, err)
}

func TestSelectRoom(t *testing.T) {
	e := New()
	enterMainChat(t, e)
	_, err := e.Apply(types.NewRoomEnterEvent("r2", "second", nil))
	assert.NoError(t, err)
	_, err = e.Apply(types.NewTextEvent(types.Message{RoomId: "r2", Nick: "bob", Timestamp: time.Now(), Body: "psst"}))
	assert.NoError(t, err)

	_, err = e.SelectRoom("missing")
	assert.Error(t, err)
	assert.Equal(t, types.MainChatId, e.Store().CurrentRoomId())

	// selecting the current room again is a no-op
	deltas, err := e.SelectRoom(types.MainChatId)
	assert.NoError(t, err)
	assert.Len(t, deltas, 0)

	deltas, err = e.SelectRoom("r2")
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)
	selected := deltas[0].(*types.DeltaSelectionChanged)
	assert.Equal(t, "second", selected.Name)
	// the delta carries the full log so the view rebuilds
	assert.Len(t, selected.Log, 1)
	assert.Equal(t, "psst", selected.Log[0].Body)

	// an archived room stays selectable, the history is still readable
	_, err = e.Apply(types.NewRoomDeleteEvent(types.MainChatId))
	assert.NoError(t, err)
	deltas, err = e.SelectRoom(types.MainChatId)
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)
}

func TestBuildSendText(t *testing.T) {
	e := New()
	_, err := e.BuildSendText("too early")
	noRoomErr := &types.NoRoomSelectedError{}
	assert.ErrorAs(t, err, &noRoomErr)

	enterMainChat(t, e)
	command, err := e.BuildSendText("hello")
	assert.NoError(t, err)
	sendText := command.(*types.CommandSendText)
	assert.Equal(t, types.MainChatId, sendText.RoomId)
	assert.Equal(t, "hello", sendText.Body)

	// an empty body is forwarded, the server decides what to do with it
	command, err = e.BuildSendText("")
	assert.NoError(t, err)
	assert.Equal(t, "", command.(*types.CommandSendText).Body)
}

func TestBuildCreateRoom(t *testing.T) {
	e := New()
	_, err := e.BuildCreateRoom("  ", nil)
	validationErr := &types.ValidationError{}
	assert.ErrorAs(t, err, &validationErr)

	command, err := e.BuildCreateRoom("myRoom", []string{"u2"})
	assert.NoError(t, err)
	createRoom := command.(*types.CommandCreateRoom)
	assert.Equal(t, "myRoom", createRoom.Name)
	assert.Equal(t, []string{"u2"}, createRoom.InviteUsers)
}

func TestBuildRenameAndDeleteRoom(t *testing.T) {
	e := New()
	enterMainChat(t, e)

	_, err := e.BuildRenameRoom("missing", "x", nil, nil)
	assert.Error(t, err)
	_, err = e.BuildRenameRoom(types.MainChatId, " ", nil, nil)
	assert.Error(t, err)
	command, err := e.BuildRenameRoom(types.MainChatId, "lobby", []string{"u2"}, []string{"u3"})
	assert.NoError(t, err)
	assert.Equal(t, "lobby", command.(*types.CommandRenameRoom).NewName)

	_, err = e.BuildDeleteRoom("missing")
	assert.Error(t, err)
	command, err = e.BuildDeleteRoom(types.MainChatId)
	assert.NoError(t, err)
	assert.Equal(t, types.MainChatId, command.(*types.CommandDeleteRoom).RoomId)

	// archived rooms reject both commands
	_, err = e.Apply(types.NewRoomDeleteEvent(types.MainChatId))
	assert.NoError(t, err)
	_, err = e.BuildRenameRoom(types.MainChatId, "lobby", nil, nil)
	assert.Error(t, err)
	_, err = e.BuildDeleteRoom(types.MainChatId)
	assert.Error(t, err)
}

// A full session walk-through: connect, replay, chat, room lifecycle.
func TestSessionScenario(t *testing.T) {
	e := New()

	// initial replay after connecting
	deltas, err := e.Apply(types.NewRoomEnterEvent(types.MainChatId, types.MainChatName, []types.RosterEntry{{Id: "u1", Name: "alice"}}))
	assert.NoError(t, err)
	assert.Len(t, deltas, 2)

	// chat in the main room
	_, err = e.Apply(types.NewTextEvent(types.Message{RoomId: types.MainChatId, Nick: "alice", Timestamp: time.Now(), Body: "hi all"}))
	assert.NoError(t, err)

	// invited into a second room
	deltas, err = e.Apply(types.NewRoomEnterEvent("r2", "project", []types.RosterEntry{{Id: "u1", Name: "alice"}, {Id: "u2", Name: "bob"}}))
	assert.NoError(t, err)
	assert.Len(t, deltas, 1)

	// activity there while main is still current
	deltas, err = e.Apply(types.NewTextEvent(types.Message{RoomId: "r2", Nick: "bob", Timestamp: time.Now(), Body: "over here"}))
	assert.NoError(t, err)
	assert.Equal(t, "r2", deltas[0].GetRoomId())
	assert.Equal(t, types.MainChatId, e.Store().CurrentRoomId())

	// switch over
	deltas, err = e.SelectRoom("r2")
	assert.NoError(t, err)
	selected := deltas[0].(*types.DeltaSelectionChanged)
	assert.Len(t, selected.Log, 1)

	// the room gets renamed and bob leaves
	_, err = e.Apply(types.NewRoomRenameEvent("r2", "project-x"))
	assert.NoError(t, err)
	_, err = e.Apply(types.NewUserRemovedEvent("r2", "u2"))
	assert.NoError(t, err)

	// then the room is deleted under us
	deltas, err = e.Apply(types.NewRoomDeleteEvent("r2"))
	assert.NoError(t, err)
	assert.Len(t, deltas, 2)
	assert.Equal(t, types.DeltaTypeCurrentRoomArchived, deltas[1].GetDeltaType())

	// history is still there, but commands are rejected
	assert.Len(t, e.Store().Get("r2").Log, 1)
	_, err = e.BuildDeleteRoom("r2")
	assert.Error(t, err)

	// back to main, full log rebuild
	deltas, err = e.SelectRoom(types.MainChatId)
	assert.NoError(t, err)
	assert.Len(t, deltas[0].(*types.DeltaSelectionChanged).Log, 1)
}
