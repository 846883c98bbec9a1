// Package protocol translates between raw wire payloads and the typed
// event/command unions. Decoding never mutates any state, a malformed
// payload only yields a ProtocolError so the caller can drop the message
// and keep processing the stream.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/tcriess/lightspeed-chat-client/types"
)

// DecodeEvent parses one raw inbound payload into a typed event.
func DecodeEvent(raw []byte) (types.Event, error) {
	envelope := make(map[string]interface{})
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, types.NewProtocolError("could not unmarshal message: %s", err)
	}
	textRaw, hasText := envelope["text"]
	chatroomRaw, hasChatroom := envelope["chatroom"]
	if hasText == hasChatroom {
		return nil, types.NewProtocolError("expected exactly one of text/chatroom")
	}
	if hasText {
		msg := types.WireTextMessage{}
		if err := decodePayload(textRaw, &msg); err != nil {
			return nil, types.NewProtocolError("could not decode text message: %s", err)
		}
		if msg.ChatroomId == "" {
			return nil, types.NewProtocolError("text message without chatroomID")
		}
		return types.NewTextEvent(types.Message{
			RoomId:    msg.ChatroomId,
			Nick:      msg.UserName,
			Timestamp: msg.Timestamp,
			Body:      msg.Message,
		}), nil
	}
	chatroom := types.WireChatroomMessage{}
	if err := decodePayload(chatroomRaw, &chatroom); err != nil {
		return nil, types.NewProtocolError("could not decode chatroom message: %s", err)
	}
	return chatroomEvent(&chatroom)
}

func chatroomEvent(chatroom *types.WireChatroomMessage) (types.Event, error) {
	count := 0
	for _, set := range []bool{
		chatroom.Create != nil,
		chatroom.Update != nil,
		chatroom.Delete != nil,
		chatroom.Enter != nil,
		chatroom.AddUser != nil,
		chatroom.RemoveUser != nil,
	} {
		if set {
			count++
		}
	}
	if count != 1 {
		return nil, types.NewProtocolError("expected exactly one chatroom variant, got %d", count)
	}
	switch {
	case chatroom.Enter != nil:
		if chatroom.Enter.ChatroomId == "" {
			return nil, types.NewProtocolError("chatroom enter without chatroomID")
		}
		roster := make([]types.RosterEntry, 0, len(chatroom.Enter.UserList))
		for _, user := range chatroom.Enter.UserList {
			roster = append(roster, types.RosterEntry{Id: user.Id, Name: user.Name})
		}
		return types.NewRoomEnterEvent(chatroom.Enter.ChatroomId, chatroom.Enter.ChatroomName, roster), nil

	case chatroom.Delete != nil:
		if chatroom.Delete.ChatroomId == "" {
			return nil, types.NewProtocolError("chatroom delete without chatroomID")
		}
		return types.NewRoomDeleteEvent(chatroom.Delete.ChatroomId), nil

	case chatroom.Update != nil:
		if chatroom.Update.ChatroomId == "" {
			return nil, types.NewProtocolError("chatroom update without chatroomID")
		}
		if chatroom.Update.NewChatroomName == "" {
			return nil, types.NewProtocolError("chatroom update without newChatroomName")
		}
		return types.NewRoomRenameEvent(chatroom.Update.ChatroomId, chatroom.Update.NewChatroomName), nil

	case chatroom.AddUser != nil:
		if chatroom.AddUser.ChatroomId == "" || chatroom.AddUser.User.Id == "" {
			return nil, types.NewProtocolError("chatroom addUser without chatroomID or user id")
		}
		return types.NewUserAddedEvent(chatroom.AddUser.ChatroomId, types.RosterEntry{
			Id:   chatroom.AddUser.User.Id,
			Name: chatroom.AddUser.User.Name,
		}), nil

	case chatroom.RemoveUser != nil:
		if chatroom.RemoveUser.ChatroomId == "" || chatroom.RemoveUser.User.Id == "" {
			return nil, types.NewProtocolError("chatroom removeUser without chatroomID or user id")
		}
		return types.NewUserRemovedEvent(chatroom.RemoveUser.ChatroomId, chatroom.RemoveUser.User.Id), nil
	}
	// create is outbound-only
	return nil, types.NewProtocolError("unrecognized inbound chatroom variant")
}

func decodePayload(raw interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// Outbound text carries only the body and the room, the server assigns
// sender and timestamp.
type wireTextCommand struct {
	Message    string `json:"msg"`
	ChatroomId string `json:"chatroomID"`
}

type wireTextEnvelope struct {
	Text wireTextCommand `json:"text"`
}

// EncodeCommand serializes an outbound command through the wire structs.
// User text goes through the JSON encoder, never through string templating,
// so quotes and control characters survive intact.
func EncodeCommand(command types.Command) ([]byte, error) {
	var wire types.WireMessage
	switch command.GetCommandType() {
	case types.CommandTypeSendText:
		cmd := command.(*types.CommandSendText)
		return json.Marshal(wireTextEnvelope{Text: wireTextCommand{
			Message:    cmd.Body,
			ChatroomId: cmd.RoomId,
		}})

	case types.CommandTypeCreateRoom:
		cmd := command.(*types.CommandCreateRoom)
		wire.Chatroom = &types.WireChatroomMessage{
			Create: &types.WireChatroomCreateMessage{
				ChatroomName: cmd.Name,
				InviteUsers:  cmd.InviteUsers,
			},
		}

	case types.CommandTypeDeleteRoom:
		cmd := command.(*types.CommandDeleteRoom)
		wire.Chatroom = &types.WireChatroomMessage{
			Delete: &types.WireChatroomDeleteMessage{
				ChatroomId: cmd.RoomId,
			},
		}

	case types.CommandTypeRenameRoom:
		cmd := command.(*types.CommandRenameRoom)
		wire.Chatroom = &types.WireChatroomMessage{
			Update: &types.WireChatroomUpdateMessage{
				ChatroomId:      cmd.RoomId,
				NewChatroomName: cmd.NewName,
				InviteUsers:     cmd.InviteUsers,
				RemoveUsers:     cmd.RemoveUsers,
			},
		}

	default:
		return nil, types.NewProtocolError("unknown command type %d", command.GetCommandType())
	}
	return json.Marshal(wire)
}
