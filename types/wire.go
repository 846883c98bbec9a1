package types

import "time"

// JSON-serialized WireMessage is what is actually sent via the Websocket
// connection, exactly one member is set per message.
type WireMessage struct {
	Text     *WireTextMessage     `json:"text,omitempty"`
	Chatroom *WireChatroomMessage `json:"chatroom,omitempty"`
}

// WireTextMessage is a single chat message. userID, userName and timestamp
// are server-assigned and only present on inbound messages.
type WireTextMessage struct {
	Message    string    `json:"msg" mapstructure:"msg"`
	Timestamp  time.Time `json:"timestamp,omitempty" mapstructure:"timestamp"`
	UserId     string    `json:"userID,omitempty" mapstructure:"userID"`
	UserName   string    `json:"userName,omitempty" mapstructure:"userName"`
	ChatroomId string    `json:"chatroomID" mapstructure:"chatroomID"`
}

// WireChatroomMessage wraps the room lifecycle sub-messages, again exactly
// one member per message. enter/addUser/removeUser are inbound only,
// create is outbound only, update/delete occur in both directions.
type WireChatroomMessage struct {
	Create     *WireChatroomCreateMessage `json:"create,omitempty" mapstructure:"create"`
	Update     *WireChatroomUpdateMessage `json:"update,omitempty" mapstructure:"update"`
	Delete     *WireChatroomDeleteMessage `json:"delete,omitempty" mapstructure:"delete"`
	Enter      *WireChatroomEnterMessage  `json:"enter,omitempty" mapstructure:"enter"`
	AddUser    *WireChatroomUserEntry     `json:"addUser,omitempty" mapstructure:"addUser"`
	RemoveUser *WireChatroomUserEntry     `json:"removeUser,omitempty" mapstructure:"removeUser"`
}

type WireChatroomCreateMessage struct {
	ChatroomName string   `json:"chatroomName" mapstructure:"chatroomName"`
	InviteUsers  []string `json:"inviteUsers,omitempty" mapstructure:"inviteUsers"`
}

type WireChatroomUpdateMessage struct {
	ChatroomId      string   `json:"chatroomID" mapstructure:"chatroomID"`
	NewChatroomName string   `json:"newChatroomName" mapstructure:"newChatroomName"`
	InviteUsers     []string `json:"inviteUsers,omitempty" mapstructure:"inviteUsers"`
	RemoveUsers     []string `json:"removeUsers,omitempty" mapstructure:"removeUsers"`
}

type WireChatroomDeleteMessage struct {
	ChatroomId string `json:"chatroomID" mapstructure:"chatroomID"`
}

// WireChatroomEnterMessage announces that this client has visibility of a
// room. It is sent for every visible room on (re-)connect and whenever a new
// room becomes visible.
type WireChatroomEnterMessage struct {
	ChatroomName string          `json:"chatroomName" mapstructure:"chatroomName"`
	ChatroomId   string          `json:"chatroomID" mapstructure:"chatroomID"`
	UserList     []WireUserEntry `json:"usersList" mapstructure:"usersList"`
}

type WireChatroomUserEntry struct {
	ChatroomId string        `json:"chatroomID" mapstructure:"chatroomID"`
	User       WireUserEntry `json:"user" mapstructure:"user"`
}

type WireUserEntry struct {
	Name string `json:"name" mapstructure:"name"`
	Id   string `json:"id" mapstructure:"id"`
}
