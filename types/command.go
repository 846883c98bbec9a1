package types

// Outbound command types.
const (
	CommandTypeSendText   = 1
	CommandTypeCreateRoom = 2
	CommandTypeDeleteRoom = 3
	CommandTypeRenameRoom = 4
)

type Command interface {
	GetCommandType() int
}

type CommandBase struct {
	CommandType int
}

func (c *CommandBase) GetCommandType() int {
	return c.CommandType
}

type CommandSendText struct {
	*CommandBase
	RoomId string
	Body   string
}

type CommandCreateRoom struct {
	*CommandBase
	Name        string
	InviteUsers []string
}

type CommandDeleteRoom struct {
	*CommandBase
	RoomId string
}

type CommandRenameRoom struct {
	*CommandBase
	RoomId      string
	NewName     string
	InviteUsers []string
	RemoveUsers []string
}

func NewSendTextCommand(roomId, body string) *CommandSendText {
	return &CommandSendText{
		CommandBase: &CommandBase{CommandType: CommandTypeSendText},
		RoomId:      roomId,
		Body:        body,
	}
}

func NewCreateRoomCommand(name string, inviteUsers []string) *CommandCreateRoom {
	return &CommandCreateRoom{
		CommandBase: &CommandBase{CommandType: CommandTypeCreateRoom},
		Name:        name,
		InviteUsers: inviteUsers,
	}
}

func NewDeleteRoomCommand(roomId string) *CommandDeleteRoom {
	return &CommandDeleteRoom{
		CommandBase: &CommandBase{CommandType: CommandTypeDeleteRoom},
		RoomId:      roomId,
	}
}

func NewRenameRoomCommand(roomId, newName string, inviteUsers, removeUsers []string) *CommandRenameRoom {
	return &CommandRenameRoom{
		CommandBase: &CommandBase{CommandType: CommandTypeRenameRoom},
		RoomId:      roomId,
		NewName:     newName,
		InviteUsers: inviteUsers,
		RemoveUsers: removeUsers,
	}
}
