package types

// The bootstrap room the server places every user in on first connect.
const (
	MainChatId   = "00000000-0000-0000-0000-000000000001"
	MainChatName = "mainChat"
)

// Room is the local view of one chatroom. The log is append-only, entries
// keep arrival order. Archived rooms stay readable as history for the rest
// of the session.
type Room struct {
	Id       string    `json:"id" gorm:"primaryKey"`
	Name     string    `json:"name"`
	Archived bool      `json:"archived"`
	Roster   RosterMap `json:"roster"`
	Log      []Message `json:"-" gorm:"-"`
}

func NewRoom(id, name string, roster []RosterEntry) *Room {
	room := &Room{
		Id:     id,
		Name:   name,
		Roster: make(RosterMap, len(roster)),
	}
	for _, entry := range roster {
		room.Roster[entry.Id] = entry.Name
	}
	return room
}
