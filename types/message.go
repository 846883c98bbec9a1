package types

import (
	"strconv"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// Message is one entry of a room's log. Immutable once stored, ordering
// within a room is arrival order, the timestamp is display-only.
type Message struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	RoomId    string    `json:"room_id" gorm:"index"`
	Nick      string    `json:"nick"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
	Body      string    `json:"body"`
}

// messageKey is the hashed identity of a message. The timestamp goes in as
// unix nanos, time.Time itself has no hashable exported fields.
type messageKey struct {
	RoomId    string
	Nick      string
	Timestamp int64
	Body      string
}

// CreateId derives a stable id from the message contents, used as the
// persistence key. A server replaying the same message after a reconnect
// hashes identically, so replayed history never duplicates stored rows.
func (m *Message) CreateId() error {
	hash, err := hashstructure.Hash(messageKey{
		RoomId:    m.RoomId,
		Nick:      m.Nick,
		Timestamp: m.Timestamp.UnixNano(),
		Body:      m.Body,
	}, hashstructure.FormatV2, nil)
	if err != nil {
		return err
	}
	m.Id = m.RoomId + ":" + strconv.FormatUint(hash, 16)
	return nil
}
