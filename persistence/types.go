// Package persistence implements the optional local transcript store. The
// engine itself never touches persistence, the session wires it in. All
// backends are safe for the single session goroutine plus the admin CLI
// reading the same store offline.
package persistence

import (
	"fmt"
	"time"

	"github.com/tcriess/lightspeed-chat-client/config"
	"github.com/tcriess/lightspeed-chat-client/types"
)

type Persister interface {
	StoreRoom(types.Room) error
	GetRooms() ([]*types.Room, error)
	StoreMessages([]*types.Message) error
	GetMessageHistory(roomId string, fromTs, toTs time.Time, fromIdx, maxCount int) ([]*types.Message, error)
	PruneMessages(before time.Time) error
	Close() error
}

// NewPersister returns the configured transcript store, nil if persistence
// is not configured.
func NewPersister(cfg *config.Config) (Persister, error) {
	switch cfg.PersistenceConfig.Type {
	case "":
		return nil, nil

	case "buntdb":
		return NewBuntPersister(cfg)

	case "sqlite", "postgres":
		return NewGormPersister(cfg)
	}
	return nil, fmt.Errorf("unknown persistence type %q", cfg.PersistenceConfig.Type)
}
