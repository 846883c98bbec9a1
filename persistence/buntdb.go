package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/tcriess/lightspeed-chat-client/config"
	"github.com/tcriess/lightspeed-chat-client/types"
	"github.com/tidwall/buntdb"
)

type BuntDBPersist struct {
	db       *buntdb.DB
	fileLock *flock.Flock
}

// storedMessage adds the timestamp as unix nanos for the index. RFC3339
// strings trim trailing fractional zeros, their widths vary and they do not
// sort lexicographically; the numeric field compares correctly.
type storedMessage struct {
	types.Message
	TimestampNs int64 `json:"timestamp_ns"`
}

func timestampPivot(ts time.Time) string {
	return fmt.Sprintf(`{"timestamp_ns":%d}`, ts.UnixNano())
}

func NewBuntPersister(cfg *config.Config) (Persister, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	var fileLock *flock.Flock
	if cfg.PersistenceConfig.FlockPath != "" {
		fileLock = flock.New(cfg.PersistenceConfig.FlockPath)
		locked, err := fileLock.TryLock()
		if err != nil {
			return nil, errors.Wrap(err, "could not acquire transcript lock")
		}
		if !locked {
			return nil, fmt.Errorf("transcript store %s is locked by another client instance", cfg.PersistenceConfig.DSN)
		}
	}
	db, err := buntdb.Open(cfg.PersistenceConfig.DSN)
	if err != nil {
		if fileLock != nil {
			_ = fileLock.Unlock()
		}
		return nil, err
	}
	err = db.CreateIndex("messagets", "message:*", buntdb.IndexJSON("timestamp_ns"))
	if err != nil && err != buntdb.ErrIndexExists {
		db.Close()
		if fileLock != nil {
			_ = fileLock.Unlock()
		}
		return nil, err
	}
	return &BuntDBPersist{db: db, fileLock: fileLock}, nil
}

func (p *BuntDBPersist) StoreRoom(room types.Room) error {
	r, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("room:"+room.Id, string(r), nil)
		return err
	})
}

func (p *BuntDBPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("room:*", func(key, value string) bool {
			room := &types.Room{}
			if err := json.Unmarshal([]byte(value), room); err == nil {
				rooms = append(rooms, room)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (p *BuntDBPersist) StoreMessages(messages []*types.Message) error {
	return p.db.Update(func(tx *buntdb.Tx) error {
		for _, message := range messages {
			if message.Id == "" {
				return fmt.Errorf("no message id")
			}
			m, err := json.Marshal(storedMessage{
				Message:     *message,
				TimestampNs: message.Timestamp.UnixNano(),
			})
			if err != nil {
				return err
			}
			_, _, err = tx.Set("message:"+message.Id, string(m), nil)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *BuntDBPersist) GetMessageHistory(roomId string, fromTs, toTs time.Time, fromIdx, maxCount int) ([]*types.Message, error) {
	messages := make([]*types.Message, 0)
	pivot := timestampPivot(fromTs)
	err := p.db.View(func(tx *buntdb.Tx) error {
		idx := 0
		return tx.AscendGreaterOrEqual("messagets", pivot, func(key, value string) bool {
			message := &types.Message{}
			if err := json.Unmarshal([]byte(value), message); err != nil {
				return true
			}
			if !message.Timestamp.Before(toTs) {
				return false
			}
			if roomId != "" && message.RoomId != roomId {
				return true
			}
			if idx < fromIdx {
				idx++
				return true
			}
			messages = append(messages, message)
			return maxCount <= 0 || len(messages) < maxCount
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (p *BuntDBPersist) PruneMessages(before time.Time) error {
	stale := make([]string, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("messagets", func(key, value string) bool {
			message := types.Message{}
			if err := json.Unmarshal([]byte(value), &message); err != nil {
				return true
			}
			if !message.Timestamp.Before(before) {
				return false
			}
			stale = append(stale, key)
			return true
		})
	})
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		for _, key := range stale {
			if _, err := tx.Delete(key); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
}

func (p *BuntDBPersist) Close() error {
	err := p.db.Close()
	if p.fileLock != nil {
		if lockErr := p.fileLock.Unlock(); lockErr != nil && err == nil {
			err = lockErr
		}
	}
	return err
}
