package persistence

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/tcriess/lightspeed-chat-client/config"
	"github.com/tcriess/lightspeed-chat-client/types"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ driver.Valuer = &datatypes.JSON{}

type GormPersist struct {
	db *gorm.DB
}

func NewGormPersister(cfg *config.Config) (Persister, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	p := GormPersist{db: db}
	return &p, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	db.Migrator().AutoMigrate(&types.Room{}, &types.Message{})
	return db, nil
}

func (p *GormPersist) StoreRoom(room types.Room) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&room).Error
}

func (p *GormPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := p.db.Find(&rooms).Error
	return rooms, err
}

func (p *GormPersist) StoreMessages(messages []*types.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&messages).Error
}

func (p *GormPersist) GetMessageHistory(roomId string, fromTs, toTs time.Time, fromIdx, maxCount int) ([]*types.Message, error) {
	messages := make([]*types.Message, 0)
	q := p.db.Where("timestamp >= ? AND timestamp < ?", fromTs, toTs)
	if roomId != "" {
		q = q.Where("room_id = ?", roomId)
	}
	if maxCount > 0 {
		q = q.Limit(maxCount)
	}
	err := q.Order("timestamp").Offset(fromIdx).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (p *GormPersist) PruneMessages(before time.Time) error {
	return p.db.Where("timestamp < ?", before).Delete(&types.Message{}).Error
}

func (p *GormPersist) Close() error {
	return nil
}
