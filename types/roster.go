package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// RosterEntry is one user associated with a room.
type RosterEntry struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// RosterMap maps user id to display name. It implements driver.Valuer and
// sql.Scanner so rooms can be stored as-is via gorm, rendered as a JSON
// column.
type RosterMap map[string]string

// Entries returns the roster as a slice sorted by user id.
func (m RosterMap) Entries() []RosterEntry {
	entries := make([]RosterEntry, 0, len(m))
	for id, name := range m {
		entries = append(entries, RosterEntry{Id: id, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Id < entries[j].Id })
	return entries
}

// Value implements driver.Valuer
func (m RosterMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	ba, err := json.Marshal(map[string]string(m))
	return string(ba), err
}

// Scan implements sql.Scanner
func (m *RosterMap) Scan(val interface{}) error {
	var ba []byte
	switch v := val.(type) {
	case []byte:
		ba = v
	case string:
		ba = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal roster value: %v", val)
	}
	t := map[string]string{}
	err := json.Unmarshal(ba, &t)
	*m = RosterMap(t)
	return err
}

// GormDataType gorm common data type
func (m RosterMap) GormDataType() string {
	return "rostermap"
}

// GormDBDataType gorm db data type
func (RosterMap) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlite":
		return "JSON"
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	}
	return ""
}
