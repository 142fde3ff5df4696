package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Flags is an ordered list of reason strings stored as a JSON array.
type Flags []string

// Value implements the driver.Valuer interface. A nil list is stored as [].
func (f Flags) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(f))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (f *Flags) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*f = Flags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("flags: unsupported column type %T", value)
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*f = out
	return nil
}

// MarshalJSON never emits null.
func (f Flags) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(f))
}

// GormDBDataType picks jsonb on postgres and text elsewhere.
func (Flags) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}
