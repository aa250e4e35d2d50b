package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB column helpers. gorm serializes these through Valuer/Scanner so the
// entities keep plain Go types in application code.

type SegmentList []Segment

func (l SegmentList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *SegmentList) Scan(src any) error {
	return scanJSON(src, l)
}

type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, l)
}

type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]any{})
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	return scanJSON(src, m)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
