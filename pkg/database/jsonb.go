package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB maps a jsonb column onto a typed Go value. The ledger's raw id sets
// and the identifier mapping member lists are stored this way.
type JSONB[T any] struct {
	Data T
}

// Scan implements sql.Scanner. pq hands jsonb columns over as []byte.
func (j *JSONB[T]) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("JSONB.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, &j.Data)
}

// Value implements driver.Valuer
func (j JSONB[T]) Value() (driver.Value, error) {
	return json.Marshal(j.Data)
}
