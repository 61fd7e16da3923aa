package database

import (
	"github.com/huandu/go-sqlbuilder"
)

// InsertBuilder extends sqlbuilder's insert builder with the conflict
// handling the ledger batch writes rely on.
type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

// NewInsertBuilder creates a PostgreSQL insert builder
func NewInsertBuilder() *InsertBuilder {
	return &InsertBuilder{sqlbuilder.PostgreSQL.NewInsertBuilder()}
}

// OnConflictDoNothing makes the insert idempotent: rows that already exist
// are left untouched instead of failing the batch.
func (b *InsertBuilder) OnConflictDoNothing() *InsertBuilder {
	b.SQL("ON CONFLICT DO NOTHING")
	return b
}

// Struct builds queries from db-tagged model structs
type Struct struct {
	*sqlbuilder.Struct
}

// NewStruct creates a PostgreSQL struct builder for v
func NewStruct(v any) *Struct {
	return &Struct{sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)}
}
