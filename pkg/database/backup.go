package database

import (
	"context"
	"fmt"
	"regexp"
)

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Backup snapshots a full table into <table>_backup inside the caller's
// transaction, replacing any previous backup. Batch steps that rewrite a
// table call this before mutating anything.
func Backup(ctx context.Context, tx Tx, table string) error {
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s_backup", table)); err != nil {
		return fmt.Errorf("drop previous backup of %s: %w", table, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s_backup AS SELECT * FROM %s", table, table)); err != nil {
		return fmt.Errorf("backup %s: %w", table, err)
	}

	return nil
}
