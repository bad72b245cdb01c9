// Package migrations embeds the nest-data schema.
package migrations

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var Schema string

// Apply 执行建表脚本（幂等）
func Apply(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
