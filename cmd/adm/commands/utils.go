package commands

import (
	"context"
	"database/sql"
	"fmt"
)

// getDatabaseInfo returns database connection information
func getDatabaseInfo(ctx context.Context, db *sql.DB) string {
	if db == nil {
		return "Not connected"
	}

	var dbName string
	if err := db.QueryRowContext(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return "Connected (unknown database)"
	}

	var host sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT inet_server_addr()::text").Scan(&host); err != nil || !host.Valid {
		return fmt.Sprintf("Connected to %s", dbName)
	}

	return fmt.Sprintf("Connected to %s on %s", dbName, host.String)
}
