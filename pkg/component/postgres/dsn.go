package postgres

import (
	"fmt"
	"strings"

	postgresopts "github.com/kart-io/librarian/pkg/options/postgres"
)

// BuildDSN creates a PostgreSQL DSN from the provided options.
//
// The DSN format is:
// host=<host> port=<port> user=<username> password=<password> dbname=<database> sslmode=<sslmode>
func BuildDSN(opts *postgresopts.Options) string {
	if opts == nil {
		return ""
	}

	// The password is escaped because PostgreSQL DSNs are space-separated
	// key=value pairs and passwords may contain spaces or quotes.
	escapedPassword := escapePostgresValue(opts.Password)

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		opts.Host,
		opts.Port,
		opts.Username,
		escapedPassword,
		opts.Database,
		opts.SSLMode,
	)
}

// escapePostgresValue escapes a value for PostgreSQL DSN format.
// Values containing spaces or quotes are wrapped in single quotes, with
// existing single quotes doubled.
func escapePostgresValue(value string) string {
	if value == "" {
		return "''"
	}

	if strings.ContainsAny(value, " '\\") {
		escaped := strings.ReplaceAll(value, "'", "''")
		escaped = strings.ReplaceAll(escaped, "\\", "\\\\")
		return "'" + escaped + "'"
	}

	return value
}
