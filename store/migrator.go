package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

// Schema bootstrap:
// A fresh database gets migration/{driver}/LATEST.sql applied in one
// transaction. An initialized database is left as is.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the full schema for new installations.
const LatestSchemaFileName = "LATEST.sql"

// Migrate applies the latest schema if the database is not initialized.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Errorf("failed to read latest schema file: %s", err)
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.executeMultiStmt(ctx, tx, string(bytes)); err != nil {
		return errors.Wrapf(err, "failed to execute SQL file %s", filePath)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	slog.Info("database initialized successfully", slog.String("driver", s.profile.Driver))
	return nil
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

// executeMultiStmt executes each statement separately; PostgreSQL does not
// accept several statements in a single ExecContext call.
func (s *Store) executeMultiStmt(ctx context.Context, tx *sql.Tx, script string) error {
	for i, stmt := range splitSQL(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, stmt)
		}
	}
	return nil
}

// splitSQL splits a script on semicolons outside single-quoted strings,
// dropping "--" comment lines.
func splitSQL(script string) []string {
	var (
		statements []string
		current    strings.Builder
		inQuote    bool
	)
	for _, line := range strings.Split(script, "\n") {
		if trimmed := strings.TrimSpace(line); !inQuote && (trimmed == "" || strings.HasPrefix(trimmed, "--")) {
			continue
		}
		for i := 0; i < len(line); i++ {
			c := line[i]
			switch {
			case c == '\'':
				inQuote = !inQuote
				current.WriteByte(c)
			case c == ';' && !inQuote:
				if stmt := strings.TrimSpace(current.String()); stmt != "" {
					statements = append(statements, stmt)
				}
				current.Reset()
			default:
				current.WriteByte(c)
			}
		}
		current.WriteByte('\n')
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
