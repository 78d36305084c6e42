package test

import (
	"os"
	"testing"
)

// GetPostgresDSN returns the DSN for PostgreSQL testing from
// POSTGRES_TEST_DSN, skipping the test when it is unset.
func GetPostgresDSN(t *testing.T) string {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	return dsn
}
