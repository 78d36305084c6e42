package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/divinecanvas/internal/profile"
	"github.com/hrygo/divinecanvas/store"
	"github.com/hrygo/divinecanvas/store/db"
)

// NewTestingStore returns a migrated store. The driver comes from DRIVER
// (sqlite by default, on a file under t.TempDir).
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := &profile.Profile{Mode: "dev", Driver: getDriverFromEnv()}
	switch p.Driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	default:
		p.Driver = "sqlite"
		p.DSN = filepath.Join(t.TempDir(), "divinecanvas_test.db")
	}

	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)

	ts := store.New(driver, p, nil)
	require.NoError(t, ts.Migrate(ctx))
	t.Cleanup(func() {
		if p.Driver == "postgres" {
			_, _ = driver.GetDB().ExecContext(context.Background(), "DROP TABLE IF EXISTS chat_message, chat_session")
		}
		_ = ts.Close()
	})
	return ts
}

func getDriverFromEnv() string {
	return os.Getenv("DRIVER")
}
