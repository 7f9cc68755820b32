package startup

import (
	"fmt"
	"os"
	"path/filepath"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"

	"github.com/chatbubble/internal/logger"
)

const (
	devPGPort     = 5432
	devPGUser     = "chatbubble"
	devPGPassword = "chatbubble_dev"
	devPGDatabase = "chatbubble"
)

// StartEmbeddedPostgres поднимает локальный Postgres для -dev (данные в ./.pgdata) и возвращает DSN.
func StartEmbeddedPostgres() (*embeddedpostgres.EmbeddedPostgres, string, error) {
	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create pgdata dir: %w", err)
	}
	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(devPGPort).
			Username(devPGUser).
			Password(devPGPassword).
			Database(devPGDatabase).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "chatbubble-pg-runtime")),
	)
	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, "", fmt.Errorf("start: %w", err)
	}
	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable", devPGUser, devPGPassword, devPGPort, devPGDatabase)
	logger.Infof("embedded PostgreSQL running on port %d", devPGPort)
	return db, dsn, nil
}
