package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite
  database: store.db
jwt:
  tokenTTL: 2h
orders:
  autoCompleteDays: 20
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "store.db", cfg.Database.DSNString())
	assert.Equal(t, 2*time.Hour, cfg.JWT.TokenTTL)
	assert.Equal(t, 20, cfg.Orders.AutoCompleteDays)
	// 未填寫的欄位保留預設
	assert.Equal(t, 180, cfg.Membership.WindowDays)
	assert.Equal(t, ":3000", cfg.Server.Addr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestDSNString(t *testing.T) {
	base := DatabaseConfig{Username: "u", Password: "p", Host: "h", Port: "1", Database: "d"}

	tests := []struct {
		driver string
		want   string
	}{
		{driver: "mysql", want: "u:p@tcp(h:1)/d?charset=utf8mb4&parseTime=True&loc=Local"},
		{driver: "postgres", want: "host=h user=u password=p dbname=d port=1 sslmode=disable"},
		{driver: "sqlserver", want: "sqlserver://u:p@h:1?database=d"},
		{driver: "sqlite", want: "d"},
	}
	for _, tc := range tests {
		t.Run(tc.driver, func(t *testing.T) {
			cfg := base
			cfg.Driver = tc.driver
			assert.Equal(t, tc.want, cfg.DSNString())
		})
	}

	base.DSN = "explicit"
	assert.Equal(t, "explicit", base.DSNString())
}

func TestBuildDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := buildDialector("oracle", "x")
	assert.Error(t, err)
}

func TestSetupDatabaseSQLite(t *testing.T) {
	db, err := SetupDatabase(DatabaseConfig{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "store.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)

	for _, model := range []string{"users", "products", "carts", "cart_items", "orders", "order_items", "favorites", "reviews", "login_tokens"} {
		assert.True(t, db.Migrator().HasTable(model), model)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
