package storefront

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/config"
	"cafeteria-storefront/internal/domain"
	"cafeteria-storefront/internal/settings"
)

func TestMigrateSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "cafeteria.db")

	require.NoError(t, Migrate(context.Background(), &cfg))
	_, err := os.Stat(cfg.Storage.SQLitePath)
	assert.NoError(t, err)
}

func TestOpenStorage_SettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Driver = driver
			cfg.Storage.SQLitePath = ":memory:"

			st, err := openStorage(ctx, &cfg, logger.New("start-test"))
			require.NoError(t, err)
			defer st.Close()
			require.NoError(t, st.Migrate(ctx))

			want := domain.AdminSettings{IsOpen: false, Message: "Closed"}
			require.NoError(t, st.settings.Update(ctx, want))
			got, err := st.settings.Fetch(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestOpenBroker_DefaultsToMemory(t *testing.T) {
	cfg := config.Default()
	b, err := openBroker(&cfg, logger.New("start-test"))
	require.NoError(t, err)
	assert.IsType(t, &settings.MemoryBroker{}, b)
}

func TestHealthChecks(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	lg := logger.New("start-test")
	broker, err := openBroker(&cfg, lg)
	require.NoError(t, err)

	mem, err := openStorage(ctx, &cfg, lg)
	require.NoError(t, err)
	checks := healthChecks(mem, broker)
	assert.Len(t, checks, 1)
	assert.NoError(t, checks["broker"](ctx))

	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.SQLitePath = ":memory:"
	lite, err := openStorage(ctx, &cfg, lg)
	require.NoError(t, err)
	checks = healthChecks(lite, broker)
	require.Contains(t, checks, "storage")
	assert.NoError(t, checks["storage"](ctx))

	lite.Close()
	assert.Error(t, checks["storage"](ctx))
}

func TestLoadCatalog(t *testing.T) {
	c, err := loadCatalog("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Items())

	_, err = loadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
