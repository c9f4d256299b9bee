package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafeteria-storefront/internal/config"
)

func TestOpenSQLite(t *testing.T) {
	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "cafe", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cafe sslmode=disable", dsn)
}
