package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		for _, tableName := range []string{"commodity_prices", "alert_history"} {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("commodity_prices has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"id":         "integer",
			"commodity":  "character varying",
			"location":   "character varying",
			"date":       "date",
			"price":      "numeric",
			"source":     "character varying",
			"created_at": "timestamp without time zone",
		}

		for colName, expectedType := range expectedColumns {
			var actualType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = 'commodity_prices' AND column_name = $1
			`, colName).Scan(&actualType)

			require.NoError(t, err, "column %s should exist in commodity_prices table", colName)
			assert.Equal(t, expectedType, actualType, "column %s should have type %s", colName, expectedType)
		}
	})

	t.Run("negative prices are rejected", func(t *testing.T) {
		_, err := testDB.GetRawConn().Exec(`
			INSERT INTO commodity_prices (commodity, location, date, price)
			VALUES ('wheat', 'lahore', '2024-01-01', -1)
		`)
		assert.Error(t, err)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		assert.NoError(t, testDB.Migrate())
	})
}
