package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func TestRunMigration(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{TablePrefix: "mailroute_"},
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, RunMigration(db))
	// Running it twice must not fail, startup always migrates.
	require.NoError(t, RunMigration(db))

	for _, table := range []string{"mailroute_accounts", "mailroute_groups", "mailroute_group_members", "mailroute_route_records", "mailroute_mailbox_records"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
