package migrations_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/trialguard/internal/migrations"
	"github.com/magabrotheeeer/trialguard/internal/storage/pgtest"
)

func TestRun(t *testing.T) {
	_, db := pgtest.Start(t)
	path := pgtest.MigrationsPath(t)

	require.NoError(t, migrations.Run(db, path))

	for _, table := range []string{"users", "subscriptions", "reminders", "notifications"} {
		var exists bool
		err := db.QueryRow(`
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, table).Scan(&exists)
		require.NoError(t, err)
		require.Truef(t, exists, "table %s should exist", table)
	}

	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public' AND tablename = 'reminders' AND indexname = 'idx_reminders_sent_date'
		)`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists, "reminder scan index should exist")
}

func TestRun_Idempotent(t *testing.T) {
	_, db := pgtest.Start(t)
	path := pgtest.MigrationsPath(t)

	require.NoError(t, migrations.Run(db, path))
	require.NoError(t, migrations.Run(db, path), "second run must be a no-op")
}

func TestRun_RejectsBadPrice(t *testing.T) {
	_, db := pgtest.StartMigrated(t)

	var uid string
	require.NoError(t, db.QueryRow(`INSERT INTO users (email, username, password_hash)
		VALUES ('a@b.c', 'a', 'x') RETURNING uid`).Scan(&uid))

	_, err := db.Exec(`INSERT INTO subscriptions (user_uid, name, price, billing_cycle)
		VALUES ($1, 'Free', 0, 'MONTHLY')`, uid)
	require.Error(t, err)

	_, err = db.Exec(`INSERT INTO subscriptions (user_uid, name, price, billing_cycle)
		VALUES ($1, 'Daily', 1, 'DAILY')`, uid)
	require.Error(t, err)
}
