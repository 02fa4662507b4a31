package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yeoconnect/payroll/payroll"
	"github.com/yeoconnect/payroll/payroll/store/storetest"
	"github.com/yeoconnect/payroll/store/postgres"
)

// These tests need a disposable database. Every table is truncated before
// each case.
const testDatabaseURLEnv = "PAYROLL_TEST_DATABASE_URL"

func TestPostgres(t *testing.T) {
	url := os.Getenv(testDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseURLEnv)
	}

	storetest.Run(t, func(t *testing.T) payroll.Store {
		ctx := context.Background()
		store, err := postgres.New(ctx, url)
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })

		require.NoError(t, store.Truncate(ctx))
		return store
	})
}
