// Package dbtest starts a throwaway MongoDB for repository tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"storefront/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// Open returns a Store on a fresh database inside a mongo:7 container. The test
// is skipped in -short mode or when no container runtime is reachable.
func Open(t *testing.T) *db.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	store, err := db.Open(openCtx, uri, "test_"+uuid.NewString()[:8], false)
	require.NoError(t, err)
	require.NoError(t, store.EnsureIndexes(openCtx))
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	return store
}
