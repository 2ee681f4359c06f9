package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pcprep/pcprep-api/internal/repository/dao"
)

// startPostgres runs a throwaway postgres container. Skipped unless
// INTEGRATION is set since it needs a docker daemon.
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()

	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run postgres tests")
	}

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)
	require.NoError(t, pool.Client.Ping())

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=pcprep",
			"POSTGRES_PASSWORD=pcprep",
			"POSTGRES_DB=pcprep",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })
	require.NoError(t, resource.Expire(120))

	url := fmt.Sprintf("postgres://pcprep:pcprep@%s/pcprep?sslmode=disable", resource.GetHostPort("5432/tcp"))

	var gdb *gorm.DB
	pool.MaxWait = 60 * time.Second
	err = pool.Retry(func() error {
		var openErr error
		gdb, openErr = OpenPostgresWithURL(url)
		return openErr
	})
	require.NoError(t, err)

	require.NoError(t, dao.InitTables(gdb))

	return gdb
}

func TestPostgres_UniqueViolations(t *testing.T) {
	gdb := startPostgres(t)
	ctx := context.Background()

	users := dao.NewUserDAO(gdb)
	_, err := users.Insert(ctx, dao.User{Username: "admin", Password: "x", Role: "ADMIN", Active: true})
	require.NoError(t, err)
	_, err = users.Insert(ctx, dao.User{Username: "admin", Password: "y", Role: "ADMIN", Active: true})
	assert.ErrorIs(t, err, dao.ErrUsernameExists)

	events := dao.NewEventDAO(gdb)
	link := dao.ShareLink{EventID: 1, Token: "tok", Active: true, ExpiresAt: time.Now().Add(time.Hour)}
	_, err = events.InsertShareLink(ctx, link)
	require.NoError(t, err)
	_, err = events.InsertShareLink(ctx, link)
	assert.ErrorIs(t, err, dao.ErrShareTokenExists)
}

func TestPostgres_LoadStateUpsert(t *testing.T) {
	gdb := startPostgres(t)
	ctx := context.Background()
	ledger := dao.NewVerificationDAO(gdb)

	_, err := ledger.UpsertLoadState(ctx, dao.ParentLoadState{EventID: 1, NodeID: 2, Loaded: true, VehicleName: "VPSP", UpdatedAt: time.Now()})
	require.NoError(t, err)
	_, err = ledger.UpsertLoadState(ctx, dao.ParentLoadState{EventID: 1, NodeID: 2, Loaded: false, UpdatedAt: time.Now()})
	require.NoError(t, err)

	states, err := ledger.FindLoadStates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.False(t, states[0].Loaded)
}
