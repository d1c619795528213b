package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/andy/casetrail/internal/config"
	"github.com/andy/casetrail/internal/db"
	"github.com/andy/casetrail/internal/domain"
	"github.com/andy/casetrail/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "casetrail.db")
	cfg.User = config.UserConfig{Login: "alice", Name: "Alice"}

	classes, err := cfg.ClassRegistry()
	require.NoError(t, err)

	database, err := db.Open(cfg.Database.Path, "test-key")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations())

	a := wire(cfg, classes, database, logging.Nop())
	a.ConfigPath = filepath.Join(dir, "config.yaml")
	t.Cleanup(func() { a.Close() })
	return a
}

func historyLogins(t *testing.T, a *App, ref domain.ObjectRef) []string {
	t.Helper()

	cursor, err := a.ChangeRepo.QueryChangeOps(context.Background(), domain.ChangeOpQuery{Object: ref})
	require.NoError(t, err)
	defer cursor.Close()

	var logins []string
	for cursor.Next() {
		logins = append(logins, cursor.ChangeOp().UserLogin)
	}
	require.NoError(t, cursor.Err())
	return logins
}

func TestSaveConfig_ReconfiguresRunningServices(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	objects := a.ObjectService
	activitySvc := a.ActivityService

	obj, err := objects.Create(ctx, "UserRequest", "Printer jam", nil, domain.OriginCLI)
	require.NoError(t, err)

	a.Config.User = config.UserConfig{Login: "bob", Name: "Bob"}
	a.Config.History.MaxLength = 1
	require.NoError(t, a.SaveConfig())

	// screens keep the services they were built with
	assert.Same(t, objects, a.ObjectService)
	assert.Same(t, activitySvc, a.ActivityService)

	_, err = objects.SetAttributes(ctx, obj.Ref(), map[string]string{"priority": "1"}, domain.OriginCLI)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, historyLogins(t, a, obj.Ref()))

	_, timeline, err := activitySvc.GetTimeline(ctx, obj.Ref())
	require.NoError(t, err)
	assert.Equal(t, 1, timeline.Len())

	saved, err := config.Load(a.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "bob", saved.User.Login)
	assert.Equal(t, 1, saved.History.MaxLength)
}

func TestSaveConfig_InvalidKeepsServices(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	a.Config.User.Login = ""
	assert.Error(t, a.SaveConfig())
	assert.NoFileExists(t, a.ConfigPath)

	obj, err := a.ObjectService.Create(ctx, "UserRequest", "Printer jam", nil, domain.OriginCLI)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, historyLogins(t, a, obj.Ref()))
}
