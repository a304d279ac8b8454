package jsonrepo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/gcstore/store"
)

func tempPaths(t *testing.T, name string) (lockPath, filePath string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, name+".lock"), filepath.Join(dir, name+".json")
}

func TestAppRepository_StoreAndReadRoundTrips(t *testing.T) {
	lockPath, filePath := tempPaths(t, "apps")
	repo := NewAppRepository(lockPath, filePath)
	ctx := context.Background()

	id := store.NewPathID("apps", "svc")
	v1 := store.NewVersion(time.Unix(1, 0))
	v2 := store.NewVersion(time.Unix(2, 0))

	require.NoError(t, repo.StoreVersion(ctx, id, v1))
	require.NoError(t, repo.StoreVersion(ctx, id, v2))

	ids, err := store.CollectSeq(ctx, repo.IDs(ctx))
	require.NoError(t, err)
	assert.ElementsMatch(t, []store.PathID{id}, ids)

	versions, err := store.CollectSeq(ctx, repo.Versions(ctx, id))
	require.NoError(t, err)
	assert.ElementsMatch(t, []store.Version{v1, v2}, versions)
}

func TestAppRepository_DeleteVersionThenDelete(t *testing.T) {
	lockPath, filePath := tempPaths(t, "apps")
	repo := NewAppRepository(lockPath, filePath)
	ctx := context.Background()

	id := store.NewPathID("apps", "svc")
	v1 := store.NewVersion(time.Unix(1, 0))
	v2 := store.NewVersion(time.Unix(2, 0))
	require.NoError(t, repo.StoreVersion(ctx, id, v1))
	require.NoError(t, repo.StoreVersion(ctx, id, v2))

	require.NoError(t, repo.DeleteVersion(ctx, id, v1))
	versions, err := store.CollectSeq(ctx, repo.Versions(ctx, id))
	require.NoError(t, err)
	assert.ElementsMatch(t, []store.Version{v2}, versions)

	require.NoError(t, repo.Delete(ctx, id))
	ids, err := store.CollectSeq(ctx, repo.IDs(ctx))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAppRepository_ReadBeforeAnyWriteIsEmpty(t *testing.T) {
	lockPath, filePath := tempPaths(t, "apps")
	repo := NewAppRepository(lockPath, filePath)
	ctx := context.Background()

	ids, err := store.CollectSeq(ctx, repo.IDs(ctx))
	require.NoError(t, err)
	assert.Empty(t, ids, "a store with no backing file yet reads as empty, not an error")
}

func TestPodRepository_StoreAndDeleteRoundTrips(t *testing.T) {
	lockPath, filePath := tempPaths(t, "pods")
	repo := NewPodRepository(lockPath, filePath)
	ctx := context.Background()

	id := store.NewPathID("pods", "svc")
	v1 := store.NewVersion(time.Unix(1, 0))
	require.NoError(t, repo.StoreVersion(ctx, id, v1))

	versions, err := store.CollectSeq(ctx, repo.Versions(ctx, id))
	require.NoError(t, err)
	assert.ElementsMatch(t, []store.Version{v1}, versions)

	require.NoError(t, repo.Delete(ctx, id))
	versions, err = store.CollectSeq(ctx, repo.Versions(ctx, id))
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestGroupRepository_StoreRootAndReadCurrent(t *testing.T) {
	lockPath, filePath := tempPaths(t, "groups")
	repo := NewGroupRepository(lockPath, filePath)
	ctx := context.Background()

	appID := store.NewPathID("apps", "svc")
	appV := store.NewVersion(time.Unix(1, 0))
	rootV := store.NewVersion(time.Unix(10, 0))

	root := store.NewRootSnapshot(rootV)
	root.AddApp(appID, appV)
	require.NoError(t, repo.StoreRoot(ctx, root))

	current, err := repo.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, rootV, current.Version)
	assert.Contains(t, current.TransitiveApps, appID)
	assert.Contains(t, current.TransitiveApps[appID], appV)

	versions, err := store.CollectSeq(ctx, repo.RootVersions(ctx))
	require.NoError(t, err)
	assert.ElementsMatch(t, []store.Version{rootV}, versions)

	snap, ok, err := repo.LazyRootVersion(ctx, rootV)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rootV, snap.Version)

	require.NoError(t, repo.DeleteRootVersion(ctx, rootV))
	_, ok, err = repo.LazyRootVersion(ctx, rootV)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGroupRepository_RootErrorsWhenCurrentMissing(t *testing.T) {
	lockPath, filePath := tempPaths(t, "groups")
	repo := NewGroupRepository(lockPath, filePath)
	ctx := context.Background()

	_, err := repo.Root(ctx)
	assert.Error(t, err, "an empty store has no current root")
}

func TestDeploymentRepository_StoreListAndDeletePlan(t *testing.T) {
	lockPath, filePath := tempPaths(t, "deployments")
	repo := NewDeploymentRepository(lockPath, filePath)
	ctx := context.Background()

	ref := store.PlanRef{
		ID:              "p1",
		OriginalVersion: store.NewVersion(time.Unix(1, 0)),
		TargetVersion:   store.NewVersion(time.Unix(2, 0)),
	}
	require.NoError(t, repo.StorePlan(ctx, ref))

	plans, err := store.CollectSeq(ctx, repo.LazyAll(ctx))
	require.NoError(t, err)
	assert.ElementsMatch(t, []store.PlanRef{ref}, plans)

	require.NoError(t, repo.DeletePlan(ctx, ref.ID))
	plans, err = store.CollectSeq(ctx, repo.LazyAll(ctx))
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestNewPlan_AssignsFreshOpaqueID(t *testing.T) {
	original := store.NewRootSnapshot(store.NewVersion(time.Unix(1, 0)))
	target := store.NewRootSnapshot(store.NewVersion(time.Unix(2, 0)))

	p1 := NewPlan(original, target)
	p2 := NewPlan(original, target)

	assert.NotEmpty(t, p1.ID)
	assert.NotEqual(t, p1.ID, p2.ID, "each plan gets a distinct identifier")
	assert.Equal(t, original.Version, p1.Original.Version)
	assert.Equal(t, target.Version, p1.Target.Version)
}

// TestPathIDAndVersion_RoundTripAsJSONMapKeys pins the encoding.TextMarshaler
// behavior that lets PathID/Version serve as JSON object keys: without it,
// the first Update/With cycle through a map keyed by either type would fail
// to encode.
func TestPathIDAndVersion_RoundTripAsJSONMapKeys(t *testing.T) {
	lockPath, filePath := tempPaths(t, "apps")
	repo := NewAppRepository(lockPath, filePath)
	ctx := context.Background()

	id := store.NewPathID("apps", "nested/svc")
	v := store.NewVersion(time.Unix(42, 0))
	require.NoError(t, repo.StoreVersion(ctx, id, v))

	// A second, independent repository instance over the same files forces
	// a real unmarshal from disk, not just an in-memory round trip.
	reread := NewAppRepository(lockPath, filePath)
	versions, err := store.CollectSeq(ctx, reread.Versions(ctx, id))
	require.NoError(t, err)
	assert.ElementsMatch(t, []store.Version{v}, versions)
}
