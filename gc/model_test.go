package gc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/gcstore/store"
)

func mkVersion(t *testing.T, offset time.Duration) store.Version {
	t.Helper()
	return store.NewVersion(time.Unix(0, 0).Add(offset))
}

func TestScanResult_MergeIsAssociativeAndCommutative(t *testing.T) {
	appA := store.NewPathID("apps", "a")
	appB := store.NewPathID("apps", "b")
	v1 := mkVersion(t, 1)
	v2 := mkVersion(t, 2)

	r1 := NewScanResult()
	r1.AppsFullDelete[appA] = struct{}{}
	r1.RootsDelete[v1] = struct{}{}

	r2 := NewScanResult()
	r2.AppVersionsDelete[appB] = map[store.Version]struct{}{v2: {}}

	r3 := NewScanResult()
	r3.PodsFullDelete[appA] = struct{}{}

	leftAssoc := r1.Merge(r2).Merge(r3)
	rightAssoc := r1.Merge(r2.Merge(r3))
	assert.Equal(t, leftAssoc, rightAssoc, "merge must be associative")

	commuted := r2.Merge(r1)
	assert.Equal(t, r1.Merge(r2), commuted, "merge must be commutative")
}

func TestScanResult_MergeWithEmptyIsIdentity(t *testing.T) {
	app := store.NewPathID("apps", "a")
	r := NewScanResult()
	r.AppsFullDelete[app] = struct{}{}

	assert.Equal(t, r, r.Merge(NewScanResult()))
	assert.Equal(t, r, NewScanResult().Merge(r))
}

func TestScanResult_IsEmpty_IgnoresPods(t *testing.T) {
	pod := store.NewPathID("pods", "p")

	r := NewScanResult()
	r.PodsFullDelete[pod] = struct{}{}
	r.PodVersionsDelete[pod] = map[store.Version]struct{}{mkVersion(t, 1): {}}

	assert.True(t, r.IsEmpty(), "a pods-only ScanResult is treated as empty")
}

func TestTrackedWrites_EffectiveDeletionSet_ExcludesAnnouncedWrites(t *testing.T) {
	app := store.NewPathID("apps", "a")
	v1 := mkVersion(t, 1)
	v2 := mkVersion(t, 2)
	root := mkVersion(t, 3)

	scan := NewScanResult()
	scan.AppVersionsDelete[app] = map[store.Version]struct{}{v1: {}, v2: {}}
	scan.RootsDelete[root] = struct{}{}

	tracked := newTrackedWrites()
	addVersion(tracked.AppVersionsStored, app, v1)

	blocked := tracked.effectiveDeletionSet(scan)

	require.Contains(t, blocked.AppVersionsDelete, app)
	assert.NotContains(t, blocked.AppVersionsDelete[app], v1, "announced write must be excluded from deletion")
	assert.Contains(t, blocked.AppVersionsDelete[app], v2)
	assert.Contains(t, blocked.RootsDelete, root)
}

func TestTrackedWrites_RecordRoot_MergesTransitiveReferences(t *testing.T) {
	app := store.NewPathID("apps", "a")
	pod := store.NewPathID("pods", "p")
	av := mkVersion(t, 1)
	pv := mkVersion(t, 2)
	rv := mkVersion(t, 3)

	root := store.NewRootSnapshot(rv)
	root.AddApp(app, av)
	root.AddPod(pod, pv)

	tracked := newTrackedWrites()
	tracked.recordRoot(root)

	assert.Contains(t, tracked.RootsStored, rv)
	assert.Contains(t, tracked.AppVersionsStored[app], av)
	assert.Contains(t, tracked.PodVersionsStored[pod], pv)
}

func TestBlockedWrites_ReleaseAll_CompletesEveryPendingHandleOk(t *testing.T) {
	b := newBlockedWrites()
	d1 := make(chan error, 1)
	d2 := make(chan error, 1)
	b.pin(d1)
	b.pin(d2)

	b.releaseAll()

	err1, ok1 := <-d1
	err2, ok2 := <-d2
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.NoError(t, err1)
	assert.NoError(t, err2)
}
