package gc

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/gcstore/store"
)

func newTestCoordinator(repos Repositories, cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	return &Coordinator{
		repos:   repos,
		cfg:     cfg,
		scan:    newScanEngine(repos, cfg),
		compact: newCompactEngine(repos),
		metrics: newMetrics(prometheus.NewRegistry()),
		mailbox: make(chan message, 64),
	}
}

// recvMailbox waits for the coordinator's background goroutines (scan,
// compact) to post their completion message, rather than sleeping.
func recvMailbox(t *testing.T, c *Coordinator) message {
	t.Helper()
	select {
	case m := <-c.mailbox:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for coordinator mailbox message")
		return nil
	}
}

func TestCoordinator_NoOpScanReturnsToReadyForGC(t *testing.T) {
	repos, _, _, groups, _ := newTestRepos()
	for i := time.Duration(1); i <= 3; i++ {
		groups.Put(rootAt(t, i))
	}
	groups.SetCurrent(mkVersion(t, 3))

	ctx := context.Background()
	c := newTestCoordinator(repos, Config{MaxVersions: 10})
	c.state = stateReadyForGC

	c.handle(ctx, runGC{})
	assert.Equal(t, stateScanning, c.state)

	c.handle(ctx, recvMailbox(t, c))
	assert.Equal(t, stateReadyForGC, c.state, "an empty scan result returns to ReadyForGc under cleaning_interval=0")

	done := c.StoreApp(ctx, store.NewPathID("apps", "a"), nil)
	c.handle(ctx, <-c.mailbox)
	err, ok := <-done
	require.True(t, ok)
	assert.NoError(t, err, "writes admit immediately once back in ReadyForGc")
}

func TestCoordinator_RunGCDuringRestingIsIgnored(t *testing.T) {
	repos, _, _, _, _ := newTestRepos()
	ctx := context.Background()
	c := newTestCoordinator(repos, Config{MaxVersions: 10, CleaningInterval: time.Minute})
	c.state = stateResting

	c.handle(ctx, runGC{})

	assert.Equal(t, stateResting, c.state, "RunGC while Resting is a no-op")
	assert.Empty(t, c.mailbox, "no scan is started")
}

func TestCoordinator_EnterRestOrReady_HonorsCleaningInterval(t *testing.T) {
	repos, _, _, _, _ := newTestRepos()

	zero := newTestCoordinator(repos, Config{MaxVersions: 10, CleaningInterval: 0})
	zero.enterRestOrReady()
	assert.Equal(t, stateReadyForGC, zero.state, "cleaning_interval=0 never enters Resting")

	withRest := newTestCoordinator(repos, Config{MaxVersions: 10, CleaningInterval: time.Minute})
	withRest.enterRestOrReady()
	assert.Equal(t, stateResting, withRest.state)
	require.NotNil(t, withRest.restTimer)
}

// TestCoordinator_WriteDuringScanRaceIsExcludedFromDeletion exercises
// spec.md §8 scenario #4: a StoreApp for a version scan also (independently)
// marked for deletion arrives mid-scan. The writer is admitted immediately,
// and the effective deletion set must exclude that exact version.
func TestCoordinator_WriteDuringScanRaceIsExcludedFromDeletion(t *testing.T) {
	repos, _, _, _, _ := newTestRepos()
	ctx := context.Background()
	c := newTestCoordinator(repos, Config{MaxVersions: 1})

	appID := store.NewPathID("apps", "a")
	v1 := mkVersion(t, 1)
	v2 := mkVersion(t, 2)

	c.state = stateScanning
	c.tracked = newTrackedWrites()

	done := c.StoreApp(ctx, appID, &v1)
	c.handle(ctx, <-c.mailbox)

	err, ok := <-done
	require.True(t, ok)
	assert.NoError(t, err, "writer is admitted immediately during Scanning")

	scanResult := NewScanResult()
	scanResult.AppVersionsDelete[appID] = map[store.Version]struct{}{v1: {}, v2: {}}

	c.handle(ctx, scanDone{result: scanResult})

	require.Equal(t, stateCompacting, c.state)
	require.Contains(t, c.blocked.AppVersionsDelete, appID)
	assert.NotContains(t, c.blocked.AppVersionsDelete[appID], v1, "the racing write must survive compaction")
	assert.Contains(t, c.blocked.AppVersionsDelete[appID], v2)
}

func TestCoordinator_RunGCCoalescesDuringScanning(t *testing.T) {
	repos, _, _, _, _ := newTestRepos()
	ctx := context.Background()
	c := newTestCoordinator(repos, Config{MaxVersions: 10})

	c.state = stateScanning
	c.tracked = newTrackedWrites()

	for i := 0; i < 3; i++ {
		c.handle(ctx, runGC{})
	}
	assert.True(t, c.tracked.GCRequested)

	c.handle(ctx, scanDone{result: NewScanResult()})
	assert.Equal(t, stateScanning, c.state, "a coalesced RunGC starts exactly one more cycle, not zero")

	// Drain the second scan's completion and let it settle with nothing
	// further requested.
	c.handle(ctx, recvMailbox(t, c))
	assert.Equal(t, stateReadyForGC, c.state)
}

func TestCoordinator_RunGCCoalescesDuringCompacting(t *testing.T) {
	repos, _, _, _, _ := newTestRepos()
	ctx := context.Background()
	c := newTestCoordinator(repos, Config{MaxVersions: 10})

	c.state = stateCompacting
	c.blocked = newBlockedWrites()

	for i := 0; i < 3; i++ {
		c.handle(ctx, runGC{})
	}
	assert.True(t, c.blocked.GCRequested)

	c.handle(ctx, compactDone{})
	assert.Equal(t, stateScanning, c.state, "a coalesced RunGC starts exactly one more cycle, not zero")

	c.handle(ctx, recvMailbox(t, c))
	assert.Equal(t, stateReadyForGC, c.state)
}

func TestCoordinator_StorePlanDuringCompact_ResolvesOnceBothRootsSettle(t *testing.T) {
	repos, _, _, _, _ := newTestRepos()
	ctx := context.Background()
	c := newTestCoordinator(repos, Config{MaxVersions: 10})

	pinnedRootV := mkVersion(t, 1)
	freeRootV := mkVersion(t, 2)

	c.state = stateCompacting
	c.blocked = newBlockedWrites()
	c.blocked.RootsDelete[pinnedRootV] = struct{}{}

	plan := store.Plan{
		ID:       "p1",
		Original: store.NewRootSnapshot(pinnedRootV),
		Target:   store.NewRootSnapshot(freeRootV),
	}
	done := c.StorePlan(ctx, plan)
	c.handle(ctx, <-c.mailbox)

	select {
	case <-done:
		t.Fatal("plan handle must not resolve while its original root is pinned")
	case <-time.After(50 * time.Millisecond):
	}

	c.blocked.releaseAll()

	err, ok := <-done
	require.True(t, ok)
	assert.NoError(t, err)
}
