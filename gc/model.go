package gc

import "github.com/projecteru2/gcstore/store"

// ScanResult is the output of one scan pass: everything the scan engine
// believes is safe to delete. It forms a monoid under elementwise set
// union, used to fold per-batch results (spec.md §3).
type ScanResult struct {
	AppsFullDelete    map[store.PathID]struct{}
	AppVersionsDelete map[store.PathID]map[store.Version]struct{}
	PodsFullDelete    map[store.PathID]struct{}
	PodVersionsDelete map[store.PathID]map[store.Version]struct{}
	RootsDelete       map[store.Version]struct{}
}

// NewScanResult returns the empty identity element.
func NewScanResult() ScanResult {
	return ScanResult{
		AppsFullDelete:    make(map[store.PathID]struct{}),
		AppVersionsDelete: make(map[store.PathID]map[store.Version]struct{}),
		PodsFullDelete:    make(map[store.PathID]struct{}),
		PodVersionsDelete: make(map[store.PathID]map[store.Version]struct{}),
		RootsDelete:       make(map[store.Version]struct{}),
	}
}

// IsEmpty mirrors the source behavior: it checks only apps and roots, not
// pods (spec.md §9, open question #2 — implemented as-is, not "fixed").
// TestScanResult_IsEmpty_IgnoresPods pins this choice.
func (r ScanResult) IsEmpty() bool {
	return len(r.AppsFullDelete) == 0 && len(r.AppVersionsDelete) == 0 && len(r.RootsDelete) == 0
}

// Merge folds other into a fresh ScanResult by elementwise union (the
// monoid operation; associative and commutative, tested in model_test.go).
func (r ScanResult) Merge(other ScanResult) ScanResult {
	out := ScanResult{
		AppsFullDelete:    unionSet(r.AppsFullDelete, other.AppsFullDelete),
		AppVersionsDelete: unionSetMap(r.AppVersionsDelete, other.AppVersionsDelete),
		PodsFullDelete:    unionSet(r.PodsFullDelete, other.PodsFullDelete),
		PodVersionsDelete: unionSetMap(r.PodVersionsDelete, other.PodVersionsDelete),
		RootsDelete:       unionSet(r.RootsDelete, other.RootsDelete),
	}
	return out
}

func unionSet[T comparable](a, b map[T]struct{}) map[T]struct{} {
	out := make(map[T]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func unionSetMap[K, V comparable](a, b map[K]map[V]struct{}) map[K]map[V]struct{} {
	out := make(map[K]map[V]struct{}, len(a)+len(b))
	for k, vs := range a {
		out[k] = unionSet(out[k], vs)
	}
	for k, vs := range b {
		out[k] = unionSet(out[k], vs)
	}
	return out
}

// TrackedWrites accumulates writes observed while Scanning: what was
// successfully stored since the scan began, used to subtract from the raw
// scan result before compact (spec.md §4.3).
type TrackedWrites struct {
	AppsStored        map[store.PathID]struct{}
	AppVersionsStored map[store.PathID]map[store.Version]struct{}
	PodsStored        map[store.PathID]struct{}
	PodVersionsStored map[store.PathID]map[store.Version]struct{}
	RootsStored       map[store.Version]struct{}
	GCRequested       bool
}

// newTrackedWrites returns an empty TrackedWrites.
func newTrackedWrites() *TrackedWrites {
	return &TrackedWrites{
		AppsStored:        make(map[store.PathID]struct{}),
		AppVersionsStored: make(map[store.PathID]map[store.Version]struct{}),
		PodsStored:        make(map[store.PathID]struct{}),
		PodVersionsStored: make(map[store.PathID]map[store.Version]struct{}),
		RootsStored:       make(map[store.Version]struct{}),
	}
}

func addVersion(m map[store.PathID]map[store.Version]struct{}, id store.PathID, v store.Version) {
	if m[id] == nil {
		m[id] = make(map[store.Version]struct{})
	}
	m[id][v] = struct{}{}
}

// recordRoot merges a stored root's transitive references into the tracked
// app/pod version sets and records the root version itself — the shared
// logic behind storeRoot and the two internal stores a storePlan expands
// into (spec.md §4.3: "StorePlan... as if two StoreRoots arrived").
func (t *TrackedWrites) recordRoot(root store.RootSnapshot) {
	t.RootsStored[root.Version] = struct{}{}
	for appID, versions := range root.TransitiveApps {
		for v := range versions {
			addVersion(t.AppVersionsStored, appID, v)
		}
	}
	for podID, versions := range root.TransitivePods {
		for v := range versions {
			addVersion(t.PodVersionsStored, podID, v)
		}
	}
}

// effectiveDeletionSet computes BlockedWrites by filtering scan's raw
// output against everything observed during the scan (spec.md §4.3's
// conservative step): any record a writer announced is removed from
// deletion, even if the scan believed it was garbage.
func (t *TrackedWrites) effectiveDeletionSet(scan ScanResult) *BlockedWrites {
	b := newBlockedWrites()
	b.GCRequested = t.GCRequested

	for id := range scan.AppsFullDelete {
		if _, stored := t.AppsStored[id]; stored {
			continue
		}
		if _, stored := t.AppVersionsStored[id]; stored {
			continue
		}
		b.AppsDelete[id] = struct{}{}
	}
	for id, versions := range scan.AppVersionsDelete {
		remaining := subtractVersions(versions, t.AppVersionsStored[id])
		if len(remaining) > 0 {
			b.AppVersionsDelete[id] = remaining
		}
	}
	for id := range scan.PodsFullDelete {
		if _, stored := t.PodsStored[id]; stored {
			continue
		}
		if _, stored := t.PodVersionsStored[id]; stored {
			continue
		}
		b.PodsDelete[id] = struct{}{}
	}
	for id, versions := range scan.PodVersionsDelete {
		remaining := subtractVersions(versions, t.PodVersionsStored[id])
		if len(remaining) > 0 {
			b.PodVersionsDelete[id] = remaining
		}
	}
	for v := range scan.RootsDelete {
		if _, stored := t.RootsStored[v]; stored {
			continue
		}
		b.RootsDelete[v] = struct{}{}
	}
	return b
}

func subtractVersions(a, b map[store.Version]struct{}) map[store.Version]struct{} {
	out := make(map[store.Version]struct{}, len(a))
	for v := range a {
		if _, excluded := b[v]; !excluded {
			out[v] = struct{}{}
		}
	}
	return out
}

// BlockedWrites is the finalized deletion set executed by compact; it also
// indexes the pin-or-release decision for concurrent writes (spec.md §4.4).
type BlockedWrites struct {
	AppsDelete        map[store.PathID]struct{}
	AppVersionsDelete map[store.PathID]map[store.Version]struct{}
	PodsDelete        map[store.PathID]struct{}
	PodVersionsDelete map[store.PathID]map[store.Version]struct{}
	RootsDelete       map[store.Version]struct{}
	GCRequested       bool

	// pending holds completion handles for writes pinned until compact
	// finishes.
	pending []chan<- error
}

func newBlockedWrites() *BlockedWrites {
	return &BlockedWrites{
		AppsDelete:        make(map[store.PathID]struct{}),
		AppVersionsDelete: make(map[store.PathID]map[store.Version]struct{}),
		PodsDelete:        make(map[store.PathID]struct{}),
		PodVersionsDelete: make(map[store.PathID]map[store.Version]struct{}),
		RootsDelete:       make(map[store.Version]struct{}),
	}
}

// isEmpty reports whether BlockedWrites has nothing left to delete — used
// by the coordinator as a (rare) fast path to skip spawning compact when
// tracked writes filtered away the entire scan result.
func (b *BlockedWrites) isEmpty() bool {
	return len(b.AppsDelete) == 0 && len(b.AppVersionsDelete) == 0 &&
		len(b.PodsDelete) == 0 && len(b.PodVersionsDelete) == 0 && len(b.RootsDelete) == 0
}

// pin holds a writer's completion handle until compact finishes.
func (b *BlockedWrites) pin(done chan<- error) {
	b.pending = append(b.pending, done)
}

// releaseAll completes every pinned handle with nil (Ok) — called once
// compact finishes, success or failure (spec.md §4.4: "Pinned writers are
// not rejected... all pinned handles are completed Ok").
func (b *BlockedWrites) releaseAll() {
	for _, done := range b.pending {
		done <- nil
		close(done)
	}
	b.pending = nil
}
