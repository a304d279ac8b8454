package gc

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/gcstore/store"
)

// scanEngine computes a candidate deletion set against the repositories
// and the current root/plans. It never returns an error to its caller —
// repository-read failures are swallowed into an empty result and logged,
// matching spec.md §7's error taxonomy (failures just mean more garbage
// survives until next cycle).
type scanEngine struct {
	repos Repositories
	cfg   Config
}

func newScanEngine(repos Repositories, cfg Config) *scanEngine {
	return &scanEngine{repos: repos, cfg: cfg.withDefaults()}
}

// run executes the ten-step algorithm in spec.md §4.2.
func (s *scanEngine) run(ctx context.Context) ScanResult {
	logger := log.WithFunc("gc.scan")

	result, err := s.scan(ctx)
	if err != nil {
		logger.Warnf(ctx, "scan failed, treating as empty: %v", err)
		return NewScanResult()
	}
	return result
}

func (s *scanEngine) scan(ctx context.Context) (ScanResult, error) {
	logger := log.WithFunc("gc.scan")

	// Step 1: enumerate all root versions.
	rootVersionSeq := s.repos.Groups.RootVersions(ctx)
	rootVersions, err := store.CollectSeq(ctx, rootVersionSeq)
	if err != nil {
		return NewScanResult(), err
	}

	// Step 2: below the cap, nothing to do.
	if len(rootVersions) <= s.cfg.MaxVersions {
		return NewScanResult(), nil
	}

	// Step 3: read the current root and all stored plans concurrently.
	var (
		current store.RootSnapshot
		plans   []store.PlanRef
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var rootErr error
		current, rootErr = s.repos.Groups.Root(gctx)
		return rootErr
	})
	g.Go(func() error {
		var plansErr error
		plans, plansErr = store.CollectSeq(gctx, s.repos.Deployments.LazyAll(gctx))
		return plansErr
	})
	if err := g.Wait(); err != nil {
		return NewScanResult(), err
	}

	// Step 4: pinned roots = current ∪ every plan's original/target.
	pinned := map[store.Version]struct{}{current.Version: {}}
	for _, p := range plans {
		pinned[p.OriginalVersion] = struct{}{}
		pinned[p.TargetVersion] = struct{}{}
	}

	// Step 5: candidates = root_versions \ pinned_roots.
	var candidates []store.Version
	for _, v := range rootVersions {
		if _, ok := pinned[v]; !ok {
			candidates = append(candidates, v)
		}
	}

	// Step 6: nothing unpinned to prune.
	if len(candidates) == 0 {
		return NewScanResult(), nil
	}
	excess := len(rootVersions) - s.cfg.MaxVersions
	candidates = store.SortVersions(candidates)

	// Step 7: take the oldest `excess` candidates.
	rootsToDelete := candidates
	if excess < len(rootsToDelete) {
		rootsToDelete = rootsToDelete[:excess]
	}

	// Step 8: hydrate each plan's referenced roots into full snapshots,
	// lazily, one in flight at a time.
	pinningRootVersions := make([]store.Version, 0, len(pinned))
	for v := range pinned {
		pinningRootVersions = append(pinningRootVersions, v)
	}
	hydrated, err := s.hydrateRoots(ctx, pinningRootVersions)
	if err != nil {
		return NewScanResult(), err
	}
	// current is already a full snapshot; fold it in too so usage
	// accounting below always includes it even if it wasn't re-hydrated.
	hydrated = append(hydrated, current)

	// Step 9: fold batch results over the hydrated pinning roots.
	appIDs, err := store.CollectSeq(ctx, s.repos.Apps.IDs(ctx))
	if err != nil {
		return NewScanResult(), err
	}
	podIDs, err := store.CollectSeq(ctx, s.repos.Pods.IDs(ctx))
	if err != nil {
		return NewScanResult(), err
	}

	result := NewScanResult()
	for i := 0; i < len(hydrated); i += s.cfg.ScanBatchSize {
		end := i + s.cfg.ScanBatchSize
		if end > len(hydrated) {
			end = len(hydrated)
		}
		batch := hydrated[i:end]
		batchResult, batchErr := s.scanBatch(ctx, batch, current, appIDs, podIDs, rootsToDelete)
		if batchErr != nil {
			logger.Warnf(ctx, "scan batch failed, skipping: %v", batchErr)
			continue
		}
		result = result.Merge(batchResult)
	}
	return result, nil
}

// hydrateRoots fetches full RootSnapshots for the given versions, one in
// flight at a time (spec.md §4.2 step 8). Missing roots (already deleted
// by a racing compact) are silently skipped.
func (s *scanEngine) hydrateRoots(ctx context.Context, versions []store.Version) ([]store.RootSnapshot, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(1)

	out := make([]store.RootSnapshot, 0, len(versions))
	for _, v := range versions {
		version := v
		g.Go(func() error {
			snap, ok, err := s.repos.Groups.LazyRootVersion(gctx, version)
			if err != nil {
				return err
			}
			if ok {
				out = append(out, snap)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanBatch computes the per-batch ScanResult pieces described in spec.md
// §4.2 step 9.
func (s *scanEngine) scanBatch(
	ctx context.Context,
	batch []store.RootSnapshot,
	current store.RootSnapshot,
	allAppIDs, allPodIDs []store.PathID,
	rootsToDelete []store.Version,
) (ScanResult, error) {
	appsInUse := make(map[store.PathID]map[store.Version]struct{})
	podsInUse := make(map[store.PathID]map[store.Version]struct{})

	mergeUsage := func(snap store.RootSnapshot) {
		for id, versions := range snap.TransitiveApps {
			for v := range versions {
				addVersion(appsInUse, id, v)
			}
		}
		for id, versions := range snap.TransitivePods {
			for v := range versions {
				addVersion(podsInUse, id, v)
			}
		}
	}
	for _, snap := range batch {
		mergeUsage(snap)
	}
	mergeUsage(current)

	result := NewScanResult()

	for id, versions := range appsInUse {
		stored, err := store.CollectSeq(ctx, s.repos.Apps.Versions(ctx, id))
		if err != nil {
			return NewScanResult(), err
		}
		if len(stored) <= s.cfg.MaxVersions {
			continue
		}
		excess := len(stored) - s.cfg.MaxVersions
		candidates := versionsNotIn(stored, versions)
		candidates = store.SortVersions(candidates)
		if excess < len(candidates) {
			candidates = candidates[:excess]
		}
		if len(candidates) > 0 {
			result.AppVersionsDelete[id] = toVersionSet(candidates)
		}
	}
	for id, versions := range podsInUse {
		stored, err := store.CollectSeq(ctx, s.repos.Pods.Versions(ctx, id))
		if err != nil {
			return NewScanResult(), err
		}
		if len(stored) <= s.cfg.MaxVersions {
			continue
		}
		excess := len(stored) - s.cfg.MaxVersions
		candidates := versionsNotIn(stored, versions)
		candidates = store.SortVersions(candidates)
		if excess < len(candidates) {
			candidates = candidates[:excess]
		}
		if len(candidates) > 0 {
			result.PodVersionsDelete[id] = toVersionSet(candidates)
		}
	}

	for _, id := range allAppIDs {
		if _, inUse := appsInUse[id]; !inUse {
			result.AppsFullDelete[id] = struct{}{}
		}
	}
	for _, id := range allPodIDs {
		if _, inUse := podsInUse[id]; !inUse {
			result.PodsFullDelete[id] = struct{}{}
		}
	}
	for _, v := range rootsToDelete {
		result.RootsDelete[v] = struct{}{}
	}

	return result, nil
}

func versionsNotIn(all []store.Version, exclude map[store.Version]struct{}) []store.Version {
	var out []store.Version
	for _, v := range all {
		if _, excluded := exclude[v]; !excluded {
			out = append(out, v)
		}
	}
	return out
}

func toVersionSet(versions []store.Version) map[store.Version]struct{} {
	out := make(map[store.Version]struct{}, len(versions))
	for _, v := range versions {
		out[v] = struct{}{}
	}
	return out
}
