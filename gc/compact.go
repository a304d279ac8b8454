package gc

import (
	"context"
	"fmt"
	"strings"

	"github.com/projecteru2/gcstore/store"
)

// compactEngine executes a BlockedWrites deletion set in the strict,
// one-at-a-time order from spec.md §4.4. Ordering is a policy (fail
// loud-and-early on cheap stages), not a correctness requirement.
type compactEngine struct {
	repos Repositories
}

func newCompactEngine(repos Repositories) *compactEngine {
	return &compactEngine{repos: repos}
}

// run deletes everything named by blocked. Every per-record failure is
// collected rather than aborting the stage, then joined into a single
// error (spec.md §7: compact always emits CompactDone, success or not —
// the next cycle retries what failed).
func (c *compactEngine) run(ctx context.Context, blocked *BlockedWrites) error {
	var errs []string

	for id := range blocked.AppsDelete {
		if err := c.repos.Apps.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Sprintf("app %s: %v", id, err))
		}
	}
	for id, versions := range blocked.AppVersionsDelete {
		for v := range versions {
			if err := c.repos.Apps.DeleteVersion(ctx, id, v); err != nil {
				errs = append(errs, fmt.Sprintf("app version %s@%s: %v", id, v, err))
			}
		}
	}
	for id := range blocked.PodsDelete {
		if err := c.repos.Pods.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Sprintf("pod %s: %v", id, err))
		}
	}
	for id, versions := range blocked.PodVersionsDelete {
		for v := range versions {
			if err := c.repos.Pods.DeleteVersion(ctx, id, v); err != nil {
				errs = append(errs, fmt.Sprintf("pod version %s@%s: %v", id, v, err))
			}
		}
	}
	for v := range blocked.RootsDelete {
		if err := c.repos.Groups.DeleteRootVersion(ctx, v); err != nil {
			errs = append(errs, fmt.Sprintf("root version %s: %v", v, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("compact errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// decideStoreApp implements the pin-or-release rule for StoreApp during
// Compacting (spec.md §4.4). version == nil is the None case (storing the
// app itself); non-nil is the Some(v) case.
func decideStoreApp(blocked *BlockedWrites, id store.PathID, version *store.Version) (pin bool) {
	if version == nil {
		_, pin = blocked.AppsDelete[id]
		return pin
	}
	if _, ok := blocked.AppsDelete[id]; ok {
		return true
	}
	_, pin = blocked.AppVersionsDelete[id][*version]
	return pin
}

// decideStorePod is the symmetric rule for pods.
func decideStorePod(blocked *BlockedWrites, id store.PathID, version *store.Version) (pin bool) {
	if version == nil {
		_, pin = blocked.PodsDelete[id]
		return pin
	}
	if _, ok := blocked.PodsDelete[id]; ok {
		return true
	}
	_, pin = blocked.PodVersionsDelete[id][*version]
	return pin
}

// decideStoreRoot implements the root pin-or-release rule. Pods are
// deliberately not consulted here, matching spec.md §4.4's noted
// conscious conservativism (flagged as an open question in §9).
func decideStoreRoot(blocked *BlockedWrites, root store.RootSnapshot) (pin bool) {
	if _, ok := blocked.RootsDelete[root.Version]; ok {
		return true
	}
	for appID := range root.TransitiveApps {
		if _, ok := blocked.AppsDelete[appID]; ok {
			return true
		}
		if _, ok := blocked.AppVersionsDelete[appID]; ok {
			return true
		}
	}
	return false
}
