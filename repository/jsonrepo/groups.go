package jsonrepo

import (
	"context"
	"fmt"

	"github.com/projecteru2/gcstore/storage/json"
	"github.com/projecteru2/gcstore/store"
)

// groupsIndex is the on-disk shape of the root (group) repository: every
// stored RootSnapshot keyed by its version, plus which one is current.
type groupsIndex struct {
	Current store.Version                        `json:"current"`
	Roots   map[store.Version]store.RootSnapshot `json:"roots"`
}

func (i *groupsIndex) Init() {
	if i.Roots == nil {
		i.Roots = make(map[store.Version]store.RootSnapshot)
	}
}

// GroupRepository is the JSON-file-backed repository.GroupRepository.
type GroupRepository struct {
	store *json.Store[groupsIndex]
}

// NewGroupRepository builds a GroupRepository backed by the given lock and
// data file paths.
func NewGroupRepository(lockPath, filePath string) *GroupRepository {
	return &GroupRepository{store: json.New[groupsIndex](lockPath, filePath)}
}

// RootVersions enumerates every stored root version.
func (r *GroupRepository) RootVersions(ctx context.Context) store.Seq[store.Version] {
	var versions []store.Version
	err := r.store.With(ctx, func(idx *groupsIndex) error {
		versions = make([]store.Version, 0, len(idx.Roots))
		for v := range idx.Roots {
			versions = append(versions, v)
		}
		return nil
	})
	if err != nil {
		return errSeq[store.Version]{err: fmt.Errorf("read root versions: %w", err)}
	}
	return store.NewSliceSeq(versions)
}

// Root returns the current root snapshot.
func (r *GroupRepository) Root(ctx context.Context) (store.RootSnapshot, error) {
	var snap store.RootSnapshot
	err := r.store.With(ctx, func(idx *groupsIndex) error {
		found, ok := idx.Roots[idx.Current]
		if !ok {
			return fmt.Errorf("current root %s not found", idx.Current)
		}
		snap = found
		return nil
	})
	return snap, err
}

// LazyRootVersion fetches the full snapshot for a given version, if still
// stored.
func (r *GroupRepository) LazyRootVersion(ctx context.Context, v store.Version) (store.RootSnapshot, bool, error) {
	var (
		snap  store.RootSnapshot
		found bool
	)
	err := r.store.With(ctx, func(idx *groupsIndex) error {
		snap, found = idx.Roots[v]
		return nil
	})
	return snap, found, err
}

// DeleteRootVersion removes a single stored root version.
func (r *GroupRepository) DeleteRootVersion(ctx context.Context, v store.Version) error {
	return r.store.Update(ctx, func(idx *groupsIndex) error {
		delete(idx.Roots, v)
		return nil
	})
}

// StoreRoot records a new root snapshot and makes it current. See
// AppRepository.StoreVersion for why this isn't part of the GC-facing port.
func (r *GroupRepository) StoreRoot(ctx context.Context, snap store.RootSnapshot) error {
	return r.store.Update(ctx, func(idx *groupsIndex) error {
		idx.Roots[snap.Version] = snap
		idx.Current = snap.Version
		return nil
	})
}
