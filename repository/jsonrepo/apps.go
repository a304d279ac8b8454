// Package jsonrepo provides flock-protected, JSON-file-backed
// implementations of the repository ports the GC core consumes, grounded
// on the same locked-store-plus-index pattern used throughout this
// codebase's other backends.
package jsonrepo

import (
	"context"
	"fmt"

	"github.com/projecteru2/gcstore/storage/json"
	"github.com/projecteru2/gcstore/store"
)

// appsIndex is the on-disk shape of the app repository's index file: every
// known application id mapped to its set of stored versions.
type appsIndex struct {
	Versions map[store.PathID]map[store.Version]struct{} `json:"versions"`
}

// Init implements storage.Initer, normalizing a freshly-created or
// zero-valued index so callers never see a nil map.
func (i *appsIndex) Init() {
	if i.Versions == nil {
		i.Versions = make(map[store.PathID]map[store.Version]struct{})
	}
}

// AppRepository is the JSON-file-backed repository.AppRepository.
type AppRepository struct {
	store *json.Store[appsIndex]
}

// NewAppRepository builds an AppRepository backed by the given lock and
// data file paths.
func NewAppRepository(lockPath, filePath string) *AppRepository {
	return &AppRepository{store: json.New[appsIndex](lockPath, filePath)}
}

// IDs enumerates every application id known to the store.
func (r *AppRepository) IDs(ctx context.Context) store.Seq[store.PathID] {
	var ids []store.PathID
	err := r.store.With(ctx, func(idx *appsIndex) error {
		ids = make([]store.PathID, 0, len(idx.Versions))
		for id := range idx.Versions {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return errSeq[store.PathID]{err: fmt.Errorf("read apps index: %w", err)}
	}
	return store.NewSliceSeq(ids)
}

// Versions enumerates the stored versions of a single application.
func (r *AppRepository) Versions(ctx context.Context, id store.PathID) store.Seq[store.Version] {
	var versions []store.Version
	err := r.store.With(ctx, func(idx *appsIndex) error {
		for v := range idx.Versions[id] {
			versions = append(versions, v)
		}
		return nil
	})
	if err != nil {
		return errSeq[store.Version]{err: fmt.Errorf("read app %s versions: %w", id, err)}
	}
	return store.NewSliceSeq(versions)
}

// Delete removes an application and all of its stored versions.
func (r *AppRepository) Delete(ctx context.Context, id store.PathID) error {
	return r.store.Update(ctx, func(idx *appsIndex) error {
		delete(idx.Versions, id)
		return nil
	})
}

// DeleteVersion removes a single stored version.
func (r *AppRepository) DeleteVersion(ctx context.Context, id store.PathID, v store.Version) error {
	return r.store.Update(ctx, func(idx *appsIndex) error {
		delete(idx.Versions[id], v)
		return nil
	})
}

// StoreVersion records a new application version. Not part of the
// repository.AppRepository port (the GC core only reads/deletes); exposed
// here for the command layer and for test setup.
func (r *AppRepository) StoreVersion(ctx context.Context, id store.PathID, v store.Version) error {
	return r.store.Update(ctx, func(idx *appsIndex) error {
		if idx.Versions[id] == nil {
			idx.Versions[id] = make(map[store.Version]struct{})
		}
		idx.Versions[id][v] = struct{}{}
		return nil
	})
}
