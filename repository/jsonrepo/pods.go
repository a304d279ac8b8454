package jsonrepo

import (
	"context"
	"fmt"

	"github.com/projecteru2/gcstore/storage/json"
	"github.com/projecteru2/gcstore/store"
)

// podsIndex is the symmetric counterpart of appsIndex.
type podsIndex struct {
	Versions map[store.PathID]map[store.Version]struct{} `json:"versions"`
}

func (i *podsIndex) Init() {
	if i.Versions == nil {
		i.Versions = make(map[store.PathID]map[store.Version]struct{})
	}
}

// PodRepository is the JSON-file-backed repository.PodRepository.
type PodRepository struct {
	store *json.Store[podsIndex]
}

// NewPodRepository builds a PodRepository backed by the given lock and
// data file paths.
func NewPodRepository(lockPath, filePath string) *PodRepository {
	return &PodRepository{store: json.New[podsIndex](lockPath, filePath)}
}

// IDs enumerates every pod id known to the store.
func (r *PodRepository) IDs(ctx context.Context) store.Seq[store.PathID] {
	var ids []store.PathID
	err := r.store.With(ctx, func(idx *podsIndex) error {
		ids = make([]store.PathID, 0, len(idx.Versions))
		for id := range idx.Versions {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return errSeq[store.PathID]{err: fmt.Errorf("read pods index: %w", err)}
	}
	return store.NewSliceSeq(ids)
}

// Versions enumerates the stored versions of a single pod.
func (r *PodRepository) Versions(ctx context.Context, id store.PathID) store.Seq[store.Version] {
	var versions []store.Version
	err := r.store.With(ctx, func(idx *podsIndex) error {
		for v := range idx.Versions[id] {
			versions = append(versions, v)
		}
		return nil
	})
	if err != nil {
		return errSeq[store.Version]{err: fmt.Errorf("read pod %s versions: %w", id, err)}
	}
	return store.NewSliceSeq(versions)
}

// Delete removes a pod and all of its stored versions.
func (r *PodRepository) Delete(ctx context.Context, id store.PathID) error {
	return r.store.Update(ctx, func(idx *podsIndex) error {
		delete(idx.Versions, id)
		return nil
	})
}

// DeleteVersion removes a single stored version.
func (r *PodRepository) DeleteVersion(ctx context.Context, id store.PathID, v store.Version) error {
	return r.store.Update(ctx, func(idx *podsIndex) error {
		delete(idx.Versions[id], v)
		return nil
	})
}

// StoreVersion records a new pod version. See AppRepository.StoreVersion.
func (r *PodRepository) StoreVersion(ctx context.Context, id store.PathID, v store.Version) error {
	return r.store.Update(ctx, func(idx *podsIndex) error {
		if idx.Versions[id] == nil {
			idx.Versions[id] = make(map[store.Version]struct{})
		}
		idx.Versions[id][v] = struct{}{}
		return nil
	})
}
