// Package repository defines the storage-backend contracts the GC core
// consumes: enumeration, read, and delete primitives over apps, pods,
// roots, and deployment plans. The GC core treats these as opaque —
// durability, consistency, and the real backing store are out of scope
// (see SPEC_FULL.md §1).
package repository

import (
	"context"

	"github.com/projecteru2/gcstore/store"
)

// AppRepository enumerates and mutates stored application versions.
type AppRepository interface {
	// IDs enumerates every application id known to the store.
	IDs(ctx context.Context) store.Seq[store.PathID]
	// Versions enumerates the stored versions of a single application.
	Versions(ctx context.Context, id store.PathID) store.Seq[store.Version]
	// Delete removes an application and all of its stored versions.
	Delete(ctx context.Context, id store.PathID) error
	// DeleteVersion removes a single stored version.
	DeleteVersion(ctx context.Context, id store.PathID, v store.Version) error
}

// PodRepository is the identical shape as AppRepository — pods are treated
// symmetrically to apps throughout the GC core.
type PodRepository interface {
	IDs(ctx context.Context) store.Seq[store.PathID]
	Versions(ctx context.Context, id store.PathID) store.Seq[store.Version]
	Delete(ctx context.Context, id store.PathID) error
	DeleteVersion(ctx context.Context, id store.PathID, v store.Version) error
}

// GroupRepository manages root snapshots.
type GroupRepository interface {
	// RootVersions enumerates every stored root version.
	RootVersions(ctx context.Context) store.Seq[store.Version]
	// Root returns the current root snapshot.
	Root(ctx context.Context) (store.RootSnapshot, error)
	// LazyRootVersion fetches the full snapshot for a given version, if
	// still stored.
	LazyRootVersion(ctx context.Context, v store.Version) (snap store.RootSnapshot, ok bool, err error)
	// DeleteRootVersion removes a single stored root version.
	DeleteRootVersion(ctx context.Context, v store.Version) error
}

// DeploymentRepository enumerates stored deployment plans. Each plan
// minimally carries its two root versions; callers fetch full snapshots
// via GroupRepository.LazyRootVersion.
type DeploymentRepository interface {
	LazyAll(ctx context.Context) store.Seq[store.PlanRef]
}
