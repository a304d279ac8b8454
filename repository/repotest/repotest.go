// Package repotest provides in-memory fakes of the repository ports, for
// use in gc package tests without touching the filesystem.
package repotest

import (
	"context"
	"fmt"
	"sync"

	"github.com/projecteru2/gcstore/store"
)

// VersionedRepo is a fake AppRepository/PodRepository — both ports have the
// identical shape, so one fake backs both.
type VersionedRepo struct {
	mu       sync.Mutex
	versions map[store.PathID]map[store.Version]struct{}
}

// NewVersionedRepo builds an empty fake.
func NewVersionedRepo() *VersionedRepo {
	return &VersionedRepo{versions: make(map[store.PathID]map[store.Version]struct{})}
}

// Put seeds id with the given versions — test setup only.
func (r *VersionedRepo) Put(id store.PathID, versions ...store.Version) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[store.Version]struct{}, len(versions))
	for _, v := range versions {
		set[v] = struct{}{}
	}
	r.versions[id] = set
}

// IDs implements the repository port.
func (r *VersionedRepo) IDs(_ context.Context) store.Seq[store.PathID] {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]store.PathID, 0, len(r.versions))
	for id := range r.versions {
		ids = append(ids, id)
	}
	return store.NewSliceSeq(ids)
}

// Versions implements the repository port.
func (r *VersionedRepo) Versions(_ context.Context, id store.PathID) store.Seq[store.Version] {
	r.mu.Lock()
	defer r.mu.Unlock()
	versions := make([]store.Version, 0, len(r.versions[id]))
	for v := range r.versions[id] {
		versions = append(versions, v)
	}
	return store.NewSliceSeq(versions)
}

// Delete implements the repository port.
func (r *VersionedRepo) Delete(_ context.Context, id store.PathID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions, id)
	return nil
}

// DeleteVersion implements the repository port.
func (r *VersionedRepo) DeleteVersion(_ context.Context, id store.PathID, v store.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions[id], v)
	return nil
}

// HasVersion reports whether (id, v) is still present — test assertions.
func (r *VersionedRepo) HasVersion(id store.PathID, v store.Version) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.versions[id][v]
	return ok
}

// HasID reports whether id is still present at all — test assertions.
func (r *VersionedRepo) HasID(id store.PathID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.versions[id]
	return ok
}

// GroupRepo is a fake GroupRepository.
type GroupRepo struct {
	mu      sync.Mutex
	current store.Version
	roots   map[store.Version]store.RootSnapshot
}

// NewGroupRepo builds an empty fake.
func NewGroupRepo() *GroupRepo {
	return &GroupRepo{roots: make(map[store.Version]store.RootSnapshot)}
}

// Put seeds a stored root snapshot — test setup only.
func (g *GroupRepo) Put(snap store.RootSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roots[snap.Version] = snap
}

// SetCurrent marks v as the current root — test setup only.
func (g *GroupRepo) SetCurrent(v store.Version) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = v
}

// RootVersions implements the repository port.
func (g *GroupRepo) RootVersions(_ context.Context) store.Seq[store.Version] {
	g.mu.Lock()
	defer g.mu.Unlock()
	versions := make([]store.Version, 0, len(g.roots))
	for v := range g.roots {
		versions = append(versions, v)
	}
	return store.NewSliceSeq(versions)
}

// Root implements the repository port.
func (g *GroupRepo) Root(_ context.Context) (store.RootSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, ok := g.roots[g.current]
	if !ok {
		return store.RootSnapshot{}, fmt.Errorf("current root %s not found", g.current)
	}
	return snap, nil
}

// LazyRootVersion implements the repository port.
func (g *GroupRepo) LazyRootVersion(_ context.Context, v store.Version) (store.RootSnapshot, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, ok := g.roots[v]
	return snap, ok, nil
}

// DeleteRootVersion implements the repository port.
func (g *GroupRepo) DeleteRootVersion(_ context.Context, v store.Version) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.roots, v)
	return nil
}

// HasRoot reports whether v is still stored — test assertions.
func (g *GroupRepo) HasRoot(v store.Version) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.roots[v]
	return ok
}

// DeploymentRepo is a fake DeploymentRepository.
type DeploymentRepo struct {
	mu    sync.Mutex
	plans []store.PlanRef
}

// NewDeploymentRepo builds an empty fake.
func NewDeploymentRepo() *DeploymentRepo {
	return &DeploymentRepo{}
}

// Put seeds a stored plan — test setup only.
func (d *DeploymentRepo) Put(ref store.PlanRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plans = append(d.plans, ref)
}

// LazyAll implements the repository port.
func (d *DeploymentRepo) LazyAll(_ context.Context) store.Seq[store.PlanRef] {
	d.mu.Lock()
	defer d.mu.Unlock()
	plans := make([]store.PlanRef, len(d.plans))
	copy(plans, d.plans)
	return store.NewSliceSeq(plans)
}
