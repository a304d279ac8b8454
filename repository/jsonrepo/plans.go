package jsonrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/projecteru2/gcstore/storage/json"
	"github.com/projecteru2/gcstore/store"
)

// deploymentsIndex is the on-disk shape of the deployment-plan repository.
type deploymentsIndex struct {
	Plans map[string]store.PlanRef `json:"plans"`
}

func (i *deploymentsIndex) Init() {
	if i.Plans == nil {
		i.Plans = make(map[string]store.PlanRef)
	}
}

// DeploymentRepository is the JSON-file-backed repository.DeploymentRepository.
type DeploymentRepository struct {
	store *json.Store[deploymentsIndex]
}

// NewDeploymentRepository builds a DeploymentRepository backed by the given
// lock and data file paths.
func NewDeploymentRepository(lockPath, filePath string) *DeploymentRepository {
	return &DeploymentRepository{store: json.New[deploymentsIndex](lockPath, filePath)}
}

// LazyAll enumerates every stored deployment plan.
func (r *DeploymentRepository) LazyAll(ctx context.Context) store.Seq[store.PlanRef] {
	var plans []store.PlanRef
	err := r.store.With(ctx, func(idx *deploymentsIndex) error {
		plans = make([]store.PlanRef, 0, len(idx.Plans))
		for _, p := range idx.Plans {
			plans = append(plans, p)
		}
		return nil
	})
	if err != nil {
		return errSeq[store.PlanRef]{err: fmt.Errorf("read plans index: %w", err)}
	}
	return store.NewSliceSeq(plans)
}

// StorePlan records a new deployment plan, indexed by its ID. See
// AppRepository.StoreVersion for why this isn't part of the GC-facing port.
func (r *DeploymentRepository) StorePlan(ctx context.Context, ref store.PlanRef) error {
	return r.store.Update(ctx, func(idx *deploymentsIndex) error {
		idx.Plans[ref.ID] = ref
		return nil
	})
}

// NewPlan builds a Plan pinning original and target, assigning it a fresh
// opaque ID. Plan/RootSnapshot carry no natural external identifier, so
// callers creating a plan (the command layer, or test fixtures) go through
// here rather than inventing IDs ad hoc.
func NewPlan(original, target store.RootSnapshot) store.Plan {
	return store.Plan{
		ID:       uuid.NewString(),
		Original: original,
		Target:   target,
	}
}

// DeletePlan removes a stored plan by ID — used once a deployment finishes
// and no longer needs to pin its two root versions.
func (r *DeploymentRepository) DeletePlan(ctx context.Context, id string) error {
	return r.store.Update(ctx, func(idx *deploymentsIndex) error {
		delete(idx.Plans, id)
		return nil
	})
}
