package gc

import "github.com/projecteru2/gcstore/repository"

// Repositories bundles the four repository ports the GC core depends on.
type Repositories struct {
	Apps        repository.AppRepository
	Pods        repository.PodRepository
	Groups      repository.GroupRepository
	Deployments repository.DeploymentRepository
}
