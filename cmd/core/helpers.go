// Package core provides shared plumbing for command handlers: config
// access, context derivation, and repository/coordinator wiring.
package core

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/projecteru2/gcstore/config"
	"github.com/projecteru2/gcstore/gc"
	"github.com/projecteru2/gcstore/repository/jsonrepo"
)

// BaseHandler provides shared config access for all command handlers.
type BaseHandler struct {
	ConfProvider func() *config.Config
}

// Init returns the command context and validated config in one call.
func (h BaseHandler) Init(cmd *cobra.Command) (context.Context, *config.Config, error) {
	conf, err := h.Conf()
	if err != nil {
		return nil, nil, err
	}
	return CommandContext(cmd), conf, nil
}

// Conf validates and returns the config. All handlers call this first.
func (h BaseHandler) Conf() (*config.Config, error) {
	if h.ConfProvider == nil {
		return nil, fmt.Errorf("config provider is nil")
	}
	conf := h.ConfProvider()
	if conf == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	return conf, nil
}

// CommandContext returns command context, falling back to Background.
func CommandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// NewRepositories builds the JSON-backed repository set from conf.
func NewRepositories(conf *config.Config) gc.Repositories {
	return gc.Repositories{
		Apps:        jsonrepo.NewAppRepository(conf.AppsIndexLock(), conf.AppsIndexFile()),
		Pods:        jsonrepo.NewPodRepository(conf.PodsIndexLock(), conf.PodsIndexFile()),
		Groups:      jsonrepo.NewGroupRepository(conf.GroupsIndexLock(), conf.GroupsIndexFile()),
		Deployments: jsonrepo.NewDeploymentRepository(conf.DeploymentsIndexLock(), conf.DeploymentsIndexFile()),
	}
}

// NewCoordinator builds a gc.Coordinator wired to conf's repositories and
// registered against the default Prometheus registry.
func NewCoordinator(conf *config.Config) *gc.Coordinator {
	gcCfg := gc.Config{
		MaxVersions:      conf.MaxVersions,
		ScanBatchSize:    conf.ScanBatchSize,
		CleaningInterval: conf.CleaningInterval,
	}
	return gc.NewCoordinator(NewRepositories(conf), gcCfg, prometheus.DefaultRegisterer)
}
