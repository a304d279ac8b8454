// Package cmd wires the gcstore CLI: config loading, logging setup, and
// subcommand registration.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdcore "github.com/projecteru2/gcstore/cmd/core"
	cmdothers "github.com/projecteru2/gcstore/cmd/others"
	"github.com/projecteru2/gcstore/config"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "gcstore",
		Short:        "gcstore - configuration store retention and garbage collection",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmdcore.CommandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("root-dir", "", "root data directory")
	cmd.PersistentFlags().Int("max-versions", 0, "retention cap on root/app/pod version counts")
	cmd.PersistentFlags().Int("scan-batch-size", 0, "pinning-root hydration batch size")
	cmd.PersistentFlags().Duration("cleaning-interval", 0, "resting-state delay (0 disables resting)")

	_ = viper.BindPFlag("root_dir", cmd.PersistentFlags().Lookup("root-dir"))
	_ = viper.BindPFlag("max_versions", cmd.PersistentFlags().Lookup("max-versions"))
	_ = viper.BindPFlag("scan_batch_size", cmd.PersistentFlags().Lookup("scan-batch-size"))
	_ = viper.BindPFlag("cleaning_interval", cmd.PersistentFlags().Lookup("cleaning-interval"))

	viper.SetEnvPrefix("GCSTORE")
	viper.AutomaticEnv()

	confProvider := func() *config.Config { return conf }
	base := cmdcore.BaseHandler{ConfProvider: confProvider}

	for _, c := range cmdothers.Commands(cmdothers.Handler{BaseHandler: base}) {
		cmd.AddCommand(c)
	}

	return cmd
}()

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func initConfig(ctx context.Context) error {
	conf = config.DefaultConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if err := viper.ReadInConfig(); err != nil {
		// No config file is OK; a corrupt/unreadable one is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	var err error
	conf, err = reconcileDefaults(conf)
	if err != nil {
		return fmt.Errorf("reconcile config: %w", err)
	}

	return log.SetupLog(ctx, conf.Log, "")
}

func reconcileDefaults(c *config.Config) (*config.Config, error) {
	if c.MaxVersions <= 0 {
		c.MaxVersions = config.DefaultConfig().MaxVersions
	}
	if err := c.EnsureDirs(); err != nil {
		return nil, err
	}
	return c, nil
}
