package others

import (
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/gcstore/cmd/core"
	"github.com/projecteru2/gcstore/config"
	"github.com/projecteru2/gcstore/version"
)

// Handler implements Actions against the shared BaseHandler.
type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) conf() (*config.Config, error) {
	return h.Conf()
}

// Run starts the retention coordinator and blocks until the command
// context is canceled (SIGINT/SIGTERM), issuing one RunGC request on
// startup. With a non-zero cleaning interval the coordinator starts in
// Resting, which ignores RunGC, so that request starts no cycle.
func (h Handler) Run(cmd *cobra.Command, _ []string) error {
	conf, err := h.conf()
	if err != nil {
		return err
	}
	ctx := cmdcore.CommandContext(cmd)

	coordinator := cmdcore.NewCoordinator(conf)

	logger := log.WithFunc("cmd.gc.run")
	logger.Infof(ctx, "starting retention coordinator (max_versions=%d, cleaning_interval=%s)",
		conf.MaxVersions, conf.CleaningInterval)

	done := make(chan struct{})
	go func() {
		defer close(done)
		coordinator.Run(ctx)
	}()

	coordinator.RunGC(ctx)

	<-done
	logger.Infof(ctx, "retention coordinator stopped")
	return nil
}

// Version prints the build identification banner.
func (h Handler) Version(_ *cobra.Command, _ []string) error {
	fmt.Print(version.String())
	return nil
}
