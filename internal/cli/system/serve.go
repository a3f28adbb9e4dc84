package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/streaklit/internal/api"
	"github.com/julianstephens/streaklit/internal/cli"
	"github.com/julianstephens/streaklit/internal/lockfile"
	"github.com/julianstephens/streaklit/internal/logger"
)

type ServeCmd struct {
	Addr string `help:"Listen address (overrides config and STREAKLIT_ADDR)." default:""`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	addr := c.Addr
	if addr == "" {
		addr = ctx.Settings().Server.Addr
	}

	if ctx.IsSQLite() {
		release, err := lockfile.Acquire(lockfile.Path(ctx.Store.GetConfigPath()), addr)
		if err != nil {
			return err
		}
		defer func() {
			if err := release(); err != nil {
				logger.Warn("Failed to remove server lockfile", "error", err)
			}
		}()
	}

	srv := api.NewServer(ctx.Service(), api.Options{
		RequestTimeout: ctx.Settings().Server.RequestTimeout,
		Health:         ctx.Store,
	})

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.Printf("Serving streaklit on http://%s (Ctrl+C to stop)\n", addr)
	return srv.ListenAndServe(sigCtx, addr)
}
