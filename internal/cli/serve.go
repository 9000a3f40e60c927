package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"gpuwatch/internal/config"
	"gpuwatch/internal/logger"
	"gpuwatch/internal/poll"
	"gpuwatch/internal/web"
	"gpuwatch/pkg/sshutil"
)

// serveCommand runs the poller and the web server until interrupted.
func serveCommand() error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	log := logger.NewEnvLogger("gpuwatch")

	// Unresolvable aliases are not fatal: the host shows up as unreachable
	// on the dashboard, same as any other connection failure.
	for _, alias := range cfg.Hosts {
		if !sshutil.HasAlias(cfg.SSHConfigPath(), alias) {
			log.Warn("host '%s' not found in %s; it will poll as unreachable unless it resolves as a hostname", alias, cfg.SSHConfig)
		}
	}

	pool := poll.NewPool(cfg.CommandTimeout, cfg.SSHConfigPath())
	defer pool.Close()
	defer sshutil.CloseAgent()

	runner := poll.NewSSHRunner(pool, cfg.CommandTimeout, log)
	poller := poll.NewHostPoller(runner, "")
	cache := poll.NewCache()
	scheduler := poll.NewScheduler(cfg.Hosts, cfg.PollInterval, poller, cache, log)
	server := web.New(cfg.Bind, cfg.Hosts, cfg.PollInterval, cache, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	g.Go(func() error {
		return server.Run(ctx)
	})

	log.Info("polling %d host(s) every %s", len(cfg.Hosts), cfg.PollInterval)
	return g.Wait()
}
