package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OpenTouch/night-watch/internal/action"
	"github.com/OpenTouch/night-watch/internal/controlapi"
	"github.com/OpenTouch/night-watch/internal/nwconfig"
	"github.com/OpenTouch/night-watch/internal/nwlog"
	"github.com/OpenTouch/night-watch/internal/provider"
	"github.com/OpenTouch/night-watch/internal/taskmanager"
	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Exit codes per spec.md §6: 0 clean shutdown, 2 task-load failure,
// -1 configuration read failure.
const (
	exitOK                = 0
	exitTaskLoadFailure   = 2
	exitConfigReadFailure = -1
)

func main() {
	os.Exit(run())
}

var rootCmd = &cobra.Command{
	Use:     "night-watch CONFIG",
	Short:   "night-watch - a lightweight monitoring daemon",
	Version: Version,
	Args:    cobra.ExactArgs(1),
}

func run() int {
	code := exitOK
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		code = daemon(args[0])
		return nil
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "night-watch: %v\n", err)
		return exitConfigReadFailure
	}
	return code
}

// daemon loads the configuration, wires every component, and blocks
// until a termination signal arrives or startup fails, returning the
// process exit code (spec.md §6, §7).
func daemon(configPath string) int {
	cfg, err := nwconfig.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "night-watch: %v\n", err)
		return exitConfigReadFailure
	}

	nwlog.Init(nwlog.Config{Level: nwlog.Level(cfg.Logging.Level), JSON: cfg.Logging.JSON})
	log := nwlog.WithComponent("main")

	providers := provider.NewRegistry(cfg.Paths.ProvidersLocation)
	provider.RegisterBuiltins(providers)

	actions := action.NewRegistry(cfg.Paths.ActionsLocation)
	action.RegisterBuiltins(actions)

	manager := taskmanager.New(cfg.Paths.TasksLocation, providers, actions)
	if err := manager.Start(); err != nil {
		log.Error().Err(err).Msg("failed to load and start tasks")
		return exitTaskLoadFailure
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var api *controlapi.Server
	apiErrCh := make(chan error, 1)
	if cfg.Webserver.Enabled {
		api = controlapi.New(fmt.Sprintf(":%d", cfg.Webserver.Port), manager)
		go func() {
			if err := api.ListenAndServe(ctx); err != nil {
				apiErrCh <- err
			}
		}()
		log.Info().Int("port", cfg.Webserver.Port).Msg("control API enabled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("received termination signal, shutting down")
	case err := <-apiErrCh:
		log.Error().Err(err).Msg("control API server failed")
	}

	if api != nil {
		_ = api.Shutdown(context.Background())
	}
	if err := manager.Stop(true); err != nil {
		log.Error().Err(err).Msg("error while stopping task manager")
	}
	log.Info().Msg("shutdown complete")
	return exitOK
}
