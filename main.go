/*
Renders the demo scene through the hybrid pipeline. Edit the config file
while it runs to resize the targets or switch antialiasing.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/hybrid/engine"
	"github.com/spaghettifunk/hybrid/engine/core"
	"github.com/spaghettifunk/hybrid/testbed"
)

func main() {
	configPath := flag.String("config", "", "TOML config file to load and watch")
	cycle := flag.Uint64("cycle", 0, "switch antialiasing mode every n frames, 0 disables")
	flag.Parse()

	tb := testbed.NewTestGame(*configPath, *cycle)

	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("failed to create engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		core.LogError("failed to initialize engine: %s", err)
		_ = e.Shutdown()
		os.Exit(1)
	}

	// capture sigterm and other system calls here
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogError("engine stopped: %s", runErr)
		os.Exit(1)
	}
}
