/*
vkutility opens a window, brings up a Vulkan device and swapchain for it and
keeps them alive across resizes until the window is closed.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkutility/engine"
	"github.com/spaghettifunk/vkutility/engine/core"
)

const defaultConfigPath = "config.toml"

func main() {
	path := os.Getenv("VKUTILITY_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := core.LoadConfig(path)
	if err != nil {
		core.LogFatal(err.Error())
	}
	core.SetLogLevel(cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		// capture sigterm and other system call here
		<-sigCh
		core.LogInfo("Signal received, shutting down.")
		cancel()
	}()

	e, err := engine.New(cfg)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(ctx); err != nil {
		_ = e.Shutdown()
		core.LogFatal(err.Error())
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}
}
