// Package main provides the entry point for the mtgdb card search server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/mtgdb/mtgdb-server/internal/di"
	"github.com/mtgdb/mtgdb-server/internal/di/providers"
	"github.com/mtgdb/mtgdb-server/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// Stop the load pipeline first so no index build races the close below.
	if loaderHandle, err := do.Invoke[*providers.LoaderHandle](injector); err == nil {
		_ = loaderHandle.Shutdown()
	}

	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Server stopped")
}
