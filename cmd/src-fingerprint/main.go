// Command src-fingerprint lists repositories from a provider and records the HEAD sha of each
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	perr "srcfingerprint/internal/platform/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "src-fingerprint:", err)
	}
	os.Exit(perr.ExitCode(err))
}
