//go:build unix && !darwin

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rusq/docscan/cmd/docscan/internal/cfg"
)

// trapSigInfo prints the status report on SIGUSR1, there's no SIGINFO on
// this platform.
func trapSigInfo() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	go func() {
		for range ch {
			fmt.Fprint(os.Stderr, "DOCSCAN STATUS REPORT\n")
			cfg.SigInfo(os.Stderr)
		}
	}()
}
