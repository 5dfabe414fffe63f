package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rusq/docscan"
	"github.com/rusq/docscan/cmd/docscan/internal/cfg"
	"github.com/rusq/docscan/cmd/docscan/internal/golang/base"
	"github.com/rusq/docscan/scanjob"
)

// Scanner returns the scanner configured from the command line flags.
func Scanner() (*docscan.Scanner, error) {
	if err := cfg.Validate(); err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return nil, err
	}
	return docscan.New(cfg.ScanOptions()...), nil
}

// Spool returns the started job spool, it is closed on exit.
func Spool(ctx context.Context) (*scanjob.Spool, error) {
	sc, err := Scanner()
	if err != nil {
		return nil, err
	}
	sp, err := scanjob.NewSpool(cfg.SpoolDir, sc, scanjob.WithWorkers(cfg.Workers))
	if err != nil {
		base.SetExitStatus(base.SInitializationError)
		return nil, fmt.Errorf("failed to create spool: %w", err)
	}
	base.AtExit(func() {
		if err := sp.Close(); err != nil {
			slog.ErrorContext(ctx, "error closing the spool", "error", err)
		}
	})
	return sp, nil
}
