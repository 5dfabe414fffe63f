package cmdserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rusq/docscan/cmd/docscan/internal/bootstrap"
	"github.com/rusq/docscan/cmd/docscan/internal/cfg"
	"github.com/rusq/docscan/cmd/docscan/internal/golang/base"
	"github.com/rusq/docscan/scanjob"
	"github.com/rusq/docscan/scansrv"
)

var CmdServer = &base.Command{
	Run:        runServer,
	UsageLine:  "docscan server [flags]",
	Short:      "start the scan server",
	PrintFlags: true,
	Long: `
Starts the HTTP scan server.

Endpoints:

	POST   /scan              scan the image in the request body, or in the
	                          "image" field of the multipart form, returns JPEG
	POST   /jobs              submit the image to the job spool
	GET    /jobs              list jobs
	GET    /jobs/{id}         job status
	GET    /jobs/{id}/result  scanned image of the completed job
	POST   /jobs/{id}/cancel  cancel the pending job
	DELETE /jobs/{id}         remove the job
	GET    /methods           binarization methods
	GET    /health            health check

Query parameters of /scan and /jobs: max_width, max_height, quality, method,
enhance, contrast, brightness.  Flags set the defaults.

The spool directory is set with DOCSCAN_SPOOL_DIR, or -spool flag, if not
set, a temporary directory is used.
`,
}

var addr string

func init() {
	CmdServer.Flag.StringVar(&addr, "addr", "localhost:8080", "`address` to listen on")
	CmdServer.Flag.StringVar(&cfg.SpoolDir, "spool", cfg.SpoolDir, "spool `directory`")
}

func runServer(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) > 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	sp, err := bootstrap.Spool(ctx)
	if err != nil {
		return err
	}
	s, err := scansrv.New(sp, scansrv.WithScanOptions(cfg.ScanOptions()...))
	if err != nil {
		base.SetExitStatus(base.SInitializationError)
		return err
	}
	cfg.RegisterSigInfoReporter(spoolInfo(sp))
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(context.Background()); err != nil {
			slog.Error("error shutting down server", "err", err)
		} else {
			slog.Info("server shut down successfully")
		}
	}()

	slog.Info("starting server", "addr", addr, "spool", sp.Dir(), "workers", cfg.Workers)
	if err := s.ListenAndServe(addr); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		base.SetExitStatus(base.SApplicationError)
		return fmt.Errorf("error starting server: %w", err)
	}
	return nil
}

func spoolInfo(sp *scanjob.Spool) cfg.InfoReportFunc {
	return func(w io.Writer) {
		counts := make(map[scanjob.JobState]int)
		for _, j := range sp.List() {
			counts[j.State]++
		}
		fmt.Fprintf(w, "spool %s:", sp.Dir())
		for _, st := range []scanjob.JobState{scanjob.JobPending, scanjob.JobProcessing, scanjob.JobCompleted, scanjob.JobAborted, scanjob.JobCancelled} {
			fmt.Fprintf(w, " %s=%d", st, counts[st])
		}
		fmt.Fprintln(w)
	}
}
