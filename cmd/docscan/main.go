package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime/trace"
	"strings"
	"syscall"

	"github.com/rusq/docscan/cmd/docscan/internal/cfg"
	"github.com/rusq/docscan/cmd/docscan/internal/cmdmethods"
	"github.com/rusq/docscan/cmd/docscan/internal/cmdscan"
	"github.com/rusq/docscan/cmd/docscan/internal/cmdserver"
	"github.com/rusq/docscan/cmd/docscan/internal/golang/base"
	"github.com/rusq/docscan/cmd/docscan/internal/golang/help"
)

func init() {
	base.DocscanCommand.Commands = []*base.Command{
		cmdscan.CmdScan,
		cmdserver.CmdServer,
		cmdmethods.CmdMethods,
	}
}

func main() {
	flag.Usage = base.Usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		base.Usage() // exits
		return
	}
	base.CmdName = args[0]
	if args[0] == "help" {
		help.Help(os.Stdout, args[1:])
		return
	}

	cmd, args := lookup(base.DocscanCommand, args)
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "docscan: unknown command %q\nRun 'docscan help' for the list of commands.\n", base.CmdName)
		base.SetExitStatus(base.SInvalidParameters)
		base.Exit()
	}
	if err := invoke(cmd, args); err != nil {
		slog.Error(fmt.Sprintf("%03[1]d (%[1]s): %[2]s.", base.ExitStatus(), err))
	}
	base.Exit()
}

// lookup descends the command tree along args and returns the runnable
// command with its arguments, args[0] being the command name.  It returns
// nil if there is no such command.
func lookup(parent *base.Command, args []string) (*base.Command, []string) {
	for _, cmd := range parent.Commands {
		if cmd.Name() != args[0] {
			continue
		}
		if len(cmd.Commands) == 0 {
			if !cmd.Runnable() {
				continue
			}
			return cmd, args
		}
		args = args[1:]
		switch {
		case len(args) == 0:
			help.PrintUsage(os.Stderr, cmd)
			base.SetExitStatus(base.SHelpRequested)
			base.Exit()
		case args[0] == "help":
			help.Help(os.Stdout, append(strings.Split(base.CmdName, " "), args[1:]...))
			base.Exit()
		}
		base.CmdName += " " + args[0]
		return lookup(cmd, args)
	}
	return nil, nil
}

func init() {
	base.Usage = mainUsage
}

func mainUsage() {
	help.PrintUsage(os.Stderr, base.DocscanCommand)
	os.Exit(2)
}

func invoke(cmd *base.Command, args []string) error {
	if cmd.CustomFlags {
		args = args[1:]
	} else {
		var err error
		args, err = parseFlags(cmd, args)
		if err != nil {
			base.SetExitStatus(base.SInvalidParameters)
			return err
		}
	}

	if err := initTrace(cfg.TraceFile); err != nil {
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("failed to start trace: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trapSigInfo()

	ctx, task := trace.NewTask(ctx, "command")
	defer task.End()

	lg, err := initLog(cfg.LogFile, cfg.JSONHandler, cfg.Verbose)
	if err != nil {
		base.SetExitStatus(base.SInitializationError)
		return err
	}
	cfg.Log = lg.With("command", cmd.Name())

	trace.Log(ctx, "command", fmt.Sprint("Running ", cmd.Name(), " command"))
	return cmd.Run(ctx, cmd, args)
}

func parseFlags(cmd *base.Command, args []string) ([]string, error) {
	cfg.SetBaseFlags(&cmd.Flag, cmd.FlagMask)
	cmd.Flag.Usage = func() { cmd.Usage() }
	if err := cmd.Flag.Parse(args[1:]); err != nil {
		return nil, err
	}
	return cmd.Flag.Args(), nil
}

// initTrace starts the runtime trace if the filename is not empty.  The
// trace is stopped on exit.
func initTrace(filename string) error {
	if filename == "" {
		return nil
	}

	slog.Debug("trace will be written to", "filename", filename)

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := trace.Start(f); err != nil {
		f.Close()
		slog.Warn("failed to start trace", "err", err)
		return nil
	}

	base.AtExit(func() {
		trace.Stop()
		if err := f.Close(); err != nil {
			slog.Warn("failed to close trace file", "filename", filename, "error", err)
		}
	})
	return nil
}

// initLog initialises the default logger.  If the filename is not empty, the
// log messages are written to that file, which is closed on exit.
func initLog(filename string, jsonHandler bool, verbose bool) (*slog.Logger, error) {
	if verbose {
		cfg.SetDebugLevel()
	}
	var opts = &slog.HandlerOptions{
		Level: iftrue(verbose, slog.LevelDebug, slog.LevelInfo),
	}
	if jsonHandler {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	}
	if filename != "" {
		slog.Debug("log messages will be written to file", "filename", filename)
		lf, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
		if err != nil {
			return slog.Default(), fmt.Errorf("failed to create the log file: %w", err)
		}
		log.SetOutput(lf) // panics end up in the log file too

		var h slog.Handler = slog.NewTextHandler(lf, opts)
		if jsonHandler {
			h = slog.NewJSONHandler(lf, opts)
		}
		slog.SetDefault(slog.New(h))
		base.AtExit(func() {
			if err := lf.Close(); err != nil {
				slog.Warn("failed to close the log file", "err", err)
			}
		})
	}

	return slog.Default(), nil
}

func iftrue[T any](cond bool, t T, f T) T {
	if cond {
		return t
	}
	return f
}
