// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package base defines shared basic pieces of the docscan command,
// in particular logging and the Command structure.
package base

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rusq/docscan/cmd/docscan/internal/cfg"
)

// A Command is an implementation of a docscan command
// like docscan scan or docscan server.
type Command struct {
	// Run runs the command.
	// The args are the arguments after the command name.
	Run func(ctx context.Context, cmd *Command, args []string) error

	// UsageLine is the one-line usage message.
	// The words between "docscan" and the first flag or argument in the line are taken to be the command name.
	UsageLine string

	// Short is the short description shown in the 'docscan help' output.
	Short string

	// Long is the long message shown in the 'docscan help <this-command>' output.
	Long string

	// Flag is a set of flags specific to this command.
	Flag flag.FlagSet

	// FlagMask allows to omit the base flags that are not relevant for the
	// command.
	FlagMask cfg.FlagMask

	// PrintFlags controls if the flags are printed in the command help.
	PrintFlags bool

	// CustomFlags indicates that the command will do its own
	// flag parsing.
	CustomFlags bool

	// Commands lists the available commands and help topics.
	// The order here is the order in which they are printed by 'docscan help'.
	// Note that subcommands are in general best avoided.
	Commands []*Command
}

var DocscanCommand = &Command{
	UsageLine: "docscan",
	Long:      `Docscan turns photographs of document pages into clean black and white scans.`,
	// Commands initialized in package main
}

// LongName returns the command's long name: all the words in the usage line between "docscan" and a flag or argument,
func (c *Command) LongName() string {
	name := c.UsageLine
	if i := strings.Index(name, " ["); i >= 0 {
		name = name[:i]
	}
	if i := strings.Index(name, " <"); i >= 0 {
		name = name[:i]
	}
	if name == "docscan" {
		return ""
	}
	return strings.TrimPrefix(name, "docscan ")
}

// Name returns the command's short name: the last word in the usage line before a flag or argument.
func (c *Command) Name() string {
	name := c.LongName()
	if i := strings.LastIndex(name, " "); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (c *Command) Usage() {
	fmt.Fprintf(os.Stderr, "usage: %s\n", c.UsageLine)
	fmt.Fprintf(os.Stderr, "Run 'docscan help %s' for details.\n", c.LongName())
	SetExitStatus(SHelpRequested)
	Exit()
}

// Runnable reports whether the command can be run; otherwise
// it is a documentation pseudo-command such as importpath.
func (c *Command) Runnable() bool {
	return c.Run != nil
}

var atExitFuncs []func()

// AtExit registers the function to be called on Exit.
func AtExit(f func()) {
	atExitFuncs = append(atExitFuncs, f)
}

// Exit runs the registered functions in reverse order and exits with the
// current exit status.
func Exit() {
	for i := len(atExitFuncs) - 1; i >= 0; i-- {
		atExitFuncs[i]()
	}
	os.Exit(int(exitStatus))
}

var exitStatus = SNoError
var exitMu sync.Mutex

// SetExitStatus sets the exit status, if it's greater than the current.
func SetExitStatus(n StatusCode) {
	exitMu.Lock()
	if exitStatus < n {
		exitStatus = n
	}
	exitMu.Unlock()
}

func ExitStatus() StatusCode {
	exitMu.Lock()
	defer exitMu.Unlock()
	return exitStatus
}

// Usage is the usage-reporting function, filled in by package main
// but here for reference by other packages.
var Usage func()

// CmdName is the name of the command being run.
var CmdName string
