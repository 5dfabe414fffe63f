package cfg

import (
	"io"
	"sync"
)

// InfoReportFunc writes the status report of a running command.
type InfoReportFunc func(w io.Writer)

var (
	sigMu        sync.Mutex
	sigReporters []InfoReportFunc
)

// RegisterSigInfoReporter adds the reporter that is called on SIGINFO.
func RegisterSigInfoReporter(fn InfoReportFunc) {
	if fn == nil {
		return
	}
	sigMu.Lock()
	sigReporters = append(sigReporters, fn)
	sigMu.Unlock()
}

// SigInfo writes the reports of all registered reporters to w.
func SigInfo(w io.Writer) {
	if w == nil {
		return
	}
	sigMu.Lock()
	defer sigMu.Unlock()
	for _, fn := range sigReporters {
		fn(w)
	}
}
