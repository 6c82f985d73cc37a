// Package debugx gated logging for debugging output.
package debugx

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/anchor/marquise/internal/envx"
	"github.com/anchor/marquise/internal/errorsx"
)

// enable debugging statements. boolean, see strconv.ParseBool for valid values.
const env = "MARQUISE_LOGS_DEBUG"

func enabled() bool {
	return envx.Boolean(false, env)
}

func Println(args ...interface{}) {
	if !enabled() {
		return
	}

	errorsx.Log(log.Output(2, fmt.Sprintln(args...)))
}

func Printf(format string, args ...interface{}) {
	if !enabled() {
		return
	}

	errorsx.Log(log.Output(2, fmt.Sprintf(format, args...)))
}

// DumpOnSignal writes the stacks of all running goroutines to stderr
// whenever one of the provided signals is received.
func DumpOnSignal(ctx context.Context, sigs ...os.Signal) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, sigs...)
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			errorsx.Log(errorsx.Wrap(pprof.Lookup("goroutine").WriteTo(os.Stderr, 1), "unable to dump goroutines"))
		}
	}
}
