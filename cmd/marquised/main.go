// marquised drains spooled datapoints and source metadata to the remote
// time series store. it is the only process that consumes spool segments,
// writers merely append.
package main

import (
	"context"
	"log"
	"os"
	"sync"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/anchor/marquise"
	"github.com/anchor/marquise/cmd/cmdopts"
	"github.com/anchor/marquise/internal/debugx"
)

func main() {
	var shellcli struct {
		cmdopts.Global
		Version cmdopts.Version `cmd:"" help:"display versioning information"`
		Daemon  daemon          `cmd:"" default:"withargs" help:"drain spooled namespaces to the remote store"`
	}

	var (
		err error
		ctx *kong.Context
	)

	shellcli.Cleanup = &sync.WaitGroup{}
	shellcli.Context, shellcli.Shutdown = context.WithCancelCause(context.Background())
	log.SetFlags(log.Lshortfile | log.LUTC | log.Ltime)

	go debugx.DumpOnSignal(shellcli.Context, syscall.SIGUSR2)
	go cmdopts.Cleanup(shellcli.Context, shellcli.Shutdown, shellcli.Cleanup, func() {
		log.Println("waiting for systems to shutdown")
	}, os.Kill, os.Interrupt)

	parser := kong.Must(
		&shellcli,
		kong.Name("marquised"),
		kong.Description("transmission daemon for spooled marquise datapoints"),
		kong.Vars{
			"vars_spool_directory": marquise.DefaultSpoolDirectory(),
			"vars_ingest_host":     marquise.EnvIngestHostDefault(),
		},
		kong.UsageOnError(),
		kong.Bind(&shellcli.Global),
	)

	if ctx, err = parser.Parse(os.Args[1:]); err != nil {
		log.Println(err)
		os.Exit(1)
	}

	if err = ctx.Run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}

	debugx.Println("shutting down")
	shellcli.Shutdown(nil)
	shellcli.Cleanup.Wait()
}
